package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/canopy-crawler/canopy/internal/feature"
	"github.com/canopy-crawler/canopy/internal/fetch"
	"github.com/canopy-crawler/canopy/internal/frontier"
	"github.com/canopy-crawler/canopy/internal/model"
	"github.com/canopy-crawler/canopy/internal/urlutil"
)

// Skip reasons recorded on outcomes by the engine itself. Scope
// rejections carry the policy's own reason.
const (
	reasonPageBudget = "page budget exhausted"
	reasonDepthLimit = "depth limit exceeded"
	reasonRunEnded   = "run ended before fetch"
)

// Crawl runs the engine to completion and returns the result. The
// result is also returned on error: it holds everything recorded up to
// the failure.
func (e *Engine) Crawl(ctx context.Context) (*model.CrawlResult, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyRunning
	}

	result := model.NewCrawlResult(e.cfg.Seeds)
	e.logger.Info("crawl starting",
		slog.String("run_id", result.RunID),
		slog.Int("seeds", len(e.cfg.Seeds)),
		slog.String("mode", string(e.cfg.Mode)))

	if e.index != nil {
		if err := e.index.RecordRun(ctx, result); err != nil {
			e.logger.Warn("index run record failed", slog.String("error", err.Error()))
		}
	}

	if err := e.pipeline.Initialize(ctx, e.cfg); err != nil {
		e.pipeline.Close(ctx)
		e.setState(StateFailed)
		return result, err
	}
	defer e.pipeline.Close(context.WithoutCancel(ctx))

	if err := e.pipeline.BeforeCrawl(ctx); err != nil {
		e.setState(StateFailed)
		return result, err
	}

	for _, seed := range e.cfg.Seeds {
		addr, err := e.normalizer.Normalize(seed)
		if err != nil {
			// Seeds were normalized at build time; a failure here is a
			// programming error, not a crawl condition.
			e.setState(StateFailed)
			return result, fmt.Errorf("seed %q: %w", seed, err)
		}
		e.admit(addr, 0, "", 0, result)
	}

	err := e.run(ctx, result)

	// Whatever remains in the frontier was never fetched.
	for {
		entry, ok := e.frontier.Pop()
		if !ok {
			break
		}
		result.RecordSkipped(entry.Address.Key, entry.Parent, reasonRunEnded, entry.Depth)
	}

	result.Finish()
	if e.index != nil {
		if ierr := e.index.RecordRun(context.WithoutCancel(ctx), result); ierr != nil {
			e.logger.Warn("index run record failed", slog.String("error", ierr.Error()))
		}
	}

	if err != nil {
		e.setState(StateFailed)
	} else {
		e.setState(StateDone)
	}

	e.logger.Info("crawl finished",
		slog.String("run_id", result.RunID),
		slog.String("state", e.State().String()),
		slog.Int("visited", result.VisitedCount),
		slog.Int("failed", result.FailedCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Duration("elapsed", result.Elapsed()))

	return result, err
}

// run drives the dispatcher and the worker pool until the frontier
// drains, the page budget fills, or the run is cancelled.
func (e *Engine) run(ctx context.Context, result *model.CrawlResult) error {
	g, workerCtx := errgroup.WithContext(ctx)
	tasks := make(chan *frontier.Entry)
	completions := make(chan struct{})

	for i := 0; i < e.cfg.MaxConcurrency; i++ {
		g.Go(func() error {
			for entry := range tasks {
				err := e.processEntry(workerCtx, entry, result)
				select {
				case completions <- struct{}{}:
				case <-workerCtx.Done():
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	budget := int64(e.cfg.MaxPages)
	inflight := 0

dispatch:
	for {
		entry, ok := e.frontier.Pop()
		if !ok {
			if inflight == 0 {
				break
			}
			// Nothing left to issue; in-flight tasks may still discover
			// more work and pull the run back to Running.
			e.setState(StateDraining)
			select {
			case <-completions:
				inflight--
			case <-workerCtx.Done():
				break dispatch
			}
			continue
		}

		if e.scheduled.Load() < budget {
			e.state.CompareAndSwap(int32(StateDraining), int32(StateRunning))
		}

		// A fresh entry consumes one page of the budget. Retries keep
		// the reservation they already hold.
		if entry.Attempts == 0 {
			if e.scheduled.Load() >= budget {
				result.RecordSkipped(entry.Address.Key, entry.Parent, reasonPageBudget, entry.Depth)
				continue
			}
			if e.scheduled.Add(1) >= budget {
				e.setState(StateDraining)
			}
		}

		for {
			select {
			case tasks <- entry:
				inflight++
			case <-completions:
				inflight--
				continue
			case <-workerCtx.Done():
				break dispatch
			}
			break
		}
	}

	close(tasks)
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// processEntry handles one popped frontier entry: limiter, fetch,
// pipeline, link admission, outcome recording. Task-level problems,
// fatal stage results included, are recorded on the task and never
// propagate; the error return is reserved for invariant violations
// that must end the whole run.
func (e *Engine) processEntry(ctx context.Context, entry *frontier.Entry, result *model.CrawlResult) error {
	entry.Attempts++
	host := entry.Address.Host

	taskCtx, cancel := context.WithTimeout(ctx, e.cfg.PerTaskTimeout)
	defer cancel()

	release, err := e.limiter.Acquire(taskCtx, host)
	if err != nil {
		return e.handleFetchFailure(ctx, entry, err, result)
	}

	doc, err := e.fetcher.Fetch(taskCtx, entry.Address)
	release()
	if err != nil {
		return e.handleFetchFailure(ctx, entry, err, result)
	}

	outcome := &model.Outcome{
		Address:    entry.Address.Key,
		StatusCode: doc.StatusCode,
		Depth:      entry.Depth,
		Parent:     entry.Parent,
		Attempts:   entry.Attempts,
	}

	var aborted error
	if e.cfg.StoreHTML {
		path, serr := e.store.Store("html", host, doc.Hash, "html", doc.Body)
		if serr != nil {
			aborted = fmt.Errorf("store page body: %w", serr)
		} else {
			outcome.Artifacts = append(outcome.Artifacts, model.Artifact{Kind: "html", Path: path})
		}
	}

	if aborted == nil {
		task := &feature.Task{Address: entry.Address, Depth: entry.Depth, Parent: entry.Parent}
		stageResults := e.pipeline.ProcessTask(taskCtx, task, doc)

		for _, sr := range stageResults {
			outcome.Artifacts = append(outcome.Artifacts, sr.Artifacts...)
			if sr.Fatal {
				aborted = fmt.Errorf("fatal stage %s: %v", sr.Feature, sr.Err)
			}
		}

		// A fatally-aborted task contributes no links.
		if aborted == nil {
			for _, c := range e.collectLinks(entry, doc, stageResults, result) {
				e.admit(c.addr, entry.Depth+1, entry.Address.Key, c.bonus, result)
			}
		}
	}

	if aborted != nil {
		outcome.Reason = aborted.Error()
		result.RecordFailure(outcome)
		e.recordPage(ctx, result.RunID, host, doc.Hash, outcome)

		e.logger.Warn("task aborted",
			slog.String("url", entry.Address.Key),
			slog.String("error", aborted.Error()))
		return nil
	}

	result.RecordSuccess(outcome, host)
	e.policy.RecordPage(host)
	e.recordPage(ctx, result.RunID, host, doc.Hash, outcome)

	e.logger.Info("page crawled",
		slog.String("url", entry.Address.Key),
		slog.Int("depth", entry.Depth),
		slog.Int("status", doc.StatusCode),
		slog.Int("visited", result.Visited()))

	return nil
}

// handleFetchFailure retries the entry when attempts remain and the run
// is still live, otherwise records the failure. Fetch failures never
// end the run.
func (e *Engine) handleFetchFailure(ctx context.Context, entry *frontier.Entry, err error, result *model.CrawlResult) error {
	if entry.Attempts < e.cfg.MaxAttempts && ctx.Err() == nil {
		backoff := e.cfg.RetryBackoff << (entry.Attempts - 1)
		e.logger.Debug("retrying fetch",
			slog.String("url", entry.Address.Key),
			slog.Int("attempt", entry.Attempts),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}

		// The address keeps its dedup entry and budget reservation; the
		// retry goes straight back to the frontier.
		e.frontier.Requeue(entry)
		return nil
	}

	outcome := &model.Outcome{
		Address:  entry.Address.Key,
		Reason:   err.Error(),
		Depth:    entry.Depth,
		Parent:   entry.Parent,
		Attempts: entry.Attempts,
	}
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		outcome.StatusCode = fe.StatusCode
	}
	result.RecordFailure(outcome)
	e.recordPage(ctx, result.RunID, entry.Address.Host, "", outcome)

	e.logger.Warn("fetch failed",
		slog.String("url", entry.Address.Key),
		slog.Int("attempts", entry.Attempts),
		slog.String("error", err.Error()))
	return nil
}

// candidate is one link awaiting admission, with any prioritizer bonus.
type candidate struct {
	addr  urlutil.Address
	bonus float64
	veto  bool
}

// collectLinks merges the parser's links with stage discoveries. A
// stage entry for a known link overrides its bonus; a negative bonus
// vetoes the link. Order follows first appearance.
func (e *Engine) collectLinks(entry *frontier.Entry, doc *model.Document, stageResults []*feature.StageResult, result *model.CrawlResult) []*candidate {
	merged := make(map[string]*candidate)
	var order []string

	if doc.IsHTML() {
		// Relative links resolve against the page that actually answered,
		// which after a redirect is not the requested address.
		base := entry.Address
		if doc.FinalURL != "" && doc.FinalURL != entry.Address.Key {
			if final, err := e.normalizer.Normalize(doc.FinalURL); err == nil {
				base = final
				// The redirect target is this task's content; mark it seen
				// so a direct link to it is not fetched again.
				e.dedup.Admit(final.Key)
			}
		}

		parsed, err := e.parser.Parse(base, bytes.NewReader(doc.Body))
		if err != nil {
			e.logger.Warn("parse failed",
				slog.String("url", entry.Address.Key),
				slog.String("error", err.Error()))
		} else {
			for i := 0; i < parsed.Malformed; i++ {
				result.AddMalformed()
			}
			for _, link := range parsed.Links {
				merged[link.Key] = &candidate{addr: link}
				order = append(order, link.Key)
			}
		}
	}

	for _, sr := range stageResults {
		for _, d := range sr.Links {
			addr, err := e.normalizer.Normalize(d.URL)
			if err != nil {
				result.AddMalformed()
				continue
			}
			if c, ok := merged[addr.Key]; ok {
				if d.Bonus < 0 {
					c.veto = true
				} else {
					c.bonus = d.Bonus
					c.veto = false
				}
				continue
			}
			if d.Bonus < 0 {
				continue
			}
			merged[addr.Key] = &candidate{addr: addr, bonus: d.Bonus}
			order = append(order, addr.Key)
		}
	}

	out := make([]*candidate, 0, len(order))
	for _, key := range order {
		if c := merged[key]; !c.veto {
			out = append(out, c)
		}
	}
	return out
}

// admit runs one address through the admission path: scope, dedup,
// frontier. Every rejection is recorded on the result.
func (e *Engine) admit(addr urlutil.Address, depth int, parent string, bonus float64, result *model.CrawlResult) {
	decision := e.policy.Admit(addr, depth)
	if !decision.Admit {
		result.RecordSkipped(addr.Key, parent, decision.Reason, depth)
		return
	}

	if !e.dedup.Admit(addr.Key) {
		result.AddDuplicate()
		return
	}

	err := e.frontier.Push(&frontier.Entry{
		Address: addr,
		Depth:   depth,
		Score:   decision.Score + bonus,
		Parent:  parent,
	})
	if errors.Is(err, frontier.ErrDepthExceeded) {
		result.RecordSkipped(addr.Key, parent, reasonDepthLimit, depth)
	}
}

// recordPage writes one outcome to the index when one is attached.
func (e *Engine) recordPage(ctx context.Context, runID, host, hash string, o *model.Outcome) {
	if e.index == nil {
		return
	}
	if err := e.index.RecordPage(context.WithoutCancel(ctx), runID, host, hash, o); err != nil {
		e.logger.Warn("index page record failed",
			slog.String("url", o.Address),
			slog.String("error", err.Error()))
	}
}
