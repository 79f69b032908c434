package feature

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/canopy-crawler/canopy/internal/config"
	"github.com/canopy-crawler/canopy/internal/model"
)

// Capture takes a full-page screenshot of every crawled page with a
// headless browser. One browser process serves the whole run; each task
// renders in its own tab.
type Capture struct {
	store ArtifactStore

	allocCtx    context.Context
	allocCancel context.CancelFunc

	browserCtx    context.Context
	browserCancel context.CancelFunc

	width  int
	height int
}

// NewCapture creates the screenshot stage.
func NewCapture(store ArtifactStore) *Capture {
	return &Capture{
		store:  store,
		width:  1280,
		height: 800,
	}
}

// Name implements Feature.
func (c *Capture) Name() string { return config.FeatureCapture }

// Initialize starts the headless browser. Failing here fails the run
// before any fetch: a capture-enabled crawl without a browser is a
// misconfiguration, not a per-page error.
func (c *Capture) Initialize(_ context.Context, _ *config.Config) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(c.width, c.height),
		chromedp.Flag("hide-scrollbars", true),
	)
	c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	c.browserCtx, c.browserCancel = chromedp.NewContext(c.allocCtx)

	// Start the browser now so a missing Chrome binary surfaces at
	// initialization rather than on the first page.
	if err := chromedp.Run(c.browserCtx); err != nil {
		c.browserCancel()
		c.allocCancel()
		return fmt.Errorf("start headless browser: %w", err)
	}
	return nil
}

// BeforeCrawl implements Feature.
func (c *Capture) BeforeCrawl(context.Context) error { return nil }

// ProcessTask renders the page in a fresh tab and stores a full-page
// screenshot. Render failures are per-page stage errors, never fatal.
func (c *Capture) ProcessTask(ctx context.Context, task *Task, doc *model.Document) *StageResult {
	if !doc.IsHTML() {
		return nil
	}

	tabCtx, cancel := chromedp.NewContext(c.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		tabCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	var shot []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(task.Address.Key),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return &StageResult{Err: fmt.Errorf("capture %s: %w", task.Address.Key, err)}
	}

	path, err := c.store.Store("screenshot", task.Address.Host, doc.Hash, "png", shot)
	if err != nil {
		return &StageResult{Err: fmt.Errorf("store screenshot: %w", err), Fatal: true}
	}
	return &StageResult{Artifacts: []model.Artifact{{Kind: "screenshot", Path: path}}}
}

// Finalize shuts the browser down.
func (c *Capture) Finalize(context.Context) error {
	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
