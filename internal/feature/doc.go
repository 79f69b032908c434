// Package feature defines the per-page processing pipeline and its
// optional stages: screenshot capture, structural extraction,
// stylesheet download, and link prioritization.
//
// Every stage implements the Feature lifecycle: Initialize once before
// the run, BeforeCrawl once when the run starts, ProcessTask for every
// fetched page, and Finalize exactly once when the run ends, however it
// ends. The Pipeline owns that contract: it finalizes every initialized
// feature in reverse order even when initialization or the run itself
// fails partway.
package feature
