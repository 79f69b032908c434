package crawler

import "errors"

// ErrAlreadyRunning is returned when Crawl is called on an engine
// whose run has already started. Engines are single-use.
var ErrAlreadyRunning = errors.New("crawl already running")
