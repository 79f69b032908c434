// Package storage persists crawl output: a date-partitioned artifact
// file store for page bodies, screenshots, DOM trees and stylesheets,
// and a SQLite index of runs and per-page outcomes for later querying.
package storage
