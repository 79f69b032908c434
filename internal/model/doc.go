// Package model defines the value types shared across the crawler:
// fetched documents, per-address outcomes, and the aggregate result of a
// crawl run.
//
// These types carry no behavior beyond construction, hashing, and
// synchronized recording; all crawl logic lives in the packages that
// produce and consume them.
package model
