// Package config defines the immutable crawl configuration and its
// construction paths.
//
// A runnable engine can only be configured through Builder (or the YAML
// file loader, which feeds a Builder). Invalid combinations are rejected
// at build time with sentinel errors so a crawl never starts from a
// partially-configured state.
package config
