// Package store reads STAC features from the local filesystem.
//
// A feature file holds either one STAC Item or a GeoJSON FeatureCollection,
// optionally compressed with zstd (.zst) or gzip (.gz). Directories are
// expanded into the feature files they contain.
package store

import (
	"context"

	"github.com/aweris/stacsync"
)

// Entry is a feature together with the file it came from.
type Entry struct {
	Path    string
	Index   int // position inside a FeatureCollection, 0 for single items
	Feature stacsync.Feature
}

// Store loads features.
type Store interface {
	// Walk expands files and directories into feature file paths.
	Walk(ctx context.Context, paths ...string) ([]string, error)

	// Load returns the features in one file.
	Load(ctx context.Context, path string) ([]Entry, error)

	// LoadAll walks paths and loads every feature found.
	LoadAll(ctx context.Context, paths ...string) ([]Entry, error)
}
