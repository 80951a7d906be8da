package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aweris/stacsync"
	"github.com/aweris/stacsync/internal/compression"
)

var featureExts = []string{".json", ".geojson"}

// IsFeatureFile reports whether name looks like a (possibly compressed)
// feature file.
func IsFeatureFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(compression.TrimExt(name)))
	for _, e := range featureExts {
		if ext == e {
			return true
		}
	}
	return false
}

// LocalStore implements Store on the local filesystem.
type LocalStore struct {
	decompressor *compression.Decompressor
	recursive    bool
}

var _ Store = (*LocalStore)(nil)

// Option configures a LocalStore.
type Option func(*LocalStore)

// WithRecursive makes Walk descend into subdirectories.
func WithRecursive(recursive bool) Option {
	return func(s *LocalStore) { s.recursive = recursive }
}

func NewLocalStore(decompressor *compression.Decompressor, opts ...Option) *LocalStore {
	s := &LocalStore{decompressor: decompressor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Walk returns files named explicitly, plus feature files found in the
// given directories, in lexical order per argument.
func (s *LocalStore) Walk(ctx context.Context, paths ...string) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && !s.recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if IsFeatureFile(d.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// Load reads one file and returns its features.
func (s *LocalStore) Load(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature file: %w", err)
	}
	data, err := s.decompressor.DecompressFile(path, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}

	var head struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if head.Type != "FeatureCollection" {
		f, err := stacsync.ParseFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []Entry{{Path: path, Feature: f}}, nil
	}

	entries := make([]Entry, 0, len(head.Features))
	for i, member := range head.Features {
		f, err := stacsync.ParseFeature(member)
		if err != nil {
			return nil, fmt.Errorf("%s: feature %d: %w", path, i, err)
		}
		entries = append(entries, Entry{Path: path, Index: i, Feature: f})
	}
	return entries, nil
}

// LoadAll walks paths and loads every feature.
func (s *LocalStore) LoadAll(ctx context.Context, paths ...string) ([]Entry, error) {
	files, err := s.Walk(ctx, paths...)
	if err != nil {
		return nil, err
	}
	var all []Entry
	for _, file := range files {
		entries, err := s.Load(ctx, file)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}
