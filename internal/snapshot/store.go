package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/model"
)

const (
	partialPrefix    = "batch_"
	consolidatedName = "fipe_catalog.json"
)

// Store reads and writes snapshot files inside one output directory.
type Store struct {
	dir string
}

// NewStore creates a snapshot store rooted at dir. The directory is created
// on the first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's output directory.
func (s *Store) Dir() string { return s.dir }

// SavePartial writes the cumulative result of one batch to a batch-indexed
// file and returns its path. The index is zero padded so that filename order
// matches batch order.
func (s *Store) SavePartial(result *model.ExtractionResult, batch int) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "snapshot: create output directory")
	}

	doc := partialDocument{
		Version: documentVersion,
		Batch:   batch,
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Data:    encode(result),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "snapshot: marshal batch %d", batch)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s%04d.json", partialPrefix, batch))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "snapshot: write %s", path)
	}

	periods, brands, models, yearModels, values := result.Counts()
	zap.L().Info("partial snapshot saved",
		zap.String("path", path),
		zap.Int("batch", batch),
		zap.Int("periods", periods),
		zap.Int("brands", brands),
		zap.Int("models", models),
		zap.Int("year_models", yearModels),
		zap.Int("values", values),
	)
	return path, nil
}

// LoadPartial reads one partial file back into an extraction result.
func (s *Store) LoadPartial(path string) (*model.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: read %s", path)
	}

	var doc partialDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "snapshot: parse %s", path)
	}
	if doc.Version != documentVersion {
		return nil, eris.Errorf("snapshot: %s has unsupported version %d", path, doc.Version)
	}

	return decode(doc.Data), nil
}

// ListPartials returns every partial file in the output directory, sorted by
// filename. A missing directory yields an empty list.
func (s *Store) ListPartials() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: list output directory")
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) > len(partialPrefix) && name[:len(partialPrefix)] == partialPrefix && filepath.Ext(name) == ".json" {
			paths = append(paths, filepath.Join(s.dir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// CleanupPartials removes every partial file and reports how many were
// deleted. Consolidation never calls this; removal is an explicit step.
func (s *Store) CleanupPartials() (int, error) {
	paths, err := s.ListPartials()
	if err != nil {
		return 0, err
	}
	for i, path := range paths {
		if err := os.Remove(path); err != nil {
			return i, eris.Wrapf(err, "snapshot: remove %s", path)
		}
	}
	if len(paths) > 0 {
		zap.L().Info("partial snapshots removed", zap.Int("count", len(paths)))
	}
	return len(paths), nil
}
