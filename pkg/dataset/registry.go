package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrDatasetNotFound is returned for unknown dataset IDs.
var ErrDatasetNotFound = errors.New("dataset not found")

// Registry holds all loaded datasets and serves search queries.
type Registry struct {
	mu          sync.RWMutex
	datasets    map[string]*Dataset
	datasetsDir string
	logger      *slog.Logger
}

// NewRegistry creates a registry for the given directory. An empty dir means
// only the built-in dataset is served.
func NewRegistry(datasetsDir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		datasets:    map[string]*Dataset{BuiltinID: Builtin()},
		datasetsDir: datasetsDir,
		logger:      logger,
	}
}

// Load registers the built-in dataset and every subdirectory of the datasets
// dir that has a manifest.yaml. Directories are loaded concurrently. A dataset
// on disk with the built-in ID replaces the built-in one.
func (r *Registry) Load(ctx context.Context) error {
	dirs, err := r.scan()
	if err != nil {
		return err
	}

	loaded := make([]*Dataset, len(dirs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, dir := range dirs {
		g.Go(func() error {
			d, err := LoadDataset(dir)
			if err != nil {
				return fmt.Errorf("load dataset %s: %w", filepath.Base(dir), err)
			}
			loaded[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	next := map[string]*Dataset{BuiltinID: Builtin()}
	for _, d := range loaded {
		if _, dup := next[d.Manifest.ID]; dup && d.Manifest.ID != BuiltinID {
			r.logger.Warn("duplicate dataset id, last one wins", "dataset", d.Manifest.ID)
		}
		next[d.Manifest.ID] = d
	}

	r.mu.Lock()
	r.datasets = next
	r.mu.Unlock()
	return nil
}

func (r *Registry) scan() ([]string, error) {
	if r.datasetsDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.datasetsDir)
	if errors.Is(err, os.ErrNotExist) {
		r.logger.Info("datasets dir missing, serving built-in dataset only", "dir", r.datasetsDir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read datasets dir %s: %w", r.datasetsDir, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.datasetsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); err != nil {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// Reload reloads all datasets from disk (hot reload). On failure the
// previously loaded datasets stay in place.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Get returns the dataset with the given ID.
func (r *Registry) Get(id string) (*Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDatasetNotFound, id)
	}
	return d, nil
}

// SearchResult is the response for one filter pass over a dataset.
type SearchResult struct {
	Dataset    string   `json:"dataset"`
	Query      string   `json:"query"`
	Normalized string   `json:"normalized"`
	Total      int      `json:"total"`
	Records    []Record `json:"records"`
}

// Search filters the dataset with the given ID.
func (r *Registry) Search(id, query string) (*SearchResult, error) {
	d, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Dataset:    d.Manifest.ID,
		Query:      query,
		Normalized: d.NormalizeQuery(query),
		Total:      len(d.Records),
		Records:    d.Search(query),
	}, nil
}

// DatasetInfo is the public metadata for a loaded dataset.
type DatasetInfo struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
	SourceURL   string `json:"source_url,omitempty"`
	License     string `json:"license"`
	Normalize   string `json:"normalize"`
	Records     int    `json:"records"`
}

// ListDatasets returns metadata for all loaded datasets, sorted by ID.
func (r *Registry) ListDatasets() []DatasetInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]DatasetInfo, 0, len(r.datasets))
	for _, d := range r.datasets {
		mode := d.Manifest.Format.Normalize
		if mode == "" {
			mode = "spoken"
		}
		infos = append(infos, DatasetInfo{
			ID:          d.Manifest.ID,
			Version:     d.Manifest.Version,
			Description: d.Manifest.Description,
			Source:      d.Manifest.Source,
			SourceURL:   d.Manifest.SourceURL,
			License:     d.Manifest.License,
			Normalize:   mode,
			Records:     len(d.Records),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// DatasetCount returns the number of loaded datasets.
func (r *Registry) DatasetCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.datasets)
}

// TotalRecords returns the number of records across all datasets.
func (r *Registry) TotalRecords() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, d := range r.datasets {
		total += len(d.Records)
	}
	return total
}
