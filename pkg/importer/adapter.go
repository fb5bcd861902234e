package importer

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

// Adapter turns one source file format into ordered records.
type Adapter interface {
	// ID returns the format name used in dataset_sources.format (e.g. "csv").
	ID() string
	// Description returns a human-readable description.
	Description() string
	// Extensions lists the file suffixes this format is picked for when a
	// source is a ZIP archive.
	Extensions() []string
	// Parse reads already-decoded UTF-8 text and returns the records in
	// source order. Blank texts are left for the caller to drop.
	Parse(r io.Reader, src Source) ([]dataset.Record, error)
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by format, or an error if not found.
func Get(format string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[format]
	if !ok {
		return nil, fmt.Errorf("unknown import format: %q", format)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
