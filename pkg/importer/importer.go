// CLAUDE:SUMMARY Import pipeline: fetch a registered source, unpack it, parse it with its format adapter and write data.gob + manifest.yaml.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

// Importer writes imported datasets under a datasets directory.
type Importer struct {
	outputDir string
	logger    *slog.Logger
}

// New creates an importer writing into outputDir.
func New(outputDir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{outputDir: outputDir, logger: logger}
}

// Result summarizes one import.
type Result struct {
	DatasetID string
	Dir       string
	Records   int
}

// Run imports src into <outputDir>/<src.DatasetID>/ as data.gob plus a
// manifest.yaml that the dataset registry can load.
func (im *Importer) Run(ctx context.Context, src Source) (*Result, error) {
	adapter, err := Get(src.Format)
	if err != nil {
		return nil, err
	}
	if src.DatasetID == "" {
		return nil, fmt.Errorf("source has no dataset id")
	}

	dlDir := filepath.Join(im.outputDir, "_download", src.DatasetID)
	if err := ensureDir(dlDir); err != nil {
		return nil, err
	}
	defer os.RemoveAll(dlDir)

	start := time.Now()
	raw := filepath.Join(dlDir, "source")
	im.logger.Info("fetching source", "dataset", src.DatasetID, "url", src.SourceURL)
	if err := fetch(ctx, src.SourceURL, raw); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	dataPath := raw
	if isZip(raw) {
		files, err := unzipFile(raw, dlDir)
		if err != nil {
			return nil, fmt.Errorf("unzip: %w", err)
		}
		p, ok := pickFile(files, adapter.Extensions())
		if !ok {
			return nil, fmt.Errorf("no %s file in archive", strings.Join(adapter.Extensions(), "/"))
		}
		dataPath = p
	}

	records, err := im.parse(dataPath, adapter, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Format, err)
	}

	dir := filepath.Join(im.outputDir, src.DatasetID)
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	if err := dataset.SaveGob(records, filepath.Join(dir, "data.gob")); err != nil {
		return nil, fmt.Errorf("save gob: %w", err)
	}

	err = dataset.WriteManifest(filepath.Join(dir, "manifest.yaml"), &dataset.Manifest{
		ID:          src.DatasetID,
		Version:     time.Now().UTC().Format("2006-01-02"),
		Description: src.Description,
		Source:      "import:" + src.Format,
		SourceURL:   src.SourceURL,
		License:     src.License,
		DataFile:    "data.gob",
		Format:      dataset.FormatSpec{Normalize: src.Normalize},
	})
	if err != nil {
		return nil, err
	}

	im.logger.Info("import complete",
		"dataset", src.DatasetID,
		"records", len(records),
		"duration", time.Since(start),
	)
	return &Result{DatasetID: src.DatasetID, Dir: dir, Records: len(records)}, nil
}

// parse decodes the file and keeps the non-blank records with dense indexes.
func (im *Importer) parse(path string, adapter Adapter, src Source) ([]dataset.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decodeReader(f, src.Encoding)
	if err != nil {
		return nil, err
	}
	parsed, err := adapter.Parse(r, src)
	if err != nil {
		return nil, err
	}

	records := make([]dataset.Record, 0, len(parsed))
	for _, rec := range parsed {
		rec.Text = strings.TrimSpace(rec.Text)
		if rec.Text == "" {
			continue
		}
		rec.Index = len(records)
		records = append(records, rec)
	}
	return records, nil
}
