// CLAUDE:SUMMARY Ordered immutable record datasets loaded from manifest + CSV or gob, searched with the word-subset matcher.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hazyhaar/voxsearch/pkg/match"
)

// Record is one searchable text item. Its identity is Index, its position in
// the dataset; two records may share the same text.
type Record struct {
	Index    int               `json:"index"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Dataset is one loaded, immutable, ordered list of records.
type Dataset struct {
	Manifest *Manifest `json:"manifest"`
	Records  []Record  `json:"-"`
	matcher  match.Matcher
}

// New builds a dataset from texts in the given order. Empty texts are skipped.
func New(m *Manifest, texts []string) *Dataset {
	d := &Dataset{Manifest: m, matcher: match.New(m.Format.Normalize)}
	for _, t := range texts {
		d.add(t, nil)
	}
	return d
}

// LoadDataset reads a manifest.yaml and loads its records from gob or csv.
func LoadDataset(dir string) (*Dataset, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		Manifest: manifest,
		matcher:  match.New(manifest.Format.Normalize),
	}

	// Gob takes priority over CSV.
	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		if err := d.loadGob(gobPath); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", manifest.ID, err)
		}
		return d, nil
	}

	dataPath := filepath.Join(dir, manifest.DataFile)
	if err := d.loadCSV(dataPath); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", manifest.ID, err)
	}
	return d, nil
}

func (d *Dataset) add(text string, meta map[string]string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	d.Records = append(d.Records, Record{Index: len(d.Records), Text: text, Metadata: meta})
}

func (d *Dataset) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	// Transcode non-UTF-8 encodings declared in the manifest.
	var reader io.Reader = f
	if enc := d.Manifest.Format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := d.Manifest.Format.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var header []string
	if d.Manifest.Format.HasHeader {
		header, err = r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	textIdx := 0
	if col := d.Manifest.Format.TextColumn; col != "" && header != nil {
		textIdx = indexOf(header, col)
		if textIdx < 0 {
			return fmt.Errorf("text column %q not found in header %v", col, header)
		}
	}

	metaIdx := make(map[string]int)
	for _, mc := range d.Manifest.MetadataCols {
		if i := indexOf(header, mc.Column); i >= 0 {
			metaIdx[mc.Name] = i
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if textIdx >= len(row) {
			continue
		}

		var meta map[string]string
		if len(metaIdx) > 0 {
			meta = make(map[string]string, len(metaIdx))
			for name, idx := range metaIdx {
				if idx < len(row) {
					meta[name] = strings.TrimSpace(row[idx])
				}
			}
		}
		d.add(row[textIdx], meta)
	}
	return nil
}

// Texts returns the record texts in dataset order.
func (d *Dataset) Texts() []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Text
	}
	return out
}

// Search returns every record matching query, in dataset order.
// An empty query returns all records.
func (d *Dataset) Search(query string) []Record {
	q := d.matcher.Query(query)
	out := make([]Record, 0, len(d.Records))
	for _, r := range d.Records {
		if q.Matches(r.Text) {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeQuery applies this dataset's normalizer to a query.
func (d *Dataset) NormalizeQuery(query string) string {
	return d.matcher.Query(query).Normalized()
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
