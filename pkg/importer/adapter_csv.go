// CLAUDE:SUMMARY Import adapter for delimited files: one record per row, text from a named or first column, other columns kept as metadata.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

func init() {
	Register(&csvAdapter{})
}

type csvAdapter struct{}

func (a *csvAdapter) ID() string           { return "csv" }
func (a *csvAdapter) Description() string  { return "Delimited text, one record per row" }
func (a *csvAdapter) Extensions() []string { return []string{".csv", ".tsv", ".txt"} }

// Parse reads rows with the source delimiter. With a header, the text comes
// from TextColumn (or the first column) and every other named column becomes
// record metadata.
func (a *csvAdapter) Parse(r io.Reader, src Source) ([]dataset.Record, error) {
	cr := csv.NewReader(r)
	if src.Delimiter != "" {
		cr.Comma = []rune(src.Delimiter)[0]
	}
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	textIdx := 0
	var header []string
	if src.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		header = make([]string, len(h))
		for i := range h {
			header[i] = strings.TrimSpace(h[i])
		}
		if src.TextColumn != "" {
			textIdx = -1
			for i, name := range header {
				if strings.EqualFold(name, src.TextColumn) {
					textIdx = i
					break
				}
			}
			if textIdx < 0 {
				return nil, fmt.Errorf("column %q not found in header %v", src.TextColumn, header)
			}
		}
	}

	var records []dataset.Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if textIdx >= len(row) {
			continue
		}

		var meta map[string]string
		for i, name := range header {
			if i == textIdx || i >= len(row) || name == "" {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				if meta == nil {
					meta = make(map[string]string)
				}
				meta[name] = v
			}
		}
		records = append(records, dataset.Record{Text: row[textIdx], Metadata: meta})
	}
	return records, nil
}
