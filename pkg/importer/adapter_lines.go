// CLAUDE:SUMMARY Import adapter for plain text lists: one record per non-comment line.
package importer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

func init() {
	Register(&linesAdapter{})
}

type linesAdapter struct{}

func (a *linesAdapter) ID() string           { return "lines" }
func (a *linesAdapter) Description() string  { return "Plain text, one record per line (# starts a comment)" }
func (a *linesAdapter) Extensions() []string { return []string{".txt", ".lst"} }

func (a *linesAdapter) Parse(r io.Reader, _ Source) ([]dataset.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var records []dataset.Record
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		records = append(records, dataset.Record{Text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return records, nil
}
