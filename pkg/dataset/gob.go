// CLAUDE:SUMMARY Gob serialization of ordered record slices for fast dataset loading.
package dataset

import (
	"encoding/gob"
	"fmt"
	"os"
)

// loadGob decodes records from a gob file. Indexes are reassigned from file
// order so a hand-edited gob cannot break positional identity.
func (d *Dataset) loadGob(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var records []Record
	if err := gob.NewDecoder(f).Decode(&records); err != nil {
		return fmt.Errorf("decode gob: %w", err)
	}
	d.Records = d.Records[:0]
	for _, r := range records {
		d.add(r.Text, r.Metadata)
	}
	return nil
}

// SaveGob serializes records to a gob file at path.
func SaveGob(records []Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(records); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
