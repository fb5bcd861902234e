package importer

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSourceNotFound is returned for dataset ids without a registered source.
var ErrSourceNotFound = errors.New("source not found")

// Source represents a row from the dataset_sources table: where a dataset
// comes from and how to read it.
type Source struct {
	DatasetID   string
	Format      string
	Description string
	SourceURL   string
	License     string
	Delimiter   string
	Encoding    string
	HasHeader   bool
	TextColumn  string
	Normalize   string
	LastCheck   *int64
	LastStatus  *int
	LastError   *string
	LastImport  *int64
	LastRecords *int
	UpdatedAt   int64
}

// SourceDB manages the dataset_sources SQLite table.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// dataset_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS dataset_sources (
		dataset_id   TEXT PRIMARY KEY,
		format       TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		source_url   TEXT NOT NULL,
		license      TEXT NOT NULL DEFAULT '',
		delimiter    TEXT NOT NULL DEFAULT '',
		encoding     TEXT NOT NULL DEFAULT '',
		has_header   INTEGER NOT NULL DEFAULT 0,
		text_column  TEXT NOT NULL DEFAULT '',
		normalize    TEXT NOT NULL DEFAULT '',
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		last_import  INTEGER,
		last_records INTEGER,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dataset_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the SQLite connection.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Add inserts or replaces the definition of a source. Check and import
// history of an existing row is kept.
func (s *SourceDB) Add(src Source) error {
	if src.DatasetID == "" || src.SourceURL == "" {
		return fmt.Errorf("add source: dataset id and url are required")
	}
	if _, err := Get(src.Format); err != nil {
		return fmt.Errorf("add source %s: %w", src.DatasetID, err)
	}

	const q = `INSERT INTO dataset_sources
		(dataset_id, format, description, source_url, license, delimiter, encoding,
		 has_header, text_column, normalize, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataset_id) DO UPDATE SET
			format = excluded.format,
			description = excluded.description,
			source_url = excluded.source_url,
			license = excluded.license,
			delimiter = excluded.delimiter,
			encoding = excluded.encoding,
			has_header = excluded.has_header,
			text_column = excluded.text_column,
			normalize = excluded.normalize,
			updated_at = excluded.updated_at`

	_, err := s.db.Exec(q, src.DatasetID, src.Format, src.Description, src.SourceURL, src.License,
		src.Delimiter, src.Encoding, src.HasHeader, src.TextColumn, src.Normalize, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add source %s: %w", src.DatasetID, err)
	}
	return nil
}

const selectColumns = `dataset_id, format, description, source_url, license, delimiter,
	encoding, has_header, text_column, normalize, last_check, last_status, last_error,
	last_import, last_records, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (Source, error) {
	var src Source
	err := row.Scan(&src.DatasetID, &src.Format, &src.Description, &src.SourceURL, &src.License,
		&src.Delimiter, &src.Encoding, &src.HasHeader, &src.TextColumn, &src.Normalize,
		&src.LastCheck, &src.LastStatus, &src.LastError, &src.LastImport, &src.LastRecords,
		&src.UpdatedAt)
	return src, err
}

// Get returns the source registered for a dataset id.
func (s *SourceDB) Get(datasetID string) (Source, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM dataset_sources WHERE dataset_id = ?`, datasetID)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("%w: %q", ErrSourceNotFound, datasetID)
	}
	if err != nil {
		return Source{}, fmt.Errorf("get source %s: %w", datasetID, err)
	}
	return src, nil
}

// SetURL updates the source URL for a dataset and records the change timestamp.
func (s *SourceDB) SetURL(datasetID, url string) error {
	res, err := s.db.Exec(
		`UPDATE dataset_sources SET source_url = ?, updated_at = ? WHERE dataset_id = ?`,
		url, time.Now().Unix(), datasetID,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", datasetID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSourceNotFound, datasetID)
	}
	return nil
}

// Remove deletes a source definition.
func (s *SourceDB) Remove(datasetID string) error {
	res, err := s.db.Exec(`DELETE FROM dataset_sources WHERE dataset_id = ?`, datasetID)
	if err != nil {
		return fmt.Errorf("remove source %s: %w", datasetID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrSourceNotFound, datasetID)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(datasetID string, status int, checkErr string) error {
	now := time.Now().Unix()
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE dataset_sources SET last_check = ?, last_status = ?, last_error = ? WHERE dataset_id = ?`,
		now, status, errPtr, datasetID,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", datasetID, err)
	}
	return nil
}

// RecordImport persists the time and size of a successful import.
func (s *SourceDB) RecordImport(datasetID string, records int) error {
	_, err := s.db.Exec(
		`UPDATE dataset_sources SET last_import = ?, last_records = ? WHERE dataset_id = ?`,
		time.Now().Unix(), records, datasetID,
	)
	if err != nil {
		return fmt.Errorf("record import for %s: %w", datasetID, err)
	}
	return nil
}

// ListSources returns all rows from dataset_sources ordered by dataset_id.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT ` + selectColumns + ` FROM dataset_sources ORDER BY dataset_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
