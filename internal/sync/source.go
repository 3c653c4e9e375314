package sync

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/arwahdevops/fplsync/internal/config"
	"github.com/arwahdevops/fplsync/internal/fingerprint"
	"github.com/arwahdevops/fplsync/internal/tables"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StagedRecordSet is one table's source file, read once. Fingerprint is
// computed over exactly the bytes that were parsed.
type StagedRecordSet struct {
	Table       string
	Path        string
	Origin      Origin
	Rows        []RawRecord
	Fingerprint string
}

// SourceLocator maps a table onto its staged file.
type SourceLocator struct {
	DataDir string
	Format  config.SourceFormat
}

func (l SourceLocator) ext() string {
	if l.Format == config.SourceJSON {
		return "json"
	}
	return "csv"
}

func (l SourceLocator) origin() Origin {
	if l.Format == config.SourceJSON {
		return OriginJSON
	}
	return OriginDelimited
}

// Path returns where spec's staged file is expected.
func (l SourceLocator) Path(spec *tables.Spec) string {
	return spec.SourcePath(l.DataDir, l.ext())
}

// Fingerprint hashes spec's staged file. A missing file wraps ErrSourceMissing.
func (l SourceLocator) Fingerprint(spec *tables.Spec) (string, error) {
	path := l.Path(spec)
	h, err := fingerprint.File(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrSourceMissing)
		}
		return "", fmt.Errorf("failed to fingerprint %s: %w", path, err)
	}
	return h, nil
}

// Load reads and parses spec's staged file.
func (l SourceLocator) Load(spec *tables.Spec) (*StagedRecordSet, error) {
	path := l.Path(spec)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrSourceMissing)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	set := &StagedRecordSet{
		Table:       spec.Name,
		Path:        path,
		Origin:      l.origin(),
		Fingerprint: fingerprint.Bytes(data),
	}

	if set.Origin == OriginJSON {
		set.Rows, err = parseJSON(data)
	} else {
		set.Rows, err = parseCSV(data)
	}
	if err != nil {
		return nil, &ParseError{Table: spec.Name, Path: path, Err: err}
	}
	return set, nil
}

// parseCSV reads a header row followed by data rows. Every row is keyed by
// the header; a row with a different field count is a parse failure.
func parseCSV(data []byte) ([]RawRecord, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []RawRecord
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(RawRecord, len(header))
		for i, name := range header {
			row[name] = fields[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseJSON accepts a single top-level array of objects. Numbers stay as
// json.Number so the validator sees their exact text.
func parseJSON(data []byte) ([]RawRecord, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.New("expected a JSON array of objects")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []RawRecord
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("expected a JSON array of objects: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level array")
	}
	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("element %d is null, expected an object", i)
		}
	}
	return rows, nil
}
