package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/arwahdevops/fplsync/internal/tables"
)

// Origin tells the validator how raw field values were produced. Delimited
// rows carry only strings and need coercion; JSON values carry native types.
type Origin int

const (
	OriginJSON Origin = iota
	OriginDelimited
)

func (o Origin) String() string {
	if o == OriginDelimited {
		return "delimited"
	}
	return "json"
}

// RawRecord is one untyped staged record keyed by column name.
type RawRecord map[string]any

// Rejection is a record the validator dropped. Row is 1-based over data rows.
type Rejection struct {
	Row    int
	Reason string
	Raw    RawRecord
}

// ValidationResult partitions a record set: len(Valid)+Rejected == input length.
type ValidationResult struct {
	Valid    []tables.Record
	Rejected int
	// Samples holds at most the configured number of detailed rejections.
	Samples []Rejection
}

var errMissingRequired = errors.New("missing required column")

// FieldError pins a rejection to a column.
type FieldError struct {
	Column string
	Kind   tables.Kind
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("column %s (%s): %v", e.Column, e.Kind, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ValidateRecord checks raw against spec's columns and returns the typed record.
// Unknown fields are ignored.
func ValidateRecord(spec *tables.Spec, origin Origin, raw RawRecord) (tables.Record, error) {
	rec := make(tables.Record, len(spec.Columns))
	for _, col := range spec.Columns {
		v, present := raw[col.Name]
		if isNullish(v, present, origin) {
			if !col.Nullable {
				return nil, &FieldError{Column: col.Name, Kind: col.Kind, Err: errMissingRequired}
			}
			rec[col.Name] = nil
			continue
		}
		typed, err := coerce(col.Kind, origin, v)
		if err != nil {
			return nil, &FieldError{Column: col.Name, Kind: col.Kind, Err: err}
		}
		rec[col.Name] = typed
	}
	return rec, nil
}

// ValidateAll runs every record through ValidateRecord. maxDetails bounds
// Samples; the Rejected count is always complete.
func ValidateAll(spec *tables.Spec, origin Origin, raws []RawRecord, maxDetails int) ValidationResult {
	res := ValidationResult{Valid: make([]tables.Record, 0, len(raws))}
	for i, raw := range raws {
		rec, err := ValidateRecord(spec, origin, raw)
		if err != nil {
			res.Rejected++
			if len(res.Samples) < maxDetails {
				res.Samples = append(res.Samples, Rejection{Row: i + 1, Reason: err.Error(), Raw: raw})
			}
			continue
		}
		res.Valid = append(res.Valid, rec)
	}
	return res
}

func isNullish(v any, present bool, origin Origin) bool {
	if !present || v == nil {
		return true
	}
	// Hanya field kosong persis yang dianggap NULL; spasi tetap nilai.
	if origin == OriginDelimited {
		if s, ok := v.(string); ok && s == "" {
			return true
		}
	}
	return false
}

// timestampLayouts are tried in order. Zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD HH:MM:SS timestamp, got %q", s)
}

func coerce(kind tables.Kind, origin Origin, v any) (any, error) {
	switch kind {
	case tables.Integer:
		d, err := toDecimal(origin, v)
		if err != nil {
			return nil, err
		}
		n, err := d.Int64()
		if err != nil {
			return nil, fmt.Errorf("expected integer, got %s", d.String())
		}
		return n, nil
	case tables.Real:
		d, err := toDecimal(origin, v)
		if err != nil {
			return nil, err
		}
		f, err := d.Float64()
		if err != nil {
			return nil, fmt.Errorf("expected real number, got %s: %w", d.String(), err)
		}
		return f, nil
	case tables.Text:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case tables.Boolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			if origin != OriginDelimited {
				return nil, fmt.Errorf("expected boolean, got string %q", b)
			}
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			}
			return nil, fmt.Errorf("expected boolean, got %q", b)
		default:
			return nil, fmt.Errorf("expected boolean, got %T", v)
		}
	case tables.Timestamp:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected timestamp string, got %T", v)
		}
		t, err := parseTimestamp(s)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported column kind %s", kind)
	}
}

// toDecimal parses numeric input exactly so large identifiers keep every digit.
func toDecimal(origin Origin, v any) (*apd.Decimal, error) {
	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		if origin != OriginDelimited {
			return nil, fmt.Errorf("expected number, got string %q", n)
		}
		text = strings.TrimSpace(n)
	case float64:
		d := new(apd.Decimal)
		if _, err := d.SetFloat64(n); err != nil {
			return nil, fmt.Errorf("invalid number %v: %w", n, err)
		}
		return checkFinite(d, v)
	case int64:
		return apd.New(n, 0), nil
	case int:
		return apd.New(int64(n), 0), nil
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}

	d, _, err := apd.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("expected number, got %q", text)
	}
	return checkFinite(d, v)
}

func checkFinite(d *apd.Decimal, v any) (*apd.Decimal, error) {
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("expected finite number, got %v", v)
	}
	return d, nil
}
