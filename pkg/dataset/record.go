package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrNoColumn is returned by Record accessors for unknown column names.
var ErrNoColumn = errors.New("no such column")

// Record is one CSV row with name-based field access. All records from
// the same file share one header index.
type Record struct {
	fields []string
	cols   map[string]int
}

// Field returns the raw string value of the named column.
func (r Record) Field(name string) (string, error) {
	i, ok := r.cols[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	return r.fields[i], nil
}

// Int parses the named column as a base-10 integer.
func (r Record) Int(name string) (int64, error) {
	raw, err := r.Field(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

// Float parses the named column as a float.
func (r Record) Float(name string) (float64, error) {
	raw, err := r.Field(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	return v, nil
}

// Columns returns the column names in sorted order.
func (r Record) Columns() []string {
	names := make([]string, 0, len(r.cols))
	for name := range r.cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
