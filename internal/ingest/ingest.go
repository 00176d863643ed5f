// Package ingest loads catalog records from external files: neighborhood
// boundaries from shapefiles, university registers from XLSX workbooks,
// and POI extracts from CSV. Malformed records are skipped and counted,
// never fatal.
package ingest

import (
	"strconv"
	"strings"
)

// Report summarizes one import run.
type Report struct {
	Processed int      `json:"processed"`
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *Report) skip(reason string) {
	r.Skipped++
	if len(r.Errors) < 20 {
		r.Errors = append(r.Errors, reason)
	}
}

// headerIndex maps lowercased column names to their positions.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheet exports often render counts as "12000.0".
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return v
}
