package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when normalizing the date column. OWID
// publishes plain dates; the timestamp forms cover re-exported files.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseCSV reads an OWID CSV document into a Table. The header is validated
// once: date and location must be present, the remaining known columns are
// optional and recorded in Table.Columns. Unknown columns are ignored.
func ParseCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, errors.New("parse csv: empty document")
		}
		return Table{}, fmt.Errorf("parse csv header: %w", err)
	}

	idx, columns, err := indexHeader(header)
	if err != nil {
		return Table{}, err
	}

	table := Table{Columns: columns}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Table{}, fmt.Errorf("parse csv line %d: %w", line, err)
		}

		obs, err := parseRecord(rec, idx)
		if err != nil {
			return Table{}, fmt.Errorf("parse csv line %d: %w", line, err)
		}
		table.Rows = append(table.Rows, obs)
	}

	return table, nil
}

// indexHeader maps known column names to their position in the header.
func indexHeader(header []string) (map[string]int, []string, error) {
	idx := make(map[string]int, len(KnownColumns))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	var missing []string
	for _, c := range []string{ColDate, ColLocation} {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("parse csv header: %w", &MissingColumnsError{Columns: missing})
	}

	known := make(map[string]int, len(KnownColumns))
	columns := make([]string, 0, len(KnownColumns))
	for _, c := range KnownColumns {
		if i, ok := idx[c]; ok {
			known[c] = i
			columns = append(columns, c)
		}
	}
	return known, columns, nil
}

func parseRecord(rec []string, idx map[string]int) (Observation, error) {
	field := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	date, err := parseDate(field(ColDate))
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		Date:                            date,
		Location:                        strings.TrimSpace(field(ColLocation)),
		TotalCases:                      parseNullableFloat(field(ColTotalCases)),
		NewCases:                        parseNullableFloat(field(ColNewCases)),
		TotalDeaths:                     parseNullableFloat(field(ColTotalDeaths)),
		TotalVaccinations:               parseNullableFloat(field(ColTotalVaccinations)),
		PeopleFullyVaccinatedPerHundred: parseNullableFloat(field(ColPeopleFullyVaccinatedPerHundred)),
		GDPPerCapita:                    parseNullableFloat(field(ColGDPPerCapita)),
		Population:                      parseNullableFloat(field(ColPopulation)),
		TotalCasesPerMillion:            parseNullableFloat(field(ColTotalCasesPerMillion)),
	}, nil
}

// parseDate normalizes a date cell to midnight UTC.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseNullableFloat parses a numeric cell, returning nil for empty,
// unparseable, NaN or infinite values.
func parseNullableFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
