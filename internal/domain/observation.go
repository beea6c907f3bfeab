package domain

import (
	"slices"
	"time"
)

// DateLayout is the canonical calendar-date format used in the dataset and in
// every rendered date.
const DateLayout = "2006-01-02"

// Column names read from the OWID CSV header.
const (
	ColDate                            = "date"
	ColLocation                        = "location"
	ColTotalCases                      = "total_cases"
	ColNewCases                        = "new_cases"
	ColTotalDeaths                     = "total_deaths"
	ColTotalVaccinations               = "total_vaccinations"
	ColPeopleFullyVaccinatedPerHundred = "people_fully_vaccinated_per_hundred"
	ColGDPPerCapita                    = "gdp_per_capita"
	ColPopulation                      = "population"
	ColTotalCasesPerMillion            = "total_cases_per_million"
)

// KnownColumns is the column set the dashboard understands, in header order.
var KnownColumns = []string{
	ColDate,
	ColLocation,
	ColTotalCases,
	ColNewCases,
	ColTotalDeaths,
	ColTotalVaccinations,
	ColPeopleFullyVaccinatedPerHundred,
	ColGDPPerCapita,
	ColPopulation,
	ColTotalCasesPerMillion,
}

// Observation is one location on one calendar day. Numeric fields are nil
// when the source cell is empty or unparseable.
type Observation struct {
	Date     time.Time
	Location string

	TotalCases                      *float64
	NewCases                        *float64
	TotalDeaths                     *float64
	TotalVaccinations               *float64
	PeopleFullyVaccinatedPerHundred *float64
	GDPPerCapita                    *float64
	Population                      *float64
	TotalCasesPerMillion            *float64
}

// Table is a parsed, date-normalized dataset. It is treated as immutable once
// built; a reload replaces the whole value.
type Table struct {
	Rows []Observation

	// Columns lists the known columns present in the source header.
	Columns []string

	// FetchedAt records when the table was loaded. Zero for fallback tables.
	FetchedAt time.Time
}

// EmptyTable returns a table with no rows that still carries the full known
// column set, so aggregators see "no data" instead of "missing columns".
func EmptyTable() Table {
	return Table{Columns: slices.Clone(KnownColumns)}
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Has reports whether the column was present in the source header.
func (t Table) Has(column string) bool {
	return slices.Contains(t.Columns, column)
}

// Require returns a *MissingColumnsError naming every absent column, or nil.
func (t Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingColumnsError{Columns: missing}
}

// LatestDate returns the maximum date in the table. ok is false for an empty table.
func (t Table) LatestDate() (latest time.Time, ok bool) {
	for i := range t.Rows {
		if !ok || t.Rows[i].Date.After(latest) {
			latest = t.Rows[i].Date
			ok = true
		}
	}
	return latest, ok
}

// LatestRows returns the rows whose date equals the maximum date, in source order.
func (t Table) LatestRows() []Observation {
	latest, ok := t.LatestDate()
	if !ok {
		return nil
	}
	var out []Observation
	for i := range t.Rows {
		if t.Rows[i].Date.Equal(latest) {
			out = append(out, t.Rows[i])
		}
	}
	return out
}
