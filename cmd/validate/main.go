// Command validate performs data integrity checks on an OWID COVID-19 CSV
// before it is pointed at the dashboard: header coverage, row-level sanity,
// duplicate observations, and consistency of the aggregate views built from it.
//
// Usage:
//
//	go run ./cmd/validate -csv data/owid-covid-data.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
)

// maxFullyVaccinatedPerHundred tolerates territories that vaccinate
// non-residents and so report more than 100 per hundred.
const maxFullyVaccinatedPerHundred = 200

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the OWID COVID-19 CSV file")
	maxErrors := flag.Int("max-errors", 20, "maximum errors printed per phase")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*csvPath, *maxErrors))
}

func run(csvPath string, maxErrors int) int {
	fmt.Println("=== COVID-19 Dataset Integrity Validation ===")
	fmt.Println()

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open dataset: %v\n", err)
		return 1
	}
	table, err := domain.ParseCSV(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(table),
		validateRows(table),
		validateUniqueness(table),
		validateAggregates(table),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	latest := domain.NoDateSentinel
	if d, ok := table.LatestDate(); ok {
		latest = d.Format(domain.DateLayout)
	}
	fmt.Printf("Rows: %d, latest date: %s, latest-date rows: %d\n", table.Len(), latest, len(table.LatestRows()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateSchema checks that every column the dashboard reads is present and
// that the file has data rows.
func validateSchema(t domain.Table) *phase {
	p := &phase{name: "Phase 1: Schema coverage"}
	if err := t.Require(domain.KnownColumns...); err != nil {
		p.errorf("%v", err)
	}
	if t.Len() == 0 {
		p.errorf("no data rows")
	}
	return p
}

// validateRows flags values that cannot be right for a cumulative epidemic series.
func validateRows(t domain.Table) *phase {
	p := &phase{name: "Phase 2: Row-level sanity"}
	for i, row := range t.Rows {
		line := i + 2
		checkNonNegative(p, line, row.Location, domain.ColTotalCases, row.TotalCases)
		checkNonNegative(p, line, row.Location, domain.ColTotalDeaths, row.TotalDeaths)
		checkNonNegative(p, line, row.Location, domain.ColTotalVaccinations, row.TotalVaccinations)
		checkNonNegative(p, line, row.Location, domain.ColPopulation, row.Population)

		if row.Location == "" {
			p.errorf("line %d: empty location", line)
		}
		if row.TotalCases != nil && row.TotalDeaths != nil && *row.TotalDeaths > *row.TotalCases {
			p.errorf("line %d (%s): total_deaths %.0f exceeds total_cases %.0f",
				line, row.Location, *row.TotalDeaths, *row.TotalCases)
		}
		if v := row.PeopleFullyVaccinatedPerHundred; v != nil && (*v < 0 || *v > maxFullyVaccinatedPerHundred) {
			p.errorf("line %d (%s): %s out of range: %g",
				line, row.Location, domain.ColPeopleFullyVaccinatedPerHundred, *v)
		}
	}
	return p
}

func checkNonNegative(p *phase, line int, location, column string, v *float64) {
	if v != nil && *v < 0 {
		p.errorf("line %d (%s): negative %s: %g", line, location, column, *v)
	}
}

// validateUniqueness checks that each (date, location) pair appears once.
// Duplicates would be double-counted by every aggregate.
func validateUniqueness(t domain.Table) *phase {
	p := &phase{name: "Phase 3: Unique date/location pairs"}
	type key struct {
		date     int64
		location string
	}
	seen := make(map[key]int, t.Len())
	for i, row := range t.Rows {
		k := key{date: row.Date.Unix(), location: row.Location}
		if first, ok := seen[k]; ok {
			p.errorf("line %d duplicates line %d: %s on %s",
				i+2, first, row.Location, row.Date.Format(domain.DateLayout))
			continue
		}
		seen[k] = i + 2
	}
	return p
}

// validateAggregates builds every dashboard view from the table and checks
// the invariants they promise.
func validateAggregates(t domain.Table) *phase {
	p := &phase{name: "Phase 4: Aggregate consistency"}

	if trend, err := domain.DailyTrend(t); err != nil {
		p.errorf("trend: %v", err)
	} else if !slices.IsSortedFunc(trend, func(a, b domain.TrendPoint) int { return a.Date.Compare(b.Date) }) {
		p.errorf("trend: points not in date order")
	}

	if leaders, err := domain.VaccinationLeaders(t); err != nil {
		p.errorf("vaccination: %v", err)
	} else {
		if len(leaders) > domain.LeaderboardSize {
			p.errorf("vaccination: %d entries, limit %d", len(leaders), domain.LeaderboardSize)
		}
		for i := 1; i < len(leaders); i++ {
			if leaders[i].PeopleFullyVaccinatedPerHundred > leaders[i-1].PeopleFullyVaccinatedPerHundred {
				p.errorf("vaccination: entry %d (%s) ranks above a lower value", i, leaders[i].Location)
			}
		}
	}

	if geo, err := domain.CompareGeography(t); err != nil {
		p.errorf("geographic: %v", err)
	} else {
		if len(geo.Points) == 0 {
			p.errorf("geographic: no latest-date rows with positive gdp, cases per million and population")
		}
		if len(geo.Labeled) > domain.GeoLabelCount {
			p.errorf("geographic: %d labels, limit %d", len(geo.Labeled), domain.GeoLabelCount)
		}
	}

	summary, err := domain.Summarize(t)
	if err != nil {
		p.errorf("summary: %v", err)
	} else if summary.CountriesReported != len(t.LatestRows()) {
		p.errorf("summary: countries_reported %d, latest-date rows %d",
			summary.CountriesReported, len(t.LatestRows()))
	}
	return p
}
