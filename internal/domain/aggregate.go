package domain

import (
	"cmp"
	"slices"
	"time"
)

const (
	// RollingWindow is the number of consecutive daily points averaged by the trend view.
	RollingWindow = 7

	// LeaderboardSize caps the vaccination leaderboard.
	LeaderboardSize = 15

	// GeoLabelCount is the number of geo points annotated on the scatter chart.
	GeoLabelCount = 5

	// NoDateSentinel is reported as last_updated when the table is empty.
	NoDateSentinel = "N/A"
)

// TrendPoint is the global new-case total for one date. RollingAvg is nil
// until RollingWindow points are available.
type TrendPoint struct {
	Date       time.Time
	NewCases   float64
	RollingAvg *float64
}

// VaccinationLeader is one entry of the latest-date vaccination leaderboard.
type VaccinationLeader struct {
	Location                        string
	PeopleFullyVaccinatedPerHundred float64
}

// GeoPoint is one location in the GDP-vs-cases comparison.
type GeoPoint struct {
	Location             string
	GDPPerCapita         float64
	TotalCasesPerMillion float64
	Population           float64
}

// GeoComparison holds the filtered scatter dataset and the subset to label.
type GeoComparison struct {
	Points  []GeoPoint
	Labeled []GeoPoint
}

// Summary is the latest-date headline view served by the page and the API.
type Summary struct {
	TotalCases        int64  `json:"total_cases"`
	TotalDeaths       int64  `json:"total_deaths"`
	TotalVaccinations int64  `json:"total_vaccinations"`
	CountriesReported int    `json:"countries_reported"`
	LastUpdated       string `json:"last_updated"`
}

// DailyTrend sums new_cases across all locations per date, ordered by date,
// and attaches a trailing RollingWindow-point mean. Null new_cases count as 0.
func DailyTrend(t Table) ([]TrendPoint, error) {
	if err := t.Require(ColNewCases); err != nil {
		return nil, err
	}

	sums := make(map[int64]float64)
	for i := range t.Rows {
		key := t.Rows[i].Date.Unix()
		sums[key] += valueOrZero(t.Rows[i].NewCases)
	}

	points := make([]TrendPoint, 0, len(sums))
	for key, total := range sums {
		points = append(points, TrendPoint{Date: time.Unix(key, 0).UTC(), NewCases: total})
	}
	slices.SortFunc(points, func(a, b TrendPoint) int { return a.Date.Compare(b.Date) })

	var window float64
	for i := range points {
		window += points[i].NewCases
		if i >= RollingWindow {
			window -= points[i-RollingWindow].NewCases
		}
		if i >= RollingWindow-1 {
			avg := window / RollingWindow
			points[i].RollingAvg = &avg
		}
	}
	return points, nil
}

// VaccinationLeaders ranks latest-date rows by people_fully_vaccinated_per_hundred,
// descending, and keeps the first LeaderboardSize. Rows with a null value are
// excluded; ties keep source order.
func VaccinationLeaders(t Table) ([]VaccinationLeader, error) {
	if err := t.Require(ColPeopleFullyVaccinatedPerHundred); err != nil {
		return nil, err
	}

	var leaders []VaccinationLeader
	for _, row := range t.LatestRows() {
		if row.PeopleFullyVaccinatedPerHundred == nil {
			continue
		}
		leaders = append(leaders, VaccinationLeader{
			Location:                        row.Location,
			PeopleFullyVaccinatedPerHundred: *row.PeopleFullyVaccinatedPerHundred,
		})
	}

	slices.SortStableFunc(leaders, func(a, b VaccinationLeader) int {
		return cmp.Compare(b.PeopleFullyVaccinatedPerHundred, a.PeopleFullyVaccinatedPerHundred)
	})
	if len(leaders) > LeaderboardSize {
		leaders = leaders[:LeaderboardSize]
	}
	return leaders, nil
}

// CompareGeography builds the GDP-vs-cases scatter dataset from latest-date
// rows. A row is kept only when gdp_per_capita, total_cases_per_million and
// population are all present and strictly positive. Labeled holds the top
// GeoLabelCount points by total_cases_per_million.
func CompareGeography(t Table) (GeoComparison, error) {
	if err := t.Require(ColGDPPerCapita, ColTotalCasesPerMillion, ColPopulation); err != nil {
		return GeoComparison{}, err
	}

	var cmpGeo GeoComparison
	for _, row := range t.LatestRows() {
		if !positive(row.GDPPerCapita) || !positive(row.TotalCasesPerMillion) || !positive(row.Population) {
			continue
		}
		cmpGeo.Points = append(cmpGeo.Points, GeoPoint{
			Location:             row.Location,
			GDPPerCapita:         *row.GDPPerCapita,
			TotalCasesPerMillion: *row.TotalCasesPerMillion,
			Population:           *row.Population,
		})
	}

	labeled := slices.Clone(cmpGeo.Points)
	slices.SortStableFunc(labeled, func(a, b GeoPoint) int {
		return cmp.Compare(b.TotalCasesPerMillion, a.TotalCasesPerMillion)
	})
	if len(labeled) > GeoLabelCount {
		labeled = labeled[:GeoLabelCount]
	}
	cmpGeo.Labeled = labeled
	return cmpGeo, nil
}

// Summarize totals the latest-date rows. Null values count as 0 and totals
// are truncated to whole numbers. For an empty table it returns a zero summary
// with LastUpdated set to NoDateSentinel together with ErrNoDataAvailable.
func Summarize(t Table) (Summary, error) {
	latest, ok := t.LatestDate()
	if !ok {
		return Summary{LastUpdated: NoDateSentinel}, ErrNoDataAvailable
	}

	var cases, deaths, vaccinations float64
	rows := t.LatestRows()
	for i := range rows {
		cases += valueOrZero(rows[i].TotalCases)
		deaths += valueOrZero(rows[i].TotalDeaths)
		vaccinations += valueOrZero(rows[i].TotalVaccinations)
	}

	return Summary{
		TotalCases:        int64(cases),
		TotalDeaths:       int64(deaths),
		TotalVaccinations: int64(vaccinations),
		CountriesReported: len(rows),
		LastUpdated:       latest.Format(DateLayout),
	}, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
