// Package domain models the Our World in Data (OWID) COVID-19 dataset and the
// aggregate views the dashboard derives from it.
//
// # Data Source
//
// The dataset is a single CSV document published at
// https://covid.ourworldindata.org/data/owid-covid-data.csv. Each row is one
// location on one calendar day. Locations include countries as well as OWID
// aggregates such as "World" or "Europe"; no filtering is applied, so sums
// over all locations count those aggregates too.
//
// # Columns
//
// Only ten of the roughly seventy published columns are read:
//
//	date, location                              mandatory
//	total_cases, new_cases, total_deaths,
//	total_vaccinations,
//	people_fully_vaccinated_per_hundred,
//	gdp_per_capita, population,
//	total_cases_per_million                     optional, nullable
//
// The header is validated once after parsing (see [ParseCSV]). A missing
// mandatory column fails the load. Missing optional columns are recorded on
// the [Table]; each aggregator reports a [*MissingColumnsError] for the ones
// it depends on so the caller can degrade just that view.
//
// Empty cells are nulls. Unparseable numeric cells are nulls as well. An
// unparseable date fails the whole load: the date is the grouping key of every
// view and a row without one cannot be placed.
//
// # Latest-date rows
//
// The leaderboard, geographic comparison and summary views only look at rows
// whose date equals the maximum date in the table. OWID publishes countries
// with different reporting lags, so the latest date usually covers a subset of
// locations.
//
// # Null handling
//
//	Sums:        null counts as 0.
//	Leaderboard: rows with a null people_fully_vaccinated_per_hundred are excluded.
//	Geo:         rows with a null or non-positive gdp_per_capita,
//	             total_cases_per_million or population are excluded.
package domain
