package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	trendWidth, trendHeight             = 1200, 600
	vaccinationWidth, vaccinationHeight = 1100, 600
	geoWidth, geoHeight                 = 1000, 600
)

var errNotEnoughData = errors.New("not enough data to plot")

var (
	colorDaily   = drawing.Color{R: 211, G: 211, B: 211, A: 128}
	colorAverage = chart.ColorBlue
	colorBar     = chart.ColorRed
	colorScatter = drawing.Color{R: 0, G: 0, B: 255, A: 153}
)

// populationBuckets size scatter markers by population, smallest first.
var populationBuckets = []struct {
	name     string
	limit    float64
	dotWidth float64
}{
	{"population < 10M", 10e6, 3},
	{"population 10M-100M", 100e6, 6},
	{"population > 100M", math.Inf(1), 10},
}

// drawTrend plots daily global new cases and their rolling average.
func drawTrend(w io.Writer, points []domain.TrendPoint) error {
	if len(points) < 2 {
		return errNotEnoughData
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	var avgXs []time.Time
	var avgYs []float64
	lo, hi := 0.0, 0.0
	for i, p := range points {
		xs[i] = p.Date
		ys[i] = p.NewCases
		lo = math.Min(lo, p.NewCases)
		hi = math.Max(hi, p.NewCases)
		if p.RollingAvg != nil {
			avgXs = append(avgXs, p.Date)
			avgYs = append(avgYs, *p.RollingAvg)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name:    "Daily Cases",
			Style:   chart.Style{StrokeColor: colorDaily, StrokeWidth: 1},
			XValues: xs,
			YValues: ys,
		},
	}
	if len(avgXs) >= 2 {
		series = append(series, chart.TimeSeries{
			Name:    fmt.Sprintf("%d-day Moving Average", domain.RollingWindow),
			Style:   chart.Style{StrokeColor: colorAverage, StrokeWidth: 2},
			XValues: avgXs,
			YValues: avgYs,
		})
	}

	graph := chart.Chart{
		Title:      TrendTitle,
		Width:      trendWidth,
		Height:     trendHeight,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: chart.YAxis{
			Name:           "Number of Cases",
			Range:          &chart.ContinuousRange{Min: lo, Max: hi * 1.05},
			ValueFormatter: compactValueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// drawVaccination plots the leaderboard as one bar per location, in rank order.
func drawVaccination(w io.Writer, leaders []domain.VaccinationLeader) error {
	if len(leaders) == 0 {
		return errNotEnoughData
	}

	top := 100.0
	bars := make([]chart.Value, len(leaders))
	for i, l := range leaders {
		bars[i] = chart.Value{
			Label: l.Location,
			Value: l.PeopleFullyVaccinatedPerHundred,
			Style: chart.Style{FillColor: colorBar, StrokeColor: colorBar},
		}
		top = math.Max(top, l.PeopleFullyVaccinatedPerHundred)
	}

	graph := chart.BarChart{
		Title:      VaccinationTitle,
		Width:      vaccinationWidth,
		Height:     vaccinationHeight,
		BarWidth:   40,
		BarSpacing: 20,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 60}},
		YAxis: chart.YAxis{
			Name:  "Fully Vaccinated (%)",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	return graph.Render(chart.PNG, w)
}

// drawGeographic plots GDP per capita against cases per million on log10
// axes, with marker size bucketed by population and the labeled subset annotated.
func drawGeographic(w io.Writer, geo domain.GeoComparison) error {
	if len(geo.Points) == 0 {
		return errNotEnoughData
	}

	xr := newLogRange()
	yr := newLogRange()
	bucketXs := make([][]float64, len(populationBuckets))
	bucketYs := make([][]float64, len(populationBuckets))
	for _, p := range geo.Points {
		x, y := math.Log10(p.GDPPerCapita), math.Log10(p.TotalCasesPerMillion)
		xr.add(x)
		yr.add(y)
		b := bucketFor(p.Population)
		bucketXs[b] = append(bucketXs[b], x)
		bucketYs[b] = append(bucketYs[b], y)
	}

	var series []chart.Series
	for i, b := range populationBuckets {
		if len(bucketXs[i]) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name: b.name,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    b.dotWidth,
				DotColor:    colorScatter,
			},
			XValues: bucketXs[i],
			YValues: bucketYs[i],
		})
	}

	if len(geo.Labeled) > 0 {
		labels := make([]chart.Value2, len(geo.Labeled))
		for i, p := range geo.Labeled {
			labels[i] = chart.Value2{
				XValue: math.Log10(p.GDPPerCapita),
				YValue: math.Log10(p.TotalCasesPerMillion),
				Label:  p.Location,
			}
		}
		series = append(series, chart.AnnotationSeries{Annotations: labels})
	}

	graph := chart.Chart{
		Title:      GeographicTitle,
		Width:      geoWidth,
		Height:     geoHeight,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:  "GDP per Capita (log scale)",
			Range: xr.chartRange(),
			Ticks: xr.ticks(),
		},
		YAxis: chart.YAxis{
			Name:  "Total Cases per Million (log scale)",
			Range: yr.chartRange(),
			Ticks: yr.ticks(),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

func bucketFor(population float64) int {
	for i, b := range populationBuckets {
		if population < b.limit {
			return i
		}
	}
	return len(populationBuckets) - 1
}

// logRange tracks the extent of log10 values and widens it to whole decades.
type logRange struct {
	min, max float64
}

func newLogRange() *logRange {
	return &logRange{min: math.Inf(1), max: math.Inf(-1)}
}

func (r *logRange) add(v float64) {
	r.min = math.Min(r.min, v)
	r.max = math.Max(r.max, v)
}

func (r *logRange) bounds() (float64, float64) {
	lo, hi := math.Floor(r.min), math.Ceil(r.max)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func (r *logRange) chartRange() *chart.ContinuousRange {
	lo, hi := r.bounds()
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// ticks places one tick per decade, labeled with the linear value.
func (r *logRange) ticks() []chart.Tick {
	lo, hi := r.bounds()
	var ticks []chart.Tick
	for e := lo; e <= hi; e++ {
		ticks = append(ticks, chart.Tick{Value: e, Label: compactNumber(math.Pow(10, e))})
	}
	return ticks
}

func compactValueFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return compactNumber(f)
	}
	return fmt.Sprint(v)
}

// compactNumber formats large axis values as 1.2M, 350K, etc.
func compactNumber(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return trimZero(fmt.Sprintf("%.1f", v/1e9)) + "B"
	case abs >= 1e6:
		return trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case abs >= 1e3:
		return trimZero(fmt.Sprintf("%.1f", v/1e3)) + "K"
	case abs >= 1 || v == 0:
		return fmt.Sprintf("%.0f", v)
	default:
		return trimZero(fmt.Sprintf("%.2f", v))
	}
}

func trimZero(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
