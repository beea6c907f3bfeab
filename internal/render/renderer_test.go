package render_test

import (
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/domain"
	"github.com/couchcryptid/covid-dashboard/internal/observability"
	"github.com/couchcryptid/covid-dashboard/internal/render"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func newTestRenderer(t *testing.T) (*render.Renderer, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	r := render.NewRenderer(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	require.NoError(t, r.EnsureOutputDir())
	return r, metrics
}

// requirePNG asserts the artifact exists and decodes as a PNG of non-zero size.
func requirePNG(t *testing.T, dir, artifact string) {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, artifact))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Positive(t, cfg.Width)
	assert.Positive(t, cfg.Height)
}

func trendPoints(n int) []domain.TrendPoint {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.TrendPoint, n)
	for i := range points {
		points[i] = domain.TrendPoint{Date: start.AddDate(0, 0, i), NewCases: float64(100 + i*10)}
		if i >= domain.RollingWindow-1 {
			points[i].RollingAvg = ptr(float64(100 + i*10 - 30))
		}
	}
	return points
}

func TestEnsureOutputDir_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static", "images")
	r := render.NewRenderer(dir, slog.Default(), observability.NewMetricsForTesting())

	require.NoError(t, r.EnsureOutputDir())
	require.NoError(t, r.EnsureOutputDir(), "idempotent")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, r.Dir())
}

func TestRenderer_Trend(t *testing.T) {
	r, metrics := newTestRenderer(t)

	require.NoError(t, r.Trend(trendPoints(30)))
	requirePNG(t, r.Dir(), render.TrendArtifact)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("trend", "rendered")), 0)
}

func TestRenderer_Trend_SinglePointDegradesToPlaceholder(t *testing.T) {
	r, metrics := newTestRenderer(t)

	require.NoError(t, r.Trend(trendPoints(1)))
	requirePNG(t, r.Dir(), render.TrendArtifact)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("trend", "placeholder")), 0)
}

func TestRenderer_Vaccination(t *testing.T) {
	r, metrics := newTestRenderer(t)

	leaders := []domain.VaccinationLeader{
		{Location: "Gibraltar", PeopleFullyVaccinatedPerHundred: 118.2},
		{Location: "Malta", PeopleFullyVaccinatedPerHundred: 80.1},
		{Location: "Chile", PeopleFullyVaccinatedPerHundred: 60},
	}
	require.NoError(t, r.Vaccination(leaders))
	requirePNG(t, r.Dir(), render.VaccinationArtifact)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("vaccination", "rendered")), 0)
}

func TestRenderer_Vaccination_EmptyDegradesToPlaceholder(t *testing.T) {
	r, metrics := newTestRenderer(t)

	require.NoError(t, r.Vaccination(nil))
	requirePNG(t, r.Dir(), render.VaccinationArtifact)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("vaccination", "placeholder")), 0)
}

func TestRenderer_Geographic(t *testing.T) {
	r, metrics := newTestRenderer(t)

	points := []domain.GeoPoint{
		{Location: "A", GDPPerCapita: 1500, TotalCasesPerMillion: 800, Population: 5e6},
		{Location: "B", GDPPerCapita: 12000, TotalCasesPerMillion: 45000, Population: 60e6},
		{Location: "C", GDPPerCapita: 55000, TotalCasesPerMillion: 98000, Population: 330e6},
	}
	geo := domain.GeoComparison{Points: points, Labeled: points[2:]}

	require.NoError(t, r.Geographic(geo))
	requirePNG(t, r.Dir(), render.GeographicArtifact)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("geographic", "rendered")), 0)
}

func TestRenderer_Geographic_EmptyDegradesToPlaceholder(t *testing.T) {
	r, _ := newTestRenderer(t)

	require.NoError(t, r.Geographic(domain.GeoComparison{}))
	requirePNG(t, r.Dir(), render.GeographicArtifact)
}

func TestRenderer_Placeholder(t *testing.T) {
	r, metrics := newTestRenderer(t)

	for _, artifact := range render.Artifacts {
		require.NoError(t, r.Placeholder(artifact, "Some Title", "Data not available"))
		requirePNG(t, r.Dir(), artifact)
	}
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("geographic", "placeholder")), 0)
}

func TestRenderer_OverwritesExistingArtifact(t *testing.T) {
	r, _ := newTestRenderer(t)
	path := filepath.Join(r.Dir(), render.TrendArtifact)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, r.Trend(trendPoints(10)))
	requirePNG(t, r.Dir(), render.TrendArtifact)
}

func TestRenderer_WriteFailure(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	r := render.NewRenderer(missing, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)

	err := r.Trend(trendPoints(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, render.ErrArtifactWrite)

	var werr *render.ArtifactWriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, render.TrendArtifact, werr.Artifact)
	assert.Equal(t, filepath.Join(missing, render.TrendArtifact), werr.Path)

	err = r.Placeholder(render.VaccinationArtifact, render.VaccinationTitle, "Data not available")
	assert.ErrorIs(t, err, render.ErrArtifactWrite)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChartRenders.WithLabelValues("trend", "error")), 0)
}
