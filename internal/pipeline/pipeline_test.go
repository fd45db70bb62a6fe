package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
	"github.com/couchcryptid/occurrence-aggregator/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawSelection
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawSelection, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawSelection) (domain.Report, error) {
	if m.err != nil {
		return domain.Report{}, m.err
	}
	return domain.Report{Species: string(raw.Key)}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.Report
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func (m *mockLoader) reports() []domain.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Report(nil), m.loaded...)
}

type staticSource struct {
	d *domain.Dataset
}

func (s staticSource) Current() *domain.Dataset { return s.d }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selection(species string) domain.RawSelection {
	return domain.RawSelection{
		Key:   []byte(species),
		Value: []byte(`{"species":"` + species + `"}`),
		Topic: "species-selections",
	}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawSelection{{selection("Ramphastos sulfuratus"), selection("Pteroglossus torquatus")}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.reports()
	require.Len(t, loaded, 2)
	assert.Equal(t, "Ramphastos sulfuratus", loaded[0].Species)
	assert.True(t, p.Ready())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.SelectionsConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ReportsProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.reports())
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var committed atomic.Bool
	raw := selection("Ramphastos sulfuratus")
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawSelection{{raw}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad selection")}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.reports())
	assert.False(t, p.Ready())
	assert.True(t, committed.Load(), "rejected selections are committed so they are not redelivered")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var committed atomic.Bool
	raw := selection("Ramphastos sulfuratus")
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawSelection{{raw}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.True(t, committed.Load())
	assert.Len(t, ldr.reports(), 1)
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var committed atomic.Bool
	raw := selection("Ramphastos sulfuratus")
	raw.Commit = func(_ context.Context) error {
		committed.Store(true)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawSelection{{raw}}}
	ldr := &mockLoader{err: errors.New("broker down")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 100*time.Millisecond)

	assert.False(t, committed.Load())
	assert.False(t, p.Ready())
}

func TestPipeline_Run_RecoversAfterExtractError(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("fetch failed")},
		batches: [][]domain.RawSelection{nil, {selection("Ramphastos sulfuratus")}},
	}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, time.Second)

	assert.Len(t, ldr.reports(), 1)
}

func TestReportTransformer_Transform(t *testing.T) {
	boundary := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}}})
	reg, err := domain.NewRegistry(
		domain.NewRegion(1, "P1", domain.LevelProvince, 0, boundary),
		domain.NewRegion(101, "A", domain.LevelCanton, 1, boundary),
	)
	require.NoError(t, err)
	d := &domain.Dataset{
		Records: []domain.OccurrenceRecord{
			{SourceID: "1", SpeciesName: "Ramphastos sulfuratus", Point: domain.Point{Lon: 0.5, Lat: 0.5}},
		},
		Regions: reg,
	}
	metrics := observability.NewMetricsForTesting()

	tfm := pipeline.NewTransformer(staticSource{d: d}, domain.ReportOptions{}, metrics, discardLogger())
	report, err := tfm.Transform(context.Background(), selection("Ramphastos sulfuratus"))
	require.NoError(t, err)

	assert.Equal(t, "Ramphastos sulfuratus", report.Species)
	assert.Equal(t, []domain.Row{{Code: 101, Name: "A", Count: 1}}, report.Cantons.Table.Rows)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsBuilt.WithLabelValues("kafka")), 0)
}

func TestReportTransformer_Errors(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	tfm := pipeline.NewTransformer(staticSource{}, domain.ReportOptions{}, metrics, discardLogger())
	_, err := tfm.Transform(context.Background(), selection("Ramphastos sulfuratus"))
	require.ErrorIs(t, err, pipeline.ErrNoDataset)

	_, err = tfm.Transform(context.Background(), domain.RawSelection{Value: []byte(`{"species":""}`)})
	require.ErrorIs(t, err, domain.ErrEmptySelection)
}
