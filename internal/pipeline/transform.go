package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
)

// ErrNoDataset is returned while no dataset has been loaded.
var ErrNoDataset = errors.New("no dataset loaded")

// DatasetSource yields the dataset reports are built from.
type DatasetSource interface {
	Current() *domain.Dataset
}

// ReportTransformer implements Transformer by building a species report from
// the current dataset.
type ReportTransformer struct {
	source  DatasetSource
	opts    domain.ReportOptions
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a ReportTransformer over source.
func NewTransformer(source DatasetSource, opts domain.ReportOptions, metrics *observability.Metrics, logger *slog.Logger) *ReportTransformer {
	return &ReportTransformer{
		source:  source,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

func (t *ReportTransformer) Transform(_ context.Context, raw domain.RawSelection) (domain.Report, error) {
	sel, err := domain.ParseSelection(raw)
	if err != nil {
		return domain.Report{}, err
	}

	d := t.source.Current()
	if d == nil {
		return domain.Report{}, ErrNoDataset
	}

	start := time.Now()
	report := d.Report(sel.Species, t.opts)
	t.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	t.metrics.ReportsBuilt.WithLabelValues("kafka").Inc()

	t.logger.Debug("report built",
		"species", sel.Species,
		"records", len(report.Records),
		"located", report.Located,
	)
	return report, nil
}
