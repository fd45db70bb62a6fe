// Package dataset loads one occurrence dataset with its region layers and
// holds it for concurrent readers.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/occurrence-aggregator/internal/config"
	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
)

// Sources names the input files and their column/attribute mappings.
type Sources struct {
	OccurrencesPath string
	CantonsPath     string
	ProvincesPath   string // optional

	Occurrences domain.OccurrenceSchema
	Cantons     domain.LayerSchema
	Provinces   domain.LayerSchema
}

// SourcesFromConfig maps the service configuration onto Sources.
func SourcesFromConfig(cfg *config.Config) Sources {
	occ := domain.DefaultOccurrenceSchema()
	occ.ID = cfg.OccurrenceIDColumn

	cantons := domain.DefaultCantonSchema()
	cantons.CodeField = cfg.CantonCodeField
	cantons.NameField = cfg.CantonNameField
	cantons.ParentCodeField = cfg.ProvinceCodeField
	cantons.ParentNameField = cfg.ProvinceNameField

	provinces := domain.DefaultProvinceSchema()
	provinces.CodeField = cfg.ProvinceCodeField
	provinces.NameField = cfg.ProvinceNameField

	return Sources{
		OccurrencesPath: cfg.OccurrencesPath,
		CantonsPath:     cfg.CantonsPath,
		ProvincesPath:   cfg.ProvincesPath,
		Occurrences:     occ,
		Cantons:         cantons,
		Provinces:       provinces,
	}
}

// Load reads the occurrence table and region layers, builds the registry,
// and enriches unlocated records when a geocoder is given. Provinces come
// from ProvincesPath when set and are derived from the cantons otherwise.
// Any error is fatal to the session.
func Load(ctx context.Context, src Sources, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) (*domain.Dataset, error) {
	start := time.Now()

	records, err := loadOccurrences(src)
	if err != nil {
		return nil, err
	}

	cantons, err := loadLayer(src.CantonsPath, domain.LevelCanton, src.Cantons)
	if err != nil {
		return nil, err
	}

	var provinces []domain.Region
	if src.ProvincesPath != "" {
		provinces, err = loadLayer(src.ProvincesPath, domain.LevelProvince, src.Provinces)
	} else {
		provinces, err = domain.DeriveProvinces(cantons)
	}
	if err != nil {
		return nil, err
	}

	reg, err := domain.NewRegistry(append(provinces, cantons...)...)
	if err != nil {
		return nil, err
	}

	if geocoder != nil {
		enriched := 0
		for i := range records {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("geocoding interrupted: %w", err)
			}
			records[i] = domain.EnrichWithGeocoding(ctx, records[i], geocoder, logger)
			if records[i].GeoSource == domain.GeoSourceForward {
				enriched++
			}
		}
		logger.Info("geocoding enrichment complete", "enriched", enriched)
	}

	metrics.RecordsLoaded.Set(float64(len(records)))
	for _, level := range domain.Levels {
		metrics.RegionsLoaded.WithLabelValues(level.String()).Set(float64(reg.Len(level)))
	}
	metrics.LoadDuration.Observe(time.Since(start).Seconds())

	logger.Info("dataset loaded",
		"records", len(records),
		"provinces", reg.Len(domain.LevelProvince),
		"cantons", reg.Len(domain.LevelCanton),
		"duration", time.Since(start),
	)
	return &domain.Dataset{Records: records, Regions: reg}, nil
}

func loadOccurrences(src Sources) ([]domain.OccurrenceRecord, error) {
	f, err := os.Open(src.OccurrencesPath)
	if err != nil {
		return nil, fmt.Errorf("open occurrences: %w", err)
	}
	defer f.Close()

	schema := src.Occurrences
	if schema.Source == "" {
		schema.Source = filepath.Base(src.OccurrencesPath)
	}
	return domain.LoadOccurrences(f, schema)
}

func loadLayer(path string, level domain.Level, schema domain.LayerSchema) ([]domain.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s layer: %w", level, err)
	}
	defer f.Close()

	if schema.Source == "" {
		schema.Source = filepath.Base(path)
	}
	return domain.DecodeRegionLayer(f, level, schema)
}

// Holder publishes the current dataset to concurrent readers.
type Holder struct {
	current atomic.Pointer[domain.Dataset]
}

// Store replaces the current dataset.
func (h *Holder) Store(d *domain.Dataset) {
	h.current.Store(d)
}

// Current returns the loaded dataset, or nil before the first Store.
func (h *Holder) Current() *domain.Dataset {
	return h.current.Load()
}

// CheckReadiness reports an error until a dataset has been stored.
func (h *Holder) CheckReadiness(_ context.Context) error {
	if h.current.Load() == nil {
		return errors.New("dataset not loaded")
	}
	return nil
}
