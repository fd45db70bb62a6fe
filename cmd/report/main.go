// Command report loads an occurrence table and canton layer and prints the
// report for one species, or the list of species, as JSON. It runs the same
// domain code as the service and needs no broker or HTTP server.
//
// Usage:
//
//	go run ./cmd/report \
//	  -occurrences data/occurrences.csv \
//	  -cantons data/cantones.geojson \
//	  -species "Ramphastos sulfuratus" \
//	  -out report.json
//
//	go run ./cmd/report -list
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/occurrence-aggregator/internal/dataset"
	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	occurrences := flag.String("occurrences", sharedcfg.EnvOrDefault("OCCURRENCES_PATH", "data/occurrences.csv"), "tab-separated occurrence file")
	cantons := flag.String("cantons", sharedcfg.EnvOrDefault("CANTONS_PATH", "data/cantones.geojson"), "canton GeoJSON layer")
	provinces := flag.String("provinces", os.Getenv("PROVINCES_PATH"), "optional province GeoJSON layer")
	species := flag.String("species", "", "species to report on")
	list := flag.Bool("list", false, "print the distinct species and exit")
	top := flag.Int("top", domain.DefaultCantonTopN, "rows kept in the canton table")
	bins := flag.Int("bins", domain.DefaultBins, "choropleth classes")
	at := flag.String("at", "", "fixed RFC3339 generation time for reproducible output")
	out := flag.String("out", "", "output path (default stdout)")
	flag.Parse()

	if !*list && *species == "" {
		flag.Usage()
		return fmt.Errorf("one of -species or -list is required")
	}

	if *at != "" {
		ts, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(ts))
		defer domain.SetClock(nil)
	}

	src := dataset.Sources{
		OccurrencesPath: *occurrences,
		CantonsPath:     *cantons,
		ProvincesPath:   *provinces,
		Occurrences:     domain.DefaultOccurrenceSchema(),
		Cantons:         domain.DefaultCantonSchema(),
		Provinces:       domain.DefaultProvinceSchema(),
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	d, err := dataset.Load(context.Background(), src, nil, logger, observability.NewMetricsForTesting())
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	var v any
	if *list {
		v = map[string][]string{"species": d.Species()}
	} else {
		report := d.Report(*species, domain.ReportOptions{CantonTopN: *top, Bins: *bins})
		printSummary(os.Stderr, report)
		v = report
	}

	if *out == "" {
		return writeJSON(os.Stdout, v)
	}
	return writeFile(*out, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// printSummary writes the two bar-chart tables in plain text.
func printSummary(w io.Writer, r domain.Report) {
	fmt.Fprintf(w, "%s: %d records, %d located\n", r.Species, len(r.Records), r.Located)
	for _, table := range []domain.AggregationResult{r.Provinces.Table, r.Cantons.Table} {
		fmt.Fprintf(w, "\nBy %s:\n", table.Level)
		if len(table.Rows) == 0 {
			fmt.Fprintln(w, "  (none)")
			continue
		}
		for _, row := range table.Rows {
			fmt.Fprintf(w, "  %-28s %6d\n", row.Name, row.Count)
		}
	}
}
