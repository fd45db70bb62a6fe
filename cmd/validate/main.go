// Command validate performs data integrity checks on an occurrence table and
// its region layers before they are served: region layer structure, record
// identity and coordinates, spatial coverage, and aggregation consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -occurrences data/occurrences.csv \
//	  -cantons data/cantones.geojson \
//	  [-provinces data/provincias.geojson] [-max-outside 0.25]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/couchcryptid/occurrence-aggregator/internal/dataset"
	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	occurrences := flag.String("occurrences", "", "tab-separated occurrence file")
	cantons := flag.String("cantons", "", "canton GeoJSON layer")
	provinces := flag.String("provinces", "", "optional province GeoJSON layer")
	maxOutside := flag.Float64("max-outside", 0.25, "largest tolerated share of located records outside every canton")
	flag.Parse()

	if *occurrences == "" || *cantons == "" {
		flag.Usage()
		os.Exit(1)
	}

	src := dataset.Sources{
		OccurrencesPath: *occurrences,
		CantonsPath:     *cantons,
		ProvincesPath:   *provinces,
		Occurrences:     domain.DefaultOccurrenceSchema(),
		Cantons:         domain.DefaultCantonSchema(),
		Provinces:       domain.DefaultProvinceSchema(),
	}
	if code := run(os.Stdout, src, *maxOutside); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, src dataset.Sources, maxOutside float64) int {
	fmt.Fprintln(w, "=== Occurrence Data Validation ===")
	fmt.Fprintln(w)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := dataset.Load(context.Background(), src, nil, logger, observability.NewMetricsForTesting())
	if err != nil {
		fmt.Fprintf(w, "FATAL: load dataset: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRegions(d.Regions),
		validateRecords(d.Records),
		validateCoverage(d, maxOutside),
		validateAggregation(d),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d, species: %d, provinces: %d, cantons: %d\n",
		len(d.Records), len(d.Species()), d.Regions.Len(domain.LevelProvince), d.Regions.Len(domain.LevelCanton))

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Fprintf(w, "  note: %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Region Layers ──
// Every region is named and bounded, every canton's province exists, and
// every province has at least one canton.

func validateRegions(reg *domain.Registry) *phase {
	p := &phase{name: "Phase 1: Region Layers"}

	if reg.Len(domain.LevelCanton) == 0 {
		p.errorf("canton layer is empty")
	}

	members := make(map[int]int)
	for _, level := range domain.Levels {
		for _, g := range reg.Regions(level) {
			if g.Name == "" {
				p.errorf("%s %d has no name", level, g.Code)
			}
			if g.Boundary == nil || g.Boundary.NumPolygons() == 0 {
				p.errorf("%s %d (%s) has an empty boundary", level, g.Code, g.Name)
			}
			if level != domain.LevelCanton {
				continue
			}
			parent, ok := reg.Lookup(g.ParentCode)
			if !ok || parent.Level != domain.LevelProvince {
				p.errorf("canton %d (%s) references unknown province %d", g.Code, g.Name, g.ParentCode)
				continue
			}
			members[g.ParentCode]++
		}
	}

	for _, g := range reg.Regions(domain.LevelProvince) {
		if members[g.Code] == 0 {
			p.errorf("province %d (%s) has no cantons", g.Code, g.Name)
		}
	}
	return p
}

// ── Phase 2: Occurrence Records ──
// Source IDs are unique and located points are valid WGS-84 lon/lat.

func validateRecords(records []domain.OccurrenceRecord) *phase {
	p := &phase{name: "Phase 2: Occurrence Records"}

	seen := make(map[string]int, len(records))
	unlocated := 0
	for i, r := range records {
		if r.SourceID != "" {
			if first, dup := seen[r.SourceID]; dup {
				p.errorf("record %d: duplicate source id %q (first seen at record %d)", i+1, r.SourceID, first+1)
			} else {
				seen[r.SourceID] = i
			}
		}
		if !r.Point.Valid() {
			unlocated++
			continue
		}
		if r.Point.Lon < -180 || r.Point.Lon > 180 || r.Point.Lat < -90 || r.Point.Lat > 90 {
			p.errorf("record %q: point (%g, %g) is outside WGS-84 bounds", r.SourceID, r.Point.Lon, r.Point.Lat)
		}
	}
	if unlocated > 0 {
		p.notef("%d of %d records have no coordinates", unlocated, len(records))
	}
	return p
}

// ── Phase 3: Spatial Coverage ──
// Located records should mostly fall inside a canton; points on shared
// borders or offshore count as outside.

func validateCoverage(d *domain.Dataset, maxOutside float64) *phase {
	p := &phase{name: "Phase 3: Spatial Coverage"}

	cantons := d.Regions.Regions(domain.LevelCanton)
	located, outside := 0, 0
	var samples []string
	for _, r := range d.Records {
		if !r.Point.Valid() {
			continue
		}
		located++
		inside := false
		for i := range cantons {
			if cantons[i].Contains(r.Point) {
				inside = true
				break
			}
		}
		if !inside {
			outside++
			if len(samples) < 10 {
				samples = append(samples, fmt.Sprintf("%s (%g, %g)", r.SourceID, r.Point.Lon, r.Point.Lat))
			}
		}
	}

	if outside == 0 {
		return p
	}
	share := float64(outside) / float64(located)
	p.notef("%d of %d located records fall outside every canton, e.g. %v", outside, located, samples)
	if share > maxOutside {
		p.errorf("%.1f%% of located records fall outside every canton (limit %.1f%%)", share*100, maxOutside*100)
	}
	return p
}

// ── Phase 4: Aggregation Consistency ──
// For every species, counts never exceed the located records and tables are
// sorted by descending count.

func validateAggregation(d *domain.Dataset) *phase {
	p := &phase{name: "Phase 4: Aggregation Consistency"}

	for _, species := range d.Species() {
		report := d.Report(species, domain.ReportOptions{})
		for _, summary := range []domain.LevelSummary{report.Provinces, report.Cantons} {
			level := summary.Table.Level
			total := 0
			for _, c := range summary.Counts {
				total += c.Count
			}
			if total > report.Located {
				p.errorf("%s: %s counts sum to %d but only %d records are located", species, level, total, report.Located)
			}
			rows := summary.Table.Rows
			if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count }) {
				p.errorf("%s: %s table is not sorted by count", species, level)
			}
		}
	}
	return p
}
