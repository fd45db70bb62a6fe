package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
)

const contentTypeGeoJSON = "application/geo+json"

type datasetHandler func(w http.ResponseWriter, r *http.Request, d *domain.Dataset)

// withDataset answers 503 until a dataset is loaded.
func (s *Server) withDataset(next datasetHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := s.data.Current()
		if d == nil {
			s.writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "dataset not loaded"})
			return
		}
		next(w, r, d)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type speciesList struct {
	Species []string `json:"species"`
}

func (s *Server) handleSpecies(w http.ResponseWriter, _ *http.Request, d *domain.Dataset) {
	s.writeJSON(w, http.StatusOK, speciesList{Species: d.Species()})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, d *domain.Dataset) {
	species := speciesParam(r)

	start := time.Now()
	report := d.Report(species, s.opts)
	s.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	s.metrics.ReportsBuilt.WithLabelValues("http").Inc()

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request, d *domain.Dataset) {
	records := domain.FilterBySpecies(d.Records, speciesParam(r))
	s.writeGeoJSON(w, domain.PointLayer(records))
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request, d *domain.Dataset) {
	level, err := domain.ParseLevel(r.PathValue("level"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	records := domain.FilterBySpecies(d.Records, speciesParam(r))
	counts := domain.Aggregate(records, d.Regions, level)
	c := domain.Classify(counts, d.Regions, level, s.opts.Bins)
	s.writeGeoJSON(w, domain.RegionLayer(d.Regions, c))
}

func speciesParam(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("name"))
}

func (s *Server) writeGeoJSON(w http.ResponseWriter, v any) {
	s.write(w, contentTypeGeoJSON, http.StatusOK, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	s.write(w, "application/json", status, v)
}

func (s *Server) write(w http.ResponseWriter, contentType string, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}
