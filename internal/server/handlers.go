package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tattva/tattva/internal/correlation"
	"github.com/tattva/tattva/internal/insight"
	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/errors"
)

// HypothesisResponse wraps the finding behind a hypothesis.
type HypothesisResponse struct {
	SourceFinding insight.XFactor `json:"source_finding"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "tattva is running",
		"version": s.cfg.Version,
	})
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ping(r.Context()); err != nil {
		s.log.WithContext(r.Context()).Warn("Health check failed", "error", err)
		errors.WriteError(w, errors.ServiceUnavailableError("observation store"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSpecies handles GET /api/species
func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	species, err := s.catalog.ListSpecies(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, species)
}

// handleHypotheses handles GET /api/hypotheses[?refresh=true]. An empty
// finding is a successful response.
func (s *Server) handleHypotheses(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errors.WriteError(w, errors.InvalidRequestError("refresh must be a boolean"))
			return
		}
		refresh = v
	}

	var (
		f   correlation.Finding
		err error
	)
	if refresh {
		f, err = s.finder.Refresh(r.Context())
	} else {
		f, err = s.finder.FindBest(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := HypothesisResponse{SourceFinding: insight.XFactor{Finding: f}}
	if !f.IsEmpty() {
		name, ok, err := s.catalog.GroupName(r.Context(), *f.GroupID)
		switch {
		case err != nil:
			s.log.WithContext(r.Context()).Warn("Species name lookup failed", "species_id", *f.GroupID, "error", err)
		case ok:
			resp.SourceFinding.SpeciesName = &name
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleContext handles GET /api/context?lat=&lon=&radius_km=&limit=
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	req, err := parseContextRequest(r.URL.Query())
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.builder.BuildContext(r.Context(), req))
}

// parseContextRequest reads an optional region and limit. lat and lon must be
// given together; radius_km requires them.
func parseContextRequest(q url.Values) (insight.Request, error) {
	var req insight.Request

	lat, hasLat, err := parseFloat(q, "lat")
	if err != nil {
		return req, err
	}
	lon, hasLon, err := parseFloat(q, "lon")
	if err != nil {
		return req, err
	}
	radius, hasRadius, err := parseFloat(q, "radius_km")
	if err != nil {
		return req, err
	}

	switch {
	case hasLat != hasLon:
		return req, errors.ValidationError("lat and lon must be given together")
	case hasRadius && !hasLat:
		return req, errors.ValidationError("radius_km requires lat and lon")
	case hasLat:
		req.Region = &observation.Region{Latitude: lat, Longitude: lon, RadiusKm: radius}
		if hasRadius && radius <= 0 {
			return req, errors.ValidationError("radius_km must be positive")
		}
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, errors.ValidationError("limit must be a positive integer")
		}
		req.TopN = n
	}

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func parseFloat(q url.Values, key string) (float64, bool, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errors.ValidationError(key + " must be a number")
	}
	return v, true, nil
}
