package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/port-experimental/port-pr-chart/internal/chart"
	"github.com/port-experimental/port-pr-chart/internal/token"
)

func (s *Server) blueprintParam(r *http.Request) string {
	if bp := r.URL.Query().Get("blueprint"); bp != "" {
		return bp
	}
	return s.opts.DefaultBlueprint
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":    "OK",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		"version":   s.opts.Version,
	})
}

// GET /api/port/entities
func (s *Server) entities(w http.ResponseWriter, r *http.Request) {
	blueprint := s.blueprintParam(r)
	entities, err := s.catalog.GetEntities(r.Context(), blueprint)
	if err != nil {
		respondFailure(w, r, "entities", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success":   true,
		"data":      entities,
		"count":     len(entities),
		"blueprint": blueprint,
	})
}

// GET /api/port/blueprints
func (s *Server) blueprints(w http.ResponseWriter, r *http.Request) {
	blueprints, err := s.catalog.GetBlueprints(r.Context())
	if err != nil {
		respondFailure(w, r, "blueprints", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    blueprints,
		"count":   len(blueprints),
	})
}

// GET /api/port/properties
func (s *Server) properties(w http.ResponseWriter, r *http.Request) {
	blueprint := s.blueprintParam(r)
	entities, err := s.catalog.GetEntities(r.Context(), blueprint)
	if err != nil {
		respondFailure(w, r, "properties", err)
		return
	}
	properties := chart.ExtractProperties(entities)
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success":   true,
		"data":      properties,
		"count":     len(properties),
		"blueprint": blueprint,
	})
}

// GET /api/port/values/{property}
func (s *Server) values(w http.ResponseWriter, r *http.Request) {
	property := chi.URLParam(r, "property")
	blueprint := s.blueprintParam(r)
	entities, err := s.catalog.GetEntities(r.Context(), blueprint)
	if err != nil {
		respondFailure(w, r, "values", err)
		return
	}
	values := chart.PropertyValues(entities, property)
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success":   true,
		"data":      values,
		"count":     len(values),
		"property":  property,
		"blueprint": blueprint,
	})
}

// GET /api/port/chart
func (s *Server) chartData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	property := q.Get("property")
	if property == "" {
		property = chart.AllProperties
	}
	value := q.Get("value")
	if value == "" {
		value = chart.AllValues
	}

	blueprint := s.blueprintParam(r)
	entities, err := s.catalog.GetEntities(r.Context(), blueprint)
	if err != nil {
		respondFailure(w, r, "chart", err)
		return
	}
	points := chart.Aggregate(entities, property, value)
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success":   true,
		"data":      points,
		"count":     len(points),
		"blueprint": blueprint,
		"property":  property,
		"value":     value,
	})
}

// POST /api/auth/validate
func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	current := s.tokens.CurrentToken()
	if current == "" {
		respondError(w, r, http.StatusBadRequest, "No token configured",
			"Please set PORT_CLIENT_ID and PORT_CLIENT_SECRET, or PORT_API_TOKEN_PRIMARY")
		return
	}

	valid := s.tokens.ValidateToken(r.Context(), current)
	message := "Environment token is valid"
	if !valid {
		message = "Environment token is invalid or expired"
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"valid":   valid,
		"message": message,
	})
}

// GET /api/auth/status
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s.tokens.Status(),
	})
}

// POST /api/auth/rotate runs a rotation to completion even if the client
// disconnects, and reports its outcome.
func (s *Server) rotate(w http.ResponseWriter, r *http.Request) {
	outcome := s.tokens.Rotate(context.WithoutCancel(r.Context()))

	message := "Token rotated successfully"
	switch outcome {
	case token.OutcomeSkipped:
		message = "Token rotation already in progress"
	case token.OutcomeStillValid:
		message = "Current token is still valid"
	case token.OutcomeFailed:
		message = "All tokens appear to be invalid; current token unchanged"
	}

	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"outcome": outcome,
		"data":    s.tokens.Status(),
	})
}

// POST /api/auth/generate returns a freshly exchanged token without
// installing it.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	tok, err := s.tokens.GenerateToken(r.Context())
	if err != nil {
		respondFailure(w, r, "generate", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "New token generated successfully",
		"data": map[string]interface{}{
			"token":  tok,
			"status": s.tokens.Status(),
		},
	})
}
