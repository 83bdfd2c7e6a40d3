package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/port-experimental/port-pr-chart/internal/api"
	"github.com/port-experimental/port-pr-chart/internal/logging"
	"github.com/port-experimental/port-pr-chart/internal/token"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Status  int         `json:"status,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	respondJSON(w, r, status, ErrorResponse{
		Error:   title,
		Message: message,
		Status:  status,
	})
}

// respondFailure maps an error from the catalog or token manager to a reply.
// Upstream rejections keep their status and pass through the Port error body.
func respondFailure(w http.ResponseWriter, r *http.Request, operation string, err error) {
	log := logging.Ctx(r.Context())

	var upstreamErr *api.UpstreamRequestError
	var exchangeErr *api.AuthExchangeError

	switch {
	case errors.Is(err, api.ErrNoTokenAvailable):
		log.Warn().Str("operation", operation).Msg("No Port API token available")
		respondError(w, r, http.StatusBadRequest, "No token available", err.Error())

	case errors.Is(err, token.ErrMissingCredentials):
		respondError(w, r, http.StatusBadRequest, "Missing client credentials", err.Error())

	case errors.As(err, &upstreamErr):
		log.Error().Err(err).Str("operation", operation).Int("status", upstreamErr.StatusCode).Msg("Port API error")
		respondJSON(w, r, upstreamErr.StatusCode, upstreamError(upstreamErr))

	case errors.As(err, &exchangeErr):
		log.Error().Err(err).Str("operation", operation).Msg("Token generation failed")
		respondError(w, r, http.StatusInternalServerError, "Token Generation Error", err.Error())

	default:
		log.Error().Err(err).Str("operation", operation).Msg("Request failed")
		respondError(w, r, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}

// upstreamError lifts error, message and details out of a Port error body
// when it is JSON.
func upstreamError(e *api.UpstreamRequestError) ErrorResponse {
	resp := ErrorResponse{
		Error:   "Port API Error",
		Message: e.Error(),
		Status:  e.StatusCode,
	}

	var body struct {
		Error   string      `json:"error"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	}
	if json.Unmarshal(e.Body, &body) != nil {
		return resp
	}
	if body.Error != "" {
		resp.Error = body.Error
	}
	if body.Message != "" {
		resp.Message = body.Message
	}
	resp.Details = body.Details
	return resp
}
