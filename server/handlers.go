package server

import (
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/feedback"
	"github.com/ezoic/plantreco/recommend"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// PredictRequest asks for a plant matching growing conditions.
// Unknown lumiere or difficulte values are accepted and contribute nothing.
type PredictRequest struct {
	Humidite   *float64 `json:"humidite" validate:"required,min=1,max=5"`
	Lumiere    string   `json:"lumiere" validate:"required"`
	Difficulte string   `json:"difficulte" validate:"required"`
}

// FeedbackRequest rates a plant.
type FeedbackRequest struct {
	Plante      string `json:"plante"`
	Note        int    `json:"note" validate:"min=1,max=5"`
	Commentaire string `json:"commentaire" validate:"max=2000"`
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeValidation = "VALIDATION_ERROR"
	CodeEmptyPlant = "EMPTY_PLANT"
	CodeInternal   = "INTERNAL_ERROR"
	CodeRateLimit  = "RATE_LIMITED"
)

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.LogError(err, "Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.LogError(err, "Failed to write JSON response")
	}
}

// respondError sends an error response. err, when set, is logged with the request ID.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	requestID := RequestIDFromContext(r.Context())
	if err != nil {
		log.GetLogger().Error().
			Err(err).
			Str("request_id", requestID).
			Str("code", code).
			Msg("API error")
	}
	respondJSON(w, status, ErrorBody{
		Error:     APIError{Code: code, Message: message},
		RequestID: requestID,
	})
}

// decodeAndValidate reads a JSON body into v and validates it. On failure
// the error response is already written and false is returned.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "unable to read request body", nil)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return false
	}
	return true
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if !decodeAndValidate(w, r, &req) {
		PredictionsTotal.WithLabelValues(outcomeInvalid).Inc()
		return
	}

	rec, err := s.recommender.Recommend(recommend.Query{
		Humidite:   *req.Humidite,
		Lumiere:    req.Lumiere,
		Difficulte: req.Difficulte,
	})
	if err != nil {
		PredictionsTotal.WithLabelValues(outcomeError).Inc()
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "prediction failed", err)
		return
	}

	PredictionsTotal.WithLabelValues(outcomeOK).Inc()
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		FeedbackTotal.WithLabelValues(outcomeInvalid).Inc()
		return
	}

	rec, err := s.feedback.Append(req.Plante, req.Note, req.Commentaire)
	switch {
	case prErrors.Is(err, feedback.ErrEmptyPlant):
		FeedbackTotal.WithLabelValues(outcomeInvalid).Inc()
		respondError(w, r, http.StatusBadRequest, CodeEmptyPlant, "Veuillez spécifier une plante", nil)
		return
	case prErrors.Is(err, prErrors.ErrInvalidInput):
		FeedbackTotal.WithLabelValues(outcomeInvalid).Inc()
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	case err != nil:
		FeedbackTotal.WithLabelValues(outcomeError).Inc()
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Erreur lors de l'enregistrement", err)
		return
	}

	FeedbackTotal.WithLabelValues(outcomeOK).Inc()
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.feedback.Stats()
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Erreur de lecture", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDiagnostic(w http.ResponseWriter, r *http.Request) {
	var symptoms recommend.Symptoms
	if !decodeAndValidate(w, r, &symptoms) {
		return
	}
	d := recommend.Diagnose(symptoms)
	DiagnosticsTotal.WithLabelValues(d.Diagnostic).Inc()
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusTooManyRequests, CodeRateLimit, "too many requests", nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
