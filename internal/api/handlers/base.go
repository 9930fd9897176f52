// Package handlers contains HTTP request handlers for the automation API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/lumabook/automation/internal/api/types"
	"github.com/lumabook/automation/internal/health"
	"github.com/lumabook/automation/internal/workflow"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	engine   *workflow.Engine
	stores   *workflow.Stores
	health   *health.Registry
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler around the engine and its stores.
func NewHandler(engine *workflow.Engine, stores *workflow.Stores, healthReg *health.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		stores:   stores,
		health:   healthReg,
		validate: validator.New(),
		logger:   logger.With("component", "api"),
	}
}

// respondJSON writes a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError writes a JSON error response with the given status code.
func (h *Handler) respondError(w http.ResponseWriter, code int, message string) {
	h.respondJSON(w, code, types.ErrorResponse{Error: message})
}

// respondValidationError writes a field-by-field validation error.
func (h *Handler) respondValidationError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]string)
		for _, e := range validationErrs {
			details[e.Field()] = formatValidationError(e)
		}
		h.respondJSON(w, http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation failed",
			Details: details,
		})
		return
	}
	h.respondError(w, http.StatusBadRequest, "invalid input")
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// decodeAndValidate decodes a JSON request body and validates the struct.
func (h *Handler) decodeAndValidate(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

// respondEngineError maps engine sentinels onto HTTP statuses.
func (h *Handler) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, workflow.ErrAlreadyEnrolled):
		h.respondError(w, http.StatusConflict, "subject already enrolled")
	case errors.Is(err, workflow.ErrVersionConflict):
		h.respondError(w, http.StatusConflict, "execution is being advanced by another worker")
	case errors.Is(err, workflow.ErrTerminal):
		h.respondError(w, http.StatusConflict, "execution already finished")
	case errors.Is(err, workflow.ErrNoSteps), errors.Is(err, workflow.ErrWorkflowInactive):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// getPaginationParams extracts limit/offset query parameters.
func getPaginationParams(r *http.Request) (limit, offset int) {
	limit = types.DefaultLimit

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			if parsed > types.DefaultMaxLimit {
				parsed = types.DefaultMaxLimit
			}
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
