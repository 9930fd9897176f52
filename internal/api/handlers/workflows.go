package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lumabook/automation/internal/api/types"
	"github.com/lumabook/automation/internal/workflow"
)

// CreateWorkflow handles POST /workflows.
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req types.CreateWorkflowRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	def := req.ToDefinition()
	if err := workflow.ValidateDefinition(def); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.stores.Workflows.Create(r.Context(), def); err != nil {
		if errors.Is(err, workflow.ErrDuplicateID) {
			h.respondError(w, http.StatusConflict, "workflow already exists")
			return
		}
		h.respondEngineError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, def)
}

// ListWorkflows handles GET /workflows.
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	defs, err := h.stores.Workflows.List(r.Context())
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	limit, offset := getPaginationParams(r)
	h.respondJSON(w, http.StatusOK, types.NewListResponse(defs, limit, offset))
}

// GetWorkflow handles GET /workflows/{id}.
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	def, err := h.stores.Workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, def)
}

// GetWorkflowStats handles GET /workflows/{id}/stats.
func (h *Handler) GetWorkflowStats(w http.ResponseWriter, r *http.Request) {
	def, err := h.stores.Workflows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, types.StatsFromDefinition(def))
}

// ActivateWorkflow handles POST /workflows/{id}/activate.
func (h *Handler) ActivateWorkflow(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivateWorkflow handles POST /workflows/{id}/deactivate.
func (h *Handler) DeactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := chi.URLParam(r, "id")
	if err := h.stores.Workflows.SetActive(r.Context(), id, active); err != nil {
		h.respondEngineError(w, err)
		return
	}

	def, err := h.stores.Workflows.Get(r.Context(), id)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, def)
}

// EnrollSubject handles POST /workflows/{id}/enroll.
func (h *Handler) EnrollSubject(w http.ResponseWriter, r *http.Request) {
	var req types.EnrollRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	exec, err := h.engine.Enroll(r.Context(), chi.URLParam(r, "id"), req.SubjectID, req.Contact)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, types.EnrollFromExecution(exec))
}

// TriggerEvent handles POST /triggers/{trigger}.
func (h *Handler) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	trigger := workflow.TriggerType(chi.URLParam(r, "trigger"))
	if !workflow.ValidTrigger(trigger) {
		h.respondError(w, http.StatusBadRequest, "unknown trigger")
		return
	}

	var req types.TriggerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	// The engine continues past individual workflow failures; surface the
	// error only when no workflow on the trigger enrolled at all.
	execs, err := h.engine.EnrollByTrigger(r.Context(), trigger, req.SubjectID, req.Contact)
	if err != nil && len(execs) == 0 {
		h.respondEngineError(w, err)
		return
	}

	resp := types.TriggerResponse{Trigger: string(trigger), Enrolled: []types.EnrollResponse{}}
	for i := range execs {
		resp.Enrolled = append(resp.Enrolled, types.EnrollFromExecution(execs[i]))
	}
	h.respondJSON(w, http.StatusOK, resp)
}
