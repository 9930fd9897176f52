package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lumabook/automation/internal/api/types"
	"github.com/lumabook/automation/internal/workflow"
)

// ListExecutions handles GET /executions. Exactly one of subject_id,
// workflow_id or status selects the index to scan.
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()

	var (
		execs []workflow.Execution
		err   error
	)
	switch {
	case q.Get("subject_id") != "":
		execs, err = h.stores.Executions.ListBySubject(r.Context(), q.Get("subject_id"), limit, offset)
	case q.Get("workflow_id") != "":
		execs, err = h.stores.Executions.ListByWorkflow(r.Context(), q.Get("workflow_id"), limit, offset)
	case q.Get("status") != "":
		execs, err = h.stores.Executions.ListByStatus(r.Context(), workflow.ExecutionStatus(q.Get("status")), limit, offset)
	default:
		h.respondError(w, http.StatusBadRequest, "one of subject_id, workflow_id or status is required")
		return
	}
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, types.NewListResponse(execs, limit, offset))
}

// GetExecution handles GET /executions/{id}.
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.stores.Executions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, exec)
}

// AdvanceExecution handles POST /executions/{id}/advance.
func (h *Handler) AdvanceExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.engine.Advance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, exec)
}

// CancelExecution handles POST /executions/{id}/cancel.
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.engine.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, exec)
}

// PauseExecution handles POST /executions/{id}/pause.
func (h *Handler) PauseExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.engine.Pause(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, exec)
}

// ResumeExecution handles POST /executions/{id}/resume.
func (h *Handler) ResumeExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := h.engine.Resume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, exec)
}

// ListExecutionTasks handles GET /executions/{id}/tasks.
func (h *Handler) ListExecutionTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.stores.Tasks.ListByExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, types.NewListResponse(tasks, len(tasks), 0))
}

// ListExecutionDeliveries handles GET /executions/{id}/deliveries.
func (h *Handler) ListExecutionDeliveries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stores.Deliveries.ListByExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, types.NewListResponse(entries, len(entries), 0))
}

// Sweep handles POST /sweep, a manual trigger of the due-execution sweep.
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Sweep(r.Context())
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}
