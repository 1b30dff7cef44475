package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/question"
)

var (
	errMissingSelection = errors.New("missing subject or chapter")
	errBadTimeLimit     = errors.New("timeLimit must be a non-negative integer")
	errBadTimerMode     = errors.New("timerMode must be empty, total, or per-question")
)

// AdminHandler exposes the content-status toolbar's two operations: the
// per-status counts read and the bulk status write.
type AdminHandler struct {
	repo *question.Repository
}

func NewAdminHandler(repo *question.Repository) *AdminHandler {
	return &AdminHandler{repo: repo}
}

// ServeStatus handles GET /admin/status?subject=... returning StatusCounts.
func (h *AdminHandler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		http.Error(w, "missing subject", http.StatusBadRequest)
		return
	}
	counts, err := h.repo.StatusCounts(r.Context(), subject)
	if err != nil {
		writeBulkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

type bulkRequest struct {
	Subject string            `json:"subject"`
	Action  domain.BulkAction `json:"action"`
	IDs     []int             `json:"ids"`
}

type bulkResponse struct {
	Affected int `json:"affected"`
}

// ServeBulk handles POST /admin/bulk applying a status action to a set of ids.
func (h *AdminHandler) ServeBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Subject == "" {
		http.Error(w, "missing subject", http.StatusBadRequest)
		return
	}
	affected, err := h.repo.ApplyBulkAction(r.Context(), req.Subject, req.Action, req.IDs)
	if err != nil {
		writeBulkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Affected: affected})
}

func writeBulkError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, domain.ErrBankNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownBulkAction):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
