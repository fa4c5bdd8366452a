// Package api exposes HTTP handlers for the activity catalog.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"example.com/activities/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/activities", h.activities)
	mux.HandleFunc("/activities/", h.rosterAction)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	snapshot := h.service.ListActivities(r.Context())
	resp := make(map[string]ActivityView, len(snapshot))
	for name, view := range snapshot {
		resp[name] = toActivityView(view)
	}
	writeJSON(w, http.StatusOK, resp)
}

// rosterAction serves POST /activities/{name}/signup and POST /activities/{name}/unregister.
func (h *Handler) rosterAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/activities/")
	idx := strings.LastIndex(rest, "/")
	if idx < 0 {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	name, action := rest[:idx], rest[idx+1:]
	if action != "signup" && action != "unregister" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	req := RosterRequest{
		Activity: strings.TrimSpace(name),
		Email:    strings.TrimSpace(r.URL.Query().Get("email")),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var (
		confirmation domain.Confirmation
		err          error
	)
	if action == "signup" {
		confirmation, err = h.service.Enroll(r.Context(), req.Activity, req.Email)
	} else {
		confirmation, err = h.service.Withdraw(r.Context(), req.Activity, req.Email)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: confirmationMessage(confirmation)})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "activity_not_found", "Activity not found")
	case errors.Is(err, domain.ErrDuplicateEnrollment):
		writeError(w, http.StatusBadRequest, "already_signed_up", "Student is already signed up for this activity")
	case errors.Is(err, domain.ErrNotEnrolled):
		writeError(w, http.StatusBadRequest, "not_signed_up", "Student is not signed up for this activity")
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "activity_full", "Activity is full")
	default:
		h.logger.Error("roster operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func confirmationMessage(c domain.Confirmation) string {
	if c.Action == domain.ActionWithdrawn {
		return fmt.Sprintf("Unregistered %s from %s", c.Participant, c.Activity)
	}
	return fmt.Sprintf("Signed up %s for %s", c.Participant, c.Activity)
}

// ActivityView is the public representation of an activity in GET /activities.
type ActivityView struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	SpotsLeft       *int     `json:"spots_left,omitempty"`
	Participants    []string `json:"participants"`
}

// MessageResponse carries the human-readable confirmation of a roster change.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body written for every non-2xx response.
type ErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(v domain.ActivityView) ActivityView {
	out := ActivityView{
		Description:     v.Description,
		Schedule:        v.Schedule,
		MaxParticipants: v.MaxParticipants,
		Participants:    v.Participants,
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	if left, ok := v.SpotsLeft(); ok {
		out.SpotsLeft = &left
	}
	return out
}
