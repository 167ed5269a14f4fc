package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/entitygen/internal/core/appctx"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

type sessionResponse struct {
	ID        string              `json:"id"`
	Status    string              `json:"status"`
	Success   bool                `json:"success"`
	Version   int64               `json:"version"`
	State     domain.SessionState `json:"state"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
}

type eventResponse struct {
	ID         int64  `json:"id"`
	EventID    string `json:"event_id"`
	Action     string `json:"action"`
	Actor      string `json:"actor"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ErrorCount int    `json:"error_count"`
	Version    int64  `json:"version"`
	OccurredAt string `json:"occurred_at"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Status:    s.Status,
		Success:   s.Status == appctx.StatusClean.String(),
		Version:   s.Version,
		State:     s.State,
		CreatedAt: s.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: s.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toEventResponse(e domain.SessionEvent) eventResponse {
	return eventResponse{
		ID:         e.ID,
		EventID:    e.EventID,
		Action:     e.Action,
		Actor:      e.Actor,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ErrorCount: e.ErrorCount,
		Version:    e.Version,
		OccurredAt: e.OccurredAt.UTC().Format(timeFormat),
	}
}

// createSession accepts an optional JSON object used as the initial input.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	var input map[string]any
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	session, err := h.sessions.Create(r.Context(), tenantIDFromContext(r.Context()), input, actorFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), tenantIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// validateSession runs one attempt against the session. A failed attempt is
// still persisted and answered with 422.
func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	body, err := readSchemaBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	session, err := h.sessions.Validate(r.Context(), tenantIDFromContext(r.Context()), chi.URLParam(r, "id"), body, actorFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	resp := toSessionResponse(session)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Reset(r.Context(), tenantIDFromContext(r.Context()), chi.URLParam(r, "id"), actorFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.sessions.Delete(r.Context(), tenantIDFromContext(r.Context()), chi.URLParam(r, "id"), actorFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *Handler) sessionEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	var afterID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		afterID = parsed
	}

	events, err := h.sessions.History(r.Context(), domain.EventFilter{
		TenantID:  tenantIDFromContext(r.Context()),
		SessionID: chi.URLParam(r, "id"),
		Action:    r.URL.Query().Get("action"),
		AfterID:   afterID,
		Limit:     limit,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	items := make([]eventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
