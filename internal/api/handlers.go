package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/executor"
	"github.com/starford/ansuz/internal/intent"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/voice"
)

// Handler holds API route handlers.
type Handler struct {
	exec    *executor.Executor
	store   store.Store
	userID  string
	interp  *intent.Source
	broker  *sse.Broker
	courier voice.Courier

	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	AgentID string    `json:"agent_id"`
	Created time.Time `json:"created"`
}

// NewHandler creates a new Handler.
func NewHandler(exec *executor.Executor, st store.Store, userID string, interp *intent.Source, broker *sse.Broker, courier voice.Courier) *Handler {
	if courier == nil {
		courier = &voice.LogCourier{}
	}
	return &Handler{
		exec:     exec,
		store:    st,
		userID:   userID,
		interp:   interp,
		broker:   broker,
		courier:  courier,
		sessions: make(map[string]session),
	}
}

// writeError maps service errors onto the JSON error envelope:
// validation 400, not found 404, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

// Health handles GET / with a discovery document.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Ansuz note & reminder webhook server is running",
		"endpoints": map[string]string{
			"webhook": "/webhook",
			"tools":   "/tools",
			"process": "/api/process",
			"events":  "/api/events",
		},
	})
}

// Tools handles GET /tools: the tool-discovery document used to
// configure the voice agent.
func (h *Handler) Tools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": toolCatalog})
}

// Webhook handles POST /webhook: a structured tool call from the voice
// agent, with all parameters flat at the top level.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	slog.Info("webhook tool call",
		slog.String("tool", req.ToolName),
		slog.String("conversation_id", req.ConversationID))

	ctx := r.Context()
	var (
		res executor.Result
		err error
	)
	switch req.ToolName {
	case ToolAddNote:
		res, err = h.exec.AddNote(ctx, req.Title, req.Content)
	case ToolAddReminder:
		res, err = h.exec.AddReminder(ctx, req.Title, req.Content, req.Date, req.Time)
	case ToolModifyNote:
		res, err = h.exec.ModifyNote(ctx, req.id(), req.Title, req.Content)
	case ToolCompleteNote:
		res, err = h.exec.CompleteNote(ctx, req.id(), req.Title, req.completed())
	case ToolDeleteNote:
		res, err = h.exec.DeleteNote(ctx, req.id(), req.Title)
	case ToolGetNotes:
		res, err = h.exec.GetNotes(ctx, req.Type, req.Search)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if req.ToolName != ToolGetNotes {
		h.broker.PublishItemEvent("changed", "", "")
	}
	writeJSON(w, http.StatusOK, res.Body)
}

// Process handles POST /api/process: a raw transcript. Unmatched input
// mutates nothing and returns a null response so the caller can let the
// agent answer naturally.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	it := h.interp.Current().Interpret(req.UserInput)
	if it == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"response": nil,
			"action":   nil,
		})
		return
	}

	ctx := r.Context()
	out, err := h.exec.Execute(ctx, it)
	if err != nil {
		writeError(w, err)
		return
	}

	if out.Action != nil {
		h.broker.PublishItemEvent("changed", "", "")
	}

	notes, err := h.store.ListNotes(ctx, h.userID, store.Filter{})
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrBackend, err))
		return
	}
	if len(notes) > 10 {
		notes = notes[:10]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response": out.Response,
		"action":   out.Action,
		"notes":    notes,
	})
}

// CreateSession handles POST /api/session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = session{AgentID: req.AgentID, Created: time.Now().UTC()}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.store.ListNotes(r.Context(), h.userID, store.Filter{})
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrBackend, err))
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": notes})
}

// ListReminders handles GET /api/reminders.
func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.store.ListReminders(r.Context(), h.userID, store.Filter{})
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrBackend, err))
		return
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": reminders})
}

// ListAll handles GET /api/notes-and-reminders for UI polling.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notes, err := h.store.ListNotes(ctx, h.userID, store.Filter{})
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrBackend, err))
		return
	}
	reminders, err := h.store.ListReminders(ctx, h.userID, store.Filter{})
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", apperr.ErrBackend, err))
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	if reminders == nil {
		reminders = []models.Reminder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"notes":     notes,
			"reminders": reminders,
			"total":     len(notes) + len(reminders),
		},
	})
}

// CompleteNote handles PATCH /api/notes/{id}/complete from the UI.
func (h *Handler) CompleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	note, err := h.store.UpdateNote(r.Context(), h.userID, id, store.NotePatch{Completed: &req.Completed})
	if err != nil {
		writeError(w, err)
		return
	}

	state := "completed"
	if !req.Completed {
		state = "uncompleted"
	}
	h.courier.ContextualUpdate(fmt.Sprintf("User marked note %q as %s", note.Title, state))
	h.broker.PublishItemEvent("updated", string(models.KindNote), note.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    note,
		"message": fmt.Sprintf("Note %s successfully", state),
	})
}

// DeleteNote handles DELETE /api/notes/{id} from the UI.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	note, err := h.store.DeleteNote(r.Context(), h.userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.courier.ContextualUpdate(fmt.Sprintf("User deleted note: %q", note.Title))
	h.broker.PublishItemEvent("deleted", string(models.KindNote), id)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Note deleted successfully",
	})
}

// DeleteReminder handles DELETE /api/reminders/{id} from the UI.
func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reminder, err := h.store.DeleteReminder(r.Context(), h.userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.courier.ContextualUpdate(fmt.Sprintf("User deleted reminder: %q", reminder.Title))
	h.broker.PublishItemEvent("deleted", string(models.KindReminder), id)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Reminder deleted successfully",
	})
}
