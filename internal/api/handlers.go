package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/apperr"
	"github.com/LeventeLantos/reminderbot/internal/model"
	"github.com/LeventeLantos/reminderbot/internal/scheduler"
	"github.com/LeventeLantos/reminderbot/internal/service"
)

type Handler struct {
	sched     *scheduler.Scheduler
	reminders *service.Reminders
	pending   *service.Pending
	loc       *time.Location
	now       func() time.Time
}

func NewHandler(s *scheduler.Scheduler, r *service.Reminders, p *service.Pending, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{sched: s, reminders: r, pending: p, loc: loc, now: time.Now}
}

// WithClock overrides the time source used for every request.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.Status())
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

type createReminderRequest struct {
	service.CreateRequest
	Time string `json:"time"`
}

type reminderResponse struct {
	Reminder     model.Reminder       `json:"reminder"`
	Confirmation service.Confirmation `json:"confirmation"`
}

func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.CodeInvalidArgument, "invalid json body", err))
		return
	}

	now := h.now()
	rem, err := h.reminders.Create(r.Context(), req.CreateRequest, req.Time, now)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reminderResponse{
		Reminder:     rem,
		Confirmation: service.RenderConfirmation(rem, now, h.loc),
	})
}

func (h *Handler) ListReminders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, apperr.InvalidArg("user_id is required"))
		return
	}

	now := h.now()
	rems, err := h.reminders.ListActive(r.Context(), userID, now)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"items":   service.RenderListing(rems, now, h.loc),
		"message": "",
	}
	if len(rems) == 0 {
		resp["message"] = "📭 You have no active reminders."
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) BeginPending(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.CodeInvalidArgument, "invalid json body", err))
		return
	}

	ticket, err := h.pending.Begin(req, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ticket)
}

func (h *Handler) ResolvePending(w http.ResponseWriter, r *http.Request) {
	var reply service.Reply
	if err := json.NewDecoder(r.Body).Decode(&reply); err != nil {
		writeError(w, apperr.Wrap(apperr.CodeInvalidArgument, "invalid json body", err))
		return
	}

	now := h.now()
	rem, err := h.pending.Resolve(r.Context(), r.PathValue("token"), reply, now)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reminderResponse{
		Reminder:     rem,
		Confirmation: service.RenderConfirmation(rem, now, h.loc),
	})
}

func writeError(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error(), "code": apperr.CodeOf(err)}

	var ae *apperr.AppError
	if errors.As(err, &ae) && ae.Code == apperr.CodeUnavailable {
		// Do not leak storage internals to callers.
		body["error"] = ae.Message
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
