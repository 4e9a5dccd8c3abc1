package api

import (
	"log/slog"
	"net/http"
	"time"
)

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/scheduler/status", h.SchedulerStatus)
	mux.HandleFunc("POST /v1/scheduler/start", h.SchedulerStart)
	mux.HandleFunc("POST /v1/scheduler/stop", h.SchedulerStop)

	mux.HandleFunc("POST /v1/reminders", h.CreateReminder)
	mux.HandleFunc("GET /v1/reminders", h.ListReminders)
	mux.HandleFunc("POST /v1/reminders/pending", h.BeginPending)
	mux.HandleFunc("POST /v1/reminders/pending/{token}", h.ResolvePending)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("reminderbot"))
	})

	return LoggingMiddleware(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration of every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
