package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifier/pkg/ingest"
	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/store"
)

// Handler serves the notification HTTP API.
type Handler struct {
	ingest *ingest.Service
	store  store.Store
	logger *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for the Handler.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates the API handler.
func NewHandler(svc *ingest.Service, st store.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		ingest: svc,
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router mounts the API routes on a new chi router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1/notifications", func(r chi.Router) {
		r.Post("/", h.submit)
		r.Get("/{id}/status", h.status)
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req ingest.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	result, err := h.ingest.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, notification.ErrValidation) || errors.Is(err, notification.ErrUnknownChannel) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.LogAttrs(r.Context(), slog.LevelError, "Submission failed",
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unable to accept the request, retry with the same idempotency key"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type statusResponse struct {
	Request      notification.Request       `json:"request"`
	DeliveryLogs []notification.DeliveryLog `json:"delivery_logs"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
		return
	}

	req, err := h.store.GetRequest(r.Context(), id)
	if err != nil {
		if errors.Is(err, notification.ErrRequestNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "request not found"})
			return
		}
		h.logger.LogAttrs(r.Context(), slog.LevelError, "Status lookup failed",
			slog.String("request_id", id.String()),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable"})
		return
	}

	logs, err := h.store.ListDeliveryLogs(r.Context(), id)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "Delivery log lookup failed",
			slog.String("request_id", id.String()),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Request: *req, DeliveryLogs: logs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
