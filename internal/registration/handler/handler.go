package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"checkpoint/internal/registration/aggregator"
	"checkpoint/internal/registration/models"
	"checkpoint/internal/registration/service"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// Service defines the registration operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req aggregator.Request, extra map[string]any) (*service.Result, error)
	List(ctx context.Context) ([]*models.Registration, error)
	Get(ctx context.Context, id string) (*models.Registration, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q models.Query) ([]*models.Registration, error)
	Stats(ctx context.Context) models.Stats
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// New constructs a registration handler. maxUploadBytes caps the multipart
// body of a submission.
func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/registrations", h.HandleRegister)
		r.Get("/registrations", h.HandleList)
		r.Get("/registrations/search", h.HandleSearch)
		r.Get("/registrations/{id}", h.HandleGet)
		r.Delete("/registrations/{id}", h.HandleDelete)
		r.Get("/stats", h.HandleStats)
	})
}

// HandleRegister handles POST /api/registrations. A recognized submission is
// 201; unrecognized images are 422; a recognizer that could not be reached
// is 502.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	req, extra, err := parseRegisterRequest(r, h.maxUploadBytes)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid registration submission", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Register(ctx, req, extra)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	switch {
	case result.Outcome.Success:
	case result.Outcome.Registration == nil:
		status = http.StatusBadGateway
	default:
		status = http.StatusUnprocessableEntity
	}

	h.logger.InfoContext(ctx, "registration submitted",
		"request_id", requestID,
		"type", req.Direction,
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, status, FromResult(result))
}

// HandleList handles GET /api/registrations.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	rs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list registrations", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(rs))
}

// HandleSearch handles GET /api/registrations/search?plate=&idNumber=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	rs, err := h.service.Search(r.Context(), searchQuery(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(rs))
}

// HandleGet handles GET /api/registrations/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleDelete handles DELETE /api/registrations/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "registration deleted",
		"request_id", requestcontext.RequestID(ctx),
		"registration_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{RegistrationID: id, Deleted: true})
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Stats(r.Context()))
}
