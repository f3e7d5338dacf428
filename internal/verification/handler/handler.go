package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyops/internal/verification/models"
	"agencyops/pkg/platform/httputil"
	"agencyops/pkg/platform/validation"
)

// Service defines the verification operations exposed over HTTP.
type Service interface {
	RequestCode(ctx context.Context, email, purpose string) error
	Validate(ctx context.Context, email, code, purpose string) (*models.CandidateView, error)
}

// Handler serves the one-time code endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/request", h.HandleRequestCode)
	r.Post("/verification/verify", h.HandleVerify)
}

func (h *Handler) HandleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RequestCodeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid code request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid code request", err)
		return
	}

	if err := h.service.RequestCode(ctx, req.Email, req.Purpose); err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to issue verification code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "verification code sent",
	})
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.VerifyCodeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid verify request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid verify request", err)
		return
	}

	candidate, err := h.service.Validate(ctx, req.Email, req.Code, req.Purpose)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"candidate": candidate,
	})
}
