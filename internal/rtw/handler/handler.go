package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyops/internal/rtw/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/httputil"
	"agencyops/pkg/platform/validation"
)

// Service defines the right-to-work operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateCheckRequest) (*models.Created, error)
	Get(ctx context.Context, checkID id.RtwCheckID) (*models.Check, error)
	RecordOutcome(ctx context.Context, checkID id.RtwCheckID, verified bool, notes string) (*models.Check, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes. Candidates open checks from the portal;
// reading a check and recording its outcome are staff operations.
func (h *Handler) Register(r chi.Router, requireKey func(http.Handler) http.Handler) {
	r.Post("/rtw/checks", h.HandleCreate)
	r.With(requireKey).Get("/rtw/checks/{id}", h.HandleGet)
	r.With(requireKey).Post("/rtw/checks/{id}/outcome", h.HandleOutcome)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateCheckRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid rtw check request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid rtw check request", err)
		return
	}

	created, err := h.service.Create(ctx, &req)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to create rtw check", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"rtwCheckId": created.Check.ID,
		"status":     created.Check.Status,
		"nextSteps":  created.NextSteps,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checkID, err := id.ParseRtwCheckID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid rtw check id", err)
		return
	}
	check, err := h.service.Get(ctx, checkID)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to load rtw check", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "check": check})
}

func (h *Handler) HandleOutcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checkID, err := id.ParseRtwCheckID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid rtw check id", err)
		return
	}
	var req models.RecordOutcomeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid rtw outcome request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid rtw outcome request", err)
		return
	}

	check, err := h.service.RecordOutcome(ctx, checkID, *req.Verified, req.Notes)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to record rtw outcome", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"rtwCheckId":      check.ID,
		"status":          check.Status,
		"statutoryExcuse": check.StatutoryExcuse,
	})
}
