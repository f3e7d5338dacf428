package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyops/internal/contact/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/platform/httputil"
	"agencyops/pkg/platform/validation"
)

// Service defines the contact operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateContactRequest) (*models.Contact, error)
	Get(ctx context.Context, contactID id.ContactID) (*models.Contact, error)
}

// Handler serves the internal contact registry endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes; every route requires the internal API key.
func (h *Handler) Register(r chi.Router, requireKey func(http.Handler) http.Handler) {
	r.With(requireKey).Post("/contacts", h.HandleCreate)
	r.With(requireKey).Get("/contacts/{id}", h.HandleGet)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateContactRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid create contact request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid create contact request", err)
		return
	}

	c, err := h.service.Create(ctx, &req)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to create contact", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"contact": c,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contactID, err := id.ParseContactID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid contact id", err)
		return
	}
	c, err := h.service.Get(ctx, contactID)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to load contact", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"contact": c,
	})
}
