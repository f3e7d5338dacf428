package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyops/internal/timesheet/models"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/httputil"
	"agencyops/pkg/platform/validation"
)

// Service defines the timesheet operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateTimesheetRequest) (*models.Created, error)
	ResolveByToken(ctx context.Context, token string) (*models.View, error)
	Summary(ctx context.Context, token string) (*models.Summary, error)
	Approve(ctx context.Context, token, approver string) (*models.Timesheet, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router, requireKey func(http.Handler) http.Handler) {
	r.Get("/timesheets/view", h.HandleView)
	r.Get("/timesheets/summary", h.HandleSummary)
	r.Post("/timesheets/approve", h.HandleApprove)
	r.With(requireKey).Post("/timesheets", h.HandleCreate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateTimesheetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid create timesheet request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid create timesheet request", err)
		return
	}

	created, err := h.service.Create(ctx, &req)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to create timesheet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"timesheetId": created.Timesheet.ID,
		"token":       created.Token,
	})
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := h.token(w, r)
	if !ok {
		return
	}
	view, err := h.service.ResolveByToken(ctx, token)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to fetch timesheet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, ok := h.token(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(ctx, token)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to summarize timesheet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ApproveTimesheetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid approve request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid approve request", err)
		return
	}

	ts, err := h.service.Approve(ctx, req.Token, req.ApproverName)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to approve timesheet", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"timesheetId": ts.ID,
		"status":      ts.Status,
	})
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.RespondError(r.Context(), h.logger, w, "timesheet token missing",
			dErrors.New(dErrors.CodeBadRequest, "token query parameter is required"))
		return "", false
	}
	return token, true
}
