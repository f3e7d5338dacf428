package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyops/internal/contract/models"
	id "agencyops/pkg/domain"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/httputil"
	"agencyops/pkg/platform/validation"
)

// Service defines the contract operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateContractRequest) (*models.Created, error)
	FetchByToken(ctx context.Context, token string) (*models.View, error)
	Send(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	Expire(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	Sign(ctx context.Context, token string, signer models.Signer) (*models.Contract, error)
}

// Handler serves the contract lifecycle endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes. Token holders may view and sign; creating and
// moving contracts requires the internal API key.
func (h *Handler) Register(r chi.Router, requireKey func(http.Handler) http.Handler) {
	r.Get("/contracts/view", h.HandleView)
	r.Post("/contracts/sign", h.HandleSign)
	r.With(requireKey).Post("/contracts", h.HandleCreate)
	r.With(requireKey).Post("/contracts/{id}/send", h.HandleSend)
	r.With(requireKey).Post("/contracts/{id}/expire", h.HandleExpire)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateContractRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid create contract request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid create contract request", err)
		return
	}

	created, err := h.service.Create(ctx, &req)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to create contract", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"contractId": created.Contract.ID,
		"token":      created.Token,
		"status":     created.Contract.Status,
	})
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("id")
	if token == "" {
		httputil.RespondError(ctx, h.logger, w, "contract token missing",
			dErrors.New(dErrors.CodeBadRequest, "id query parameter is required"))
		return
	}
	view, err := h.service.FetchByToken(ctx, token)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to fetch contract", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.SignContractRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid sign request", err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid sign request", err)
		return
	}

	contract, err := h.service.Sign(ctx, req.Token, models.Signer{
		Name:     req.SignerName,
		Position: req.SignerPosition,
		Company:  req.SignerCompany,
	})
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to sign contract", err)
		return
	}
	writeStatus(w, contract)
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Send, "failed to send contract")
}

func (h *Handler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Expire, "failed to expire contract")
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.ContractID) (*models.Contract, error), failMsg string) {
	ctx := r.Context()

	contractID, err := id.ParseContractID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid contract id", err)
		return
	}
	contract, err := op(ctx, contractID)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, failMsg, err)
		return
	}
	writeStatus(w, contract)
}

func writeStatus(w http.ResponseWriter, c *models.Contract) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"contractId": c.ID,
		"status":     c.Status,
	})
}
