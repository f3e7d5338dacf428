package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agencyops/internal/bridge"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/platform/httputil"
)

// Forwarder relays a decoded submission and returns the remote identifier.
type Forwarder interface {
	Forward(ctx context.Context, kind bridge.Kind, fields map[string]string) (string, error)
}

// Fields each submission must carry before it is worth forwarding.
var (
	registrationFields = []string{"firstName", "lastName", "email"}
	assignmentFields   = []string{"candidateId", "clientId"}
)

type Handler struct {
	forwarder Forwarder
	logger    *slog.Logger
}

func New(forwarder Forwarder, logger *slog.Logger) *Handler {
	return &Handler{forwarder: forwarder, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/bridge/registrations", h.HandleRegistration)
	r.Post("/bridge/assignments", h.HandleAssignment)
}

func (h *Handler) HandleRegistration(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, bridge.KindRegistration, registrationFields, "candidateId")
}

func (h *Handler) HandleAssignment(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, bridge.KindAssignment, assignmentFields, "assignmentId")
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, kind bridge.Kind, required []string, idKey string) {
	ctx := r.Context()

	if r.Body == nil {
		httputil.RespondError(ctx, h.logger, w, "empty "+string(kind), dErrors.New(dErrors.CodeBadRequest, "request body is required"))
		return
	}
	body := http.MaxBytesReader(w, r.Body, bridge.MaxFormBytes)
	fields, err := bridge.DecodeForm(body, r.Header.Get("Content-Type"))
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "invalid "+string(kind)+" form", err)
		return
	}
	if err := bridge.Require(fields, required...); err != nil {
		httputil.RespondError(ctx, h.logger, w, "incomplete "+string(kind)+" form", err)
		return
	}

	correlationID, err := h.forwarder.Forward(ctx, kind, fields)
	if err != nil {
		httputil.RespondError(ctx, h.logger, w, "failed to forward "+string(kind), err)
		return
	}
	h.logger.InfoContext(ctx, "submission forwarded",
		"kind", kind,
		idKey, correlationID,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		idKey:     correlationID,
	})
}
