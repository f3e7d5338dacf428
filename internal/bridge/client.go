// Package bridge forwards registration and assignment submissions to the
// external case-management webhook.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"agencyops/internal/platform/config"
	dErrors "agencyops/pkg/domain-errors"
	"agencyops/pkg/requestcontext"
)

// Kind names the submission being forwarded.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindAssignment   Kind = "assignment"
)

// APIKeyHeader carries the bridge credential on outbound calls.
const APIKeyHeader = "X-API-Key"

const defaultTimeout = 10 * time.Second

// maxResponseBytes bounds how much of the webhook's reply is read.
const maxResponseBytes = 64 << 10

var (
	tracer = otel.Tracer("agencyops/bridge")

	forwards = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agencyops_bridge_forwards_total",
		Help: "Submissions forwarded to the case-management webhook",
	}, []string{"kind", "outcome"})
	forwardDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agencyops_bridge_forward_duration_seconds",
		Help:    "Latency of webhook calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Client posts JSON payloads to the webhook. Calls are bounded by the
// configured timeout and are never retried.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	logger   *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient builds a client for cfg. An empty webhook URL yields a client
// whose every call fails with an upstream error.
func NewClient(cfg config.BridgeConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		endpoint: strings.TrimSpace(cfg.WebhookURL),
		apiKey:   cfg.APIKey,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Type       Kind              `json:"type"`
	RequestID  string            `json:"requestId,omitempty"`
	ReceivedAt time.Time         `json:"receivedAt"`
	Data       map[string]string `json:"data"`
}

type reply struct {
	ID string `json:"id"`
}

// Forward sends fields to the webhook and returns the identifier it assigns.
// Any transport failure, non-2xx status or reply without an id is an
// upstream error.
func (c *Client) Forward(ctx context.Context, kind Kind, fields map[string]string) (string, error) {
	if c.endpoint == "" {
		return "", dErrors.New(dErrors.CodeUpstream, "bridge webhook is not configured")
	}

	ctx, span := tracer.Start(ctx, "bridge.forward")
	span.SetAttributes(attribute.String("bridge.kind", string(kind)))
	defer span.End()

	start := time.Now()
	correlationID, err := c.post(ctx, kind, fields)
	forwardDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		forwards.WithLabelValues(string(kind), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "forward failed")
		c.logger.ErrorContext(ctx, "bridge forward failed",
			"kind", kind,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", dErrors.Wrap(err, dErrors.CodeUpstream, "failed to forward "+string(kind))
	}
	forwards.WithLabelValues(string(kind), "ok").Inc()
	return correlationID, nil
}

func (c *Client) post(ctx context.Context, kind Kind, fields map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(envelope{
		Type:       kind,
		RequestID:  requestcontext.RequestID(ctx),
		ReceivedAt: requestcontext.Now(ctx),
		Data:       fields,
	})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read webhook reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("webhook returned %d", resp.StatusCode)
	}

	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", fmt.Errorf("decode webhook reply: %w", err)
	}
	if strings.TrimSpace(r.ID) == "" {
		return "", fmt.Errorf("webhook reply has no id")
	}
	return r.ID, nil
}
