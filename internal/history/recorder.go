// Package history records the client timeline. Recording is best-effort:
// failures are logged and counted, never returned to the caller.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"agencyops/internal/history/models"
	id "agencyops/pkg/domain"
	"agencyops/pkg/requestcontext"
)

const defaultWriteTimeout = 2 * time.Second

var (
	recorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agencyops_history_events_recorded_total",
		Help: "Client history events appended, by event type",
	}, []string{"event_type"})

	writeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agencyops_history_write_failures_total",
		Help: "Client history events that could not be appended, by event type",
	}, []string{"event_type"})
)

type Store interface {
	Append(ctx context.Context, e *models.Event) error
}

// Publisher mirrors events to an external stream.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte)
}

// Recorder appends events and optionally mirrors them to a Publisher.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

type Option func(*Recorder)

func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: slog.Default(), timeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an event for clientID. It never fails the caller.
func (r *Recorder) Record(ctx context.Context, clientID id.ContactID, eventType, action, description string, metadata map[string]any) {
	e := &models.Event{
		ID:          id.EventID(uuid.New()),
		ClientID:    clientID,
		Type:        eventType,
		Action:      action,
		Date:        requestcontext.Now(ctx),
		Description: description,
		Metadata:    metadata,
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.store.Append(writeCtx, e); err != nil {
		writeFailures.WithLabelValues(eventType).Inc()
		r.logger.WarnContext(ctx, "client history write failed",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", clientID.String(),
			"event_type", eventType,
			"event_action", action,
			"error", err.Error(),
		)
		return
	}
	recorded.WithLabelValues(eventType).Inc()

	if r.publisher != nil {
		payload, err := json.Marshal(e)
		if err != nil {
			r.logger.WarnContext(ctx, "marshal history event failed", "error", err.Error())
			return
		}
		r.publisher.Publish(ctx, clientID.String(), payload)
	}
}
