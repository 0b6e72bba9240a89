package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"consentd/internal/consent/extension"
	"consentd/internal/eventbus"
	"consentd/internal/platform/kafka/consumer"
)

// Dispatcher queues events on the hub.
type Dispatcher interface {
	Dispatch(ctx context.Context, event eventbus.Event) error
}

// AckHandler turns consent preference handles consumed from Kafka into
// remote acknowledgement events on the hub.
type AckHandler struct {
	hub     Dispatcher
	logger  *slog.Logger
	metrics *Metrics
}

// NewAckHandler creates an AckHandler. logger and metrics may be nil.
func NewAckHandler(hub Dispatcher, logger *slog.Logger, metrics *Metrics) *AckHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AckHandler{hub: hub, logger: logger, metrics: metrics}
}

// Handle implements consumer.Handler. Malformed handles are logged and
// committed; a closed hub returns an error so the record is redelivered.
func (h *AckHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var handle map[string]any
	if err := json.Unmarshal(msg.Value, &handle); err != nil {
		h.metrics.IncAcks("malformed")
		h.logger.WarnContext(ctx, "consent preference handle is not valid json, skipping",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	if t, _ := handle[extension.KeyType].(string); t != extension.EventSourceConsentPreference {
		h.metrics.IncAcks("ignored")
		h.logger.DebugContext(ctx, "handle is not a consent preference, skipping",
			"topic", msg.Topic,
			"type", t,
		)
		return nil
	}

	event := eventbus.NewEvent(
		extension.EventNameConsentPreferenceHandle,
		extension.EventTypeEdge,
		extension.EventSourceConsentPreference,
		handle,
	)
	if !msg.Timestamp.IsZero() {
		event.Timestamp = msg.Timestamp
	}

	if err := h.hub.Dispatch(ctx, event); err != nil {
		h.metrics.IncAcks("failed")
		return fmt.Errorf("dispatch consent preference handle: %w", err)
	}
	h.metrics.IncAcks("dispatched")
	return nil
}
