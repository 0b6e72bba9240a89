package edge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"consentd/internal/consent/extension"
	"consentd/internal/consent/models"
	"consentd/internal/platform/kafka/consumer"
	"consentd/internal/platform/kafka/producer"
)

// Responder stands in for the remote consent service in local setups. It
// answers every update request with a consent preference handle carrying
// the requested consents, stamped with the request time when they have
// none.
type Responder struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

// NewResponder creates a Responder publishing handles to ackTopic.
func NewResponder(publisher Publisher, ackTopic string, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Responder{publisher: publisher, topic: ackTopic, logger: logger}
}

// Handle implements consumer.Handler.
func (r *Responder) Handle(ctx context.Context, msg *consumer.Message) error {
	var req UpdateRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		r.logger.WarnContext(ctx, "update request is not valid json, skipping",
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	consents := models.FromCategories(req.Consents)
	if consents.IsEmpty() {
		r.logger.DebugContext(ctx, "update request has no consents, skipping", "event_id", req.EventID)
		return nil
	}
	if _, ok := consents.Timestamp(); !ok {
		if t, err := time.Parse(models.TimestampLayout, req.Timestamp); err == nil {
			consents.SetTimestamp(t)
		}
	}

	value, err := json.Marshal(map[string]any{
		extension.KeyType:    extension.EventSourceConsentPreference,
		extension.KeyPayload: []any{consents.Categories()},
	})
	if err != nil {
		return fmt.Errorf("encode consent preference handle: %w", err)
	}

	if err := r.publisher.Publish(ctx, producer.Message{
		Topic: r.topic,
		Key:   []byte(extension.Name),
		Value: value,
		Headers: map[string]string{
			"request_event_id": req.EventID,
		},
	}); err != nil {
		return fmt.Errorf("publish consent preference handle: %w", err)
	}

	r.logger.InfoContext(ctx, "answered update request", "event_id", req.EventID)
	return nil
}
