package edge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"consentd/internal/consent/extension"
	"consentd/internal/consent/models"
	"consentd/internal/eventbus"
	"consentd/internal/platform/kafka/producer"
	"consentd/pkg/platform/circuit"
)

const (
	batchSize = 32
	// drainTimeout bounds the final flush on shutdown.
	drainTimeout = 5 * time.Second
)

// Publisher writes a record to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg producer.Message) error
}

// Registrar is the part of the event hub the bridge listens on.
type Registrar interface {
	RegisterListener(eventType, source string, l eventbus.Listener)
}

// UpdateRequest is the record value sent to the remote consent service.
type UpdateRequest struct {
	EventID   string         `json:"event_id"`
	Timestamp string         `json:"timestamp"`
	Consents  map[string]any `json:"consents"`
}

// Forwarder publishes Edge Consent Update Request events to Kafka. The hub
// listener only buffers; Run publishes, so a slow broker never stalls the
// event lane.
type Forwarder struct {
	publisher Publisher
	topic     string
	buffer    *RingBuffer
	notify    chan struct{}
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *Metrics
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

func WithLogger(logger *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

func WithMetrics(metrics *Metrics) ForwarderOption {
	return func(f *Forwarder) {
		f.metrics = metrics
	}
}

func WithBufferSize(n int) ForwarderOption {
	return func(f *Forwarder) {
		f.buffer = NewRingBuffer(n)
	}
}

func WithBreaker(b *circuit.Breaker) ForwarderOption {
	return func(f *Forwarder) {
		f.breaker = b
	}
}

// NewForwarder creates a forwarder publishing to topic.
func NewForwarder(publisher Publisher, topic string, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		publisher: publisher,
		topic:     topic,
		buffer:    NewRingBuffer(0),
		notify:    make(chan struct{}, 1),
		breaker:   circuit.New("edge-forwarder"),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register subscribes the forwarder to edge consent update requests.
func (f *Forwarder) Register(hub Registrar) {
	hub.RegisterListener(extension.EventTypeEdge, extension.EventSourceUpdateConsent, f.HandleEdgeConsentUpdate)
}

// HandleEdgeConsentUpdate buffers event for publishing.
func (f *Forwarder) HandleEdgeConsentUpdate(ctx context.Context, event eventbus.Event) {
	if event.Name != extension.EventNameEdgeConsentUpdate {
		return
	}
	if f.buffer.Enqueue(event) {
		f.metrics.IncDropped("buffer_full")
		f.logger.WarnContext(ctx, "edge forward buffer full, dropped oldest update request")
	}
	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Run publishes buffered requests until ctx is cancelled. Requests still
// buffered at that point get one last attempt.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			f.flush(drainCtx)
			cancel()
			return ctx.Err()
		case <-f.notify:
			f.flush(ctx)
		}
	}
}

// Pending returns the number of buffered requests.
func (f *Forwarder) Pending() int {
	return f.buffer.Len()
}

func (f *Forwarder) flush(ctx context.Context) {
	for {
		batch := f.buffer.DequeueBatch(batchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			f.publish(ctx, event)
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, event eventbus.Event) {
	if !f.breaker.Allow() {
		f.metrics.IncDropped("circuit_open")
		f.logger.DebugContext(ctx, "edge circuit open, dropping update request", "event_id", event.ID)
		return
	}

	value, err := json.Marshal(UpdateRequest{
		EventID:   event.ID,
		Timestamp: models.FormatTimestamp(event.Timestamp),
		Consents:  models.FromXDM(event.Data).Categories(),
	})
	if err != nil {
		f.metrics.IncDropped("encode")
		f.logger.ErrorContext(ctx, "failed to encode update request", "event_id", event.ID, "error", err)
		return
	}

	err = f.publisher.Publish(ctx, producer.Message{
		Topic: f.topic,
		Key:   []byte(extension.Name),
		Value: value,
		Headers: map[string]string{
			"event_name": event.Name,
		},
	})
	if err != nil {
		f.metrics.IncPublishFailures()
		if _, change := f.breaker.RecordFailure(); change.Opened {
			f.metrics.SetCircuitOpen(true)
			f.logger.WarnContext(ctx, "edge circuit opened after repeated publish failures", "error", err)
		}
		f.logger.ErrorContext(ctx, "failed to publish update request",
			"event_id", event.ID,
			"topic", f.topic,
			"error", err,
		)
		return
	}

	if _, change := f.breaker.RecordSuccess(); change.Closed {
		f.metrics.SetCircuitOpen(false)
		f.logger.InfoContext(ctx, "edge circuit closed")
	}
	f.metrics.IncForwarded()
}
