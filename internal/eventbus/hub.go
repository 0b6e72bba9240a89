package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrClosed is returned by Dispatch after the hub stopped running.
	ErrClosed = errors.New("event hub closed")
	// ErrResponseTimeout is returned when no correlated response arrives in time.
	ErrResponseTimeout = errors.New("timed out waiting for response event")
)

// Wildcard matches any event type or source in RegisterListener.
const Wildcard = "*"

// Listener handles one event. Listeners run on the hub lane, one at a time,
// in dispatch order.
type Listener func(ctx context.Context, event Event)

type listenerKey struct {
	eventType string
	source    string
}

// Hub serializes event delivery onto a single worker goroutine. Dispatch
// never blocks, so listeners may dispatch follow-up events; those are
// delivered after the current event completes.
type Hub struct {
	logger *slog.Logger
	tracer trace.Tracer

	mu        sync.RWMutex
	listeners map[listenerKey][]Listener

	queueMu sync.Mutex
	pending []Event
	notify  chan struct{}
	closed  bool

	waitersMu sync.Mutex
	waiters   map[string]chan Event

	shared *SharedStates
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:    logger,
		tracer:    otel.Tracer("consentd/eventbus"),
		listeners: make(map[listenerKey][]Listener),
		notify:    make(chan struct{}, 1),
		waiters:   make(map[string]chan Event),
		shared:    NewSharedStates(),
	}
}

// RegisterListener subscribes l to events matching eventType and source.
// Either may be Wildcard.
func (h *Hub) RegisterListener(eventType, source string, l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := listenerKey{eventType: eventType, source: source}
	h.listeners[key] = append(h.listeners[key], l)
}

// Dispatch queues event for delivery.
func (h *Hub) Dispatch(_ context.Context, event Event) error {
	h.queueMu.Lock()
	if h.closed {
		h.queueMu.Unlock()
		return ErrClosed
	}
	h.pending = append(h.pending, event)
	h.queueMu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
	return nil
}

// DispatchWithResponse queues event and waits for the event that answers it.
// It must not be called from a listener, since the lane would be blocked.
func (h *Hub) DispatchWithResponse(ctx context.Context, event Event, timeout time.Duration) (Event, error) {
	ch := make(chan Event, 1)
	h.waitersMu.Lock()
	h.waiters[event.ID] = ch
	h.waitersMu.Unlock()
	defer func() {
		h.waitersMu.Lock()
		delete(h.waiters, event.ID)
		h.waitersMu.Unlock()
	}()

	if err := h.Dispatch(ctx, event); err != nil {
		return Event{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return Event{}, ErrResponseTimeout
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// CreateSharedState records a new version of an extension's shared state.
func (h *Hub) CreateSharedState(_ context.Context, extension string, state map[string]any, trigger *Event) {
	h.shared.Set(extension, state, trigger)
}

// SharedState returns the latest shared state of extension.
func (h *Hub) SharedState(extension string) (SharedState, bool) {
	return h.shared.Latest(extension)
}

// SharedStateVersions returns how many shared state versions extension has
// published.
func (h *Hub) SharedStateVersions(extension string) int {
	return h.shared.Versions(extension)
}

// Run delivers queued events until ctx is cancelled. Events still queued at
// that point are delivered before Run returns.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.queueMu.Lock()
			h.closed = true
			h.queueMu.Unlock()
			h.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-h.notify:
			h.drain(ctx)
		}
	}
}

// Drain delivers everything queued so far on the calling goroutine. It must
// not be called while Run is active.
func (h *Hub) Drain(ctx context.Context) {
	h.drain(ctx)
}

func (h *Hub) drain(ctx context.Context) {
	for {
		h.queueMu.Lock()
		if len(h.pending) == 0 {
			h.queueMu.Unlock()
			return
		}
		event := h.pending[0]
		h.pending[0] = Event{}
		h.pending = h.pending[1:]
		h.queueMu.Unlock()

		h.deliver(ctx, event)
	}
}

func (h *Hub) deliver(ctx context.Context, event Event) {
	ctx, span := h.tracer.Start(ctx, "eventbus.deliver",
		trace.WithAttributes(
			attribute.String("event.id", event.ID),
			attribute.String("event.name", event.Name),
			attribute.String("event.type", event.Type),
			attribute.String("event.source", event.Source),
		),
	)
	defer span.End()

	if event.IsResponse() {
		h.resolveWaiter(event)
	}

	for _, l := range h.matching(event) {
		if err := h.invoke(ctx, l, event); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "listener panicked")
		}
	}
}

func (h *Hub) matching(event Event) []Listener {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := []listenerKey{
		{event.Type, event.Source},
		{event.Type, Wildcard},
		{Wildcard, event.Source},
		{Wildcard, Wildcard},
	}
	seen := make(map[listenerKey]bool, len(keys))
	var out []Listener
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h.listeners[key]...)
	}
	return out
}

func (h *Hub) invoke(ctx context.Context, l Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
			h.logger.ErrorContext(ctx, "event listener panicked",
				"event_id", event.ID,
				"event_name", event.Name,
				"panic", r,
			)
		}
	}()
	l(ctx, event)
	return nil
}

func (h *Hub) resolveWaiter(event Event) {
	h.waitersMu.Lock()
	ch, ok := h.waiters[event.ResponseID]
	if ok {
		delete(h.waiters, event.ResponseID)
	}
	h.waitersMu.Unlock()
	if ok {
		ch <- event
	}
}
