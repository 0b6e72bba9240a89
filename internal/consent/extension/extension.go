package extension

import (
	"context"
	"io"
	"log/slog"
	"time"

	"consentd/internal/consent/metrics"
	"consentd/internal/consent/models"
	"consentd/internal/eventbus"
)

// Hub is the part of the event bus the extension needs.
type Hub interface {
	RegisterListener(eventType, source string, l eventbus.Listener)
	Dispatch(ctx context.Context, event eventbus.Event) error
	CreateSharedState(ctx context.Context, extension string, state map[string]any, trigger *eventbus.Event)
}

// Manager is the consent reconciliation engine the handlers drive.
type Manager interface {
	MergeAndPersist(ctx context.Context, update *models.Consents)
	UpdateDefaultConsents(defaults models.Consents) bool
	CurrentConsents() models.Consents
}

// Extension reacts to consent, remote and configuration events and publishes
// the effective consents. Its handlers must only run on the hub lane.
type Extension struct {
	hub     Hub
	manager Manager
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Extension. logger and metrics may be nil.
func New(hub Hub, manager Manager, logger *slog.Logger, metrics *metrics.Metrics) *Extension {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extension{
		hub:     hub,
		manager: manager,
		logger:  logger.With("extension", Name),
		metrics: metrics,
	}
}

// Register subscribes the handlers on the hub and shares any consents loaded
// from persistence.
func (e *Extension) Register(ctx context.Context) {
	e.hub.RegisterListener(EventTypeEdge, EventSourceConsentPreference, e.HandleRemoteConsentPreference)
	e.hub.RegisterListener(EventTypeConsent, EventSourceUpdateConsent, e.HandleConsentUpdate)
	e.hub.RegisterListener(EventTypeConsent, EventSourceRequestContent, e.HandleRequestContent)
	e.hub.RegisterListener(EventTypeConfiguration, EventSourceResponseContent, e.HandleConfigurationResponse)

	e.Boot(ctx)
}

// Boot publishes the loaded consents once, without a triggering event, so
// consumers see consents persisted by a previous run.
func (e *Extension) Boot(ctx context.Context) {
	if e.manager.CurrentConsents().IsEmpty() {
		return
	}
	e.shareCurrentConsents(ctx, nil)
}

// HandleConsentUpdate applies an update requested through the public API and
// forwards the updated categories to the remote consent service.
func (e *Extension) HandleConsentUpdate(ctx context.Context, event eventbus.Event) {
	defer e.observe(metrics.HandlerUpdate, time.Now())

	if len(event.Data) == 0 {
		e.drop(ctx, metrics.HandlerUpdate, event, "consent data not found in consent update event")
		return
	}

	update := models.FromXDM(event.Data)
	if update.IsEmpty() {
		e.drop(ctx, metrics.HandlerUpdate, event, "unable to find valid data in consent update event")
		return
	}

	update.SetTimestamp(event.Timestamp)
	e.manager.MergeAndPersist(ctx, &update)

	e.shareCurrentConsents(ctx, &event)
	e.dispatchRemoteUpdate(ctx, update)
	e.metrics.IncrementHandled(metrics.HandlerUpdate, "applied")
}

// HandleRemoteConsentPreference ingests consents acknowledged by the remote
// consent service. Only the first payload element is read. Echoes of the
// current consents are skipped so shared state does not churn.
func (e *Extension) HandleRemoteConsentPreference(ctx context.Context, event eventbus.Event) {
	defer e.observe(metrics.HandlerRemoteAck, time.Now())

	first, reason := firstPayload(event.Data)
	if reason != "" {
		e.drop(ctx, metrics.HandlerRemoteAck, event, reason)
		return
	}

	incoming := models.FromCategories(first)
	if incoming.IsEmpty() {
		e.drop(ctx, metrics.HandlerRemoteAck, event, "consent preference handle has no valid consent data")
		return
	}

	current := e.manager.CurrentConsents()
	if isEcho(incoming, current) {
		e.logger.DebugContext(ctx, "consent preference handle matches current consents, skipping",
			"event_id", event.ID,
		)
		e.metrics.IncrementEchoSuppressed()
		e.metrics.IncrementHandled(metrics.HandlerRemoteAck, "skipped")
		return
	}

	incoming.SetTimestamp(event.Timestamp)
	e.manager.MergeAndPersist(ctx, &incoming)
	e.shareCurrentConsents(ctx, &event)
	e.metrics.IncrementHandled(metrics.HandlerRemoteAck, "applied")
}

// firstPayload returns the first category map of a consent preference
// handle, or the reason it cannot be read.
func firstPayload(data map[string]any) (map[string]any, string) {
	switch payload := data[KeyPayload].(type) {
	case []any:
		if len(payload) == 0 {
			break
		}
		first, ok := payload[0].(map[string]any)
		if !ok {
			return nil, "consent preference handle payload is not a list of maps"
		}
		return first, ""
	case []map[string]any:
		if len(payload) == 0 {
			break
		}
		return payload[0], ""
	case nil:
	default:
		return nil, "consent preference handle payload is not a list"
	}
	return nil, "consent preference handle has an empty or missing payload"
}

// isEcho reports whether incoming repeats current: the same consents with no
// timestamp or with the very same timestamp.
func isEcho(incoming, current models.Consents) bool {
	incomingTS, hasTS := incoming.Timestamp()
	if hasTS {
		currentTS, ok := current.Timestamp()
		if !ok || incomingTS != currentTS {
			return false
		}
	}
	return incoming.EqualIgnoringTimestamp(current)
}

// HandleRequestContent answers a query for the current consents.
func (e *Extension) HandleRequestContent(ctx context.Context, event eventbus.Event) {
	defer e.observe(metrics.HandlerQuery, time.Now())

	response := eventbus.NewEvent(
		EventNameGetConsentsResponse,
		EventTypeConsent,
		EventSourceResponseContent,
		e.manager.CurrentConsents().AsXDM(),
	).InResponseTo(&event)

	if err := e.hub.Dispatch(ctx, response); err != nil {
		e.logger.ErrorContext(ctx, "failed to dispatch get consents response",
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	e.metrics.IncrementHandled(metrics.HandlerQuery, "answered")
}

// HandleConfigurationResponse replaces the default consents from a
// configuration event and shares the result only when it changed.
func (e *Extension) HandleConfigurationResponse(ctx context.Context, event eventbus.Event) {
	defer e.observe(metrics.HandlerConfiguration, time.Now())

	if len(event.Data) == 0 {
		e.drop(ctx, metrics.HandlerConfiguration, event,
			"configuration response event is empty, unable to read consent.default")
		return
	}

	defaultsXDM, _ := event.Data[KeyDefaultConsent].(map[string]any)
	if len(defaultsXDM) == 0 {
		// Still update: a property that no longer configures defaults must
		// clear the previous ones.
		e.logger.DebugContext(ctx, "consent.default not found in configuration",
			"event_id", event.ID,
		)
	}

	if !e.manager.UpdateDefaultConsents(models.FromXDM(defaultsXDM)) {
		e.metrics.IncrementHandled(metrics.HandlerConfiguration, "unchanged")
		return
	}
	e.shareCurrentConsents(ctx, &event)
	e.metrics.IncrementHandled(metrics.HandlerConfiguration, "applied")
}

// shareCurrentConsents publishes the effective consents as shared state and as
// a Consent Preferences Updated event. trigger is nil at boot.
func (e *Extension) shareCurrentConsents(ctx context.Context, trigger *eventbus.Event) {
	xdm := e.manager.CurrentConsents().AsXDM()

	e.hub.CreateSharedState(ctx, Name, xdm, trigger)

	updated := eventbus.NewEvent(
		EventNameConsentPreferencesUpdated,
		EventTypeConsent,
		EventSourceResponseContent,
		xdm,
	).InResponseTo(trigger)

	if err := e.hub.Dispatch(ctx, updated); err != nil {
		e.logger.ErrorContext(ctx, "failed to dispatch consent preferences updated event", "error", err)
		return
	}
	e.metrics.IncrementNotifications()
}

// dispatchRemoteUpdate forwards only the categories from this update.
func (e *Extension) dispatchRemoteUpdate(ctx context.Context, update models.Consents) {
	if update.IsEmpty() {
		e.logger.DebugContext(ctx, "consent data is empty, not dispatching edge consent update")
		return
	}

	request := eventbus.NewEvent(
		EventNameEdgeConsentUpdate,
		EventTypeEdge,
		EventSourceUpdateConsent,
		update.AsXDM(),
	)
	if err := e.hub.Dispatch(ctx, request); err != nil {
		e.logger.ErrorContext(ctx, "failed to dispatch edge consent update", "error", err)
	}
}

func (e *Extension) drop(ctx context.Context, handler string, event eventbus.Event, reason string) {
	e.logger.DebugContext(ctx, reason+", dropping event",
		"event_id", event.ID,
		"event_name", event.Name,
	)
	e.metrics.IncrementHandled(handler, "dropped")
}

func (e *Extension) observe(handler string, start time.Time) {
	e.metrics.ObserveHandleLatency(handler, time.Since(start))
}
