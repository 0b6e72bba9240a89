package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"consentd/internal/consent/extension"
	"consentd/internal/consent/models"
	"consentd/internal/eventbus"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/httputil"
	"consentd/pkg/requestcontext"
)

// DefaultQueryTimeout bounds how long GET /consent waits for the lane.
const DefaultQueryTimeout = 5 * time.Second

// Hub is the part of the event bus the public API uses. Handlers never touch
// the consent manager directly.
type Hub interface {
	Dispatch(ctx context.Context, event eventbus.Event) error
	DispatchWithResponse(ctx context.Context, event eventbus.Event, timeout time.Duration) (eventbus.Event, error)
	SharedState(extension string) (eventbus.SharedState, bool)
}

// Handler serves the consent public API.
type Handler struct {
	hub          Hub
	logger       *slog.Logger
	queryTimeout time.Duration
}

// New creates a consent Handler. A non-positive queryTimeout uses
// DefaultQueryTimeout.
func New(hub Hub, logger *slog.Logger, queryTimeout time.Duration) *Handler {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &Handler{
		hub:          hub,
		logger:       logger,
		queryTimeout: queryTimeout,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/consent", func(r chi.Router) {
		r.Post("/", h.handleUpdateConsents)
		r.Get("/", h.handleGetConsents)
		r.Get("/shared-state", h.handleSharedState)
	})
	r.Put("/configuration", h.handleUpdateConfiguration)
}

type acceptedResponse struct {
	EventID string `json:"event_id"`
}

type sharedStateResponse struct {
	Extension string         `json:"extension"`
	Version   int            `json:"version"`
	EventID   string         `json:"event_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Data      map[string]any `json:"data"`
}

// handleUpdateConsents queues a consent update for the lane.
func (h *Handler) handleUpdateConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := decodeObject(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid consent update request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if models.FromXDM(body).IsEmpty() {
		h.logger.WarnContext(ctx, "consent update request has no consents",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "consents must not be empty"))
		return
	}

	event := eventbus.NewEvent(
		extension.EventNameConsentUpdateRequest,
		extension.EventTypeConsent,
		extension.EventSourceUpdateConsent,
		body,
	)
	event.Timestamp = requestcontext.Now(ctx)
	h.dispatch(w, r, event)
}

// handleUpdateConfiguration queues a configuration payload, usually carrying
// consent.default.
func (h *Handler) handleUpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := decodeObject(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid configuration request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	event := eventbus.NewEvent(
		extension.EventNameConfigurationResponse,
		extension.EventTypeConfiguration,
		extension.EventSourceResponseContent,
		body,
	)
	event.Timestamp = requestcontext.Now(ctx)
	h.dispatch(w, r, event)
}

// handleGetConsents asks the lane for the current consents and waits for the
// correlated response.
func (h *Handler) handleGetConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	request := eventbus.NewEvent(
		extension.EventNameGetConsentsRequest,
		extension.EventTypeConsent,
		extension.EventSourceRequestContent,
		nil,
	)

	response, err := h.hub.DispatchWithResponse(ctx, request, h.queryTimeout)
	switch {
	case errors.Is(err, eventbus.ErrResponseTimeout):
		h.logger.WarnContext(ctx, "timed out waiting for get consents response",
			"request_id", requestID,
			"timeout", h.queryTimeout,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeTimeout, "consents not available in time"))
		return
	case err != nil:
		httputil.WriteError(w, h.dispatchError(ctx, err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, response.Data)
}

// handleSharedState returns the latest consent shared state.
func (h *Handler) handleSharedState(w http.ResponseWriter, r *http.Request) {
	state, ok := h.hub.SharedState(extension.Name)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no consent shared state published yet"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sharedStateResponse{
		Extension: extension.Name,
		Version:   state.Version,
		EventID:   state.EventID,
		CreatedAt: state.CreatedAt,
		Data:      state.Data,
	})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, event eventbus.Event) {
	if err := h.hub.Dispatch(r.Context(), event); err != nil {
		httputil.WriteError(w, h.dispatchError(r.Context(), err))
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, acceptedResponse{EventID: event.ID})
}

func (h *Handler) dispatchError(ctx context.Context, err error) error {
	if errors.Is(err, eventbus.ErrClosed) || errors.Is(err, context.Canceled) {
		h.logger.WarnContext(ctx, "event hub not accepting events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "service is shutting down")
	}
	h.logger.ErrorContext(ctx, "failed to dispatch event",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to dispatch event")
}

// decodeObject reads a non-empty JSON object body.
func decodeObject(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if len(body) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must be a non-empty object")
	}
	return body, nil
}
