package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consentd/internal/consent/extension"
	"consentd/internal/consent/handler/mocks"
	"consentd/internal/consent/service"
	"consentd/internal/consent/store"
	"consentd/internal/eventbus"
	"consentd/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/hub-mocks.go -package=mocks Hub

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ConsentHandlerSuite struct {
	suite.Suite
	hub    *mocks.MockHub
	router chi.Router
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.hub = mocks.NewMockHub(ctrl)
	s.router = chi.NewRouter()
	New(s.hub, discardLogger(), time.Second).Register(s.router)
}

func (s *ConsentHandlerSuite) TestUpdateConsents_Accepted() {
	requestTime := time.Date(2021, 3, 29, 9, 35, 18, 0, time.UTC)
	var dispatched eventbus.Event
	s.hub.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e eventbus.Event) error {
			dispatched = e
			return nil
		})

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]any{
		"consents": map[string]any{"collect": map[string]any{"val": "y"}},
	})
	req = testutil.WithRequestTime(req, requestTime)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
	s.Equal(extension.EventNameConsentUpdateRequest, dispatched.Name)
	s.Equal(extension.EventTypeConsent, dispatched.Type)
	s.Equal(extension.EventSourceUpdateConsent, dispatched.Source)
	s.Equal(requestTime, dispatched.Timestamp)
	s.Equal(map[string]any{"collect": map[string]any{"val": "y"}}, dispatched.Data["consents"])

	resp := testutil.UnmarshalResponse[acceptedResponse](s.T(), rr)
	s.Equal(dispatched.ID, resp.EventID)
}

func (s *ConsentHandlerSuite) TestUpdateConsents_RejectsEmptyAndInvalidBodies() {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{"consents":`, "bad_request"},
		{"array body", `[{"collect":{"val":"y"}}]`, "bad_request"},
		{"null body", `null`, "bad_request"},
		{"empty object", `{}`, "bad_request"},
		{"empty consents", `{"consents":{}}`, "invalid_input"},
		{"consents not an object", `{"consents":"y"}`, "invalid_input"},
		{"no consents key", `{"collect":{"val":"y"}}`, "invalid_input"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rr := testutil.DoRequest(s.router,
				testutil.NewRequestWithBody(s.T(), http.MethodPost, "/consent", tt.body))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, tt.code)
		})
	}
}

func (s *ConsentHandlerSuite) TestUpdateConsents_HubClosed() {
	s.hub.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(eventbus.ErrClosed)

	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/consent",
		`{"consents":{"collect":{"val":"y"}}}`))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "unavailable")
}

func (s *ConsentHandlerSuite) TestUpdateConfiguration() {
	s.hub.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e eventbus.Event) error {
			s.Equal(extension.EventTypeConfiguration, e.Type)
			s.Equal(extension.EventSourceResponseContent, e.Source)
			s.Contains(e.Data, extension.KeyDefaultConsent)
			return nil
		})

	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPut, "/configuration",
		`{"consent.default":{"consents":{"collect":{"val":"n"}}}}`))

	testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
}

func (s *ConsentHandlerSuite) TestGetConsents() {
	s.hub.EXPECT().DispatchWithResponse(gomock.Any(), gomock.Any(), time.Second).
		DoAndReturn(func(_ context.Context, e eventbus.Event, _ time.Duration) (eventbus.Event, error) {
			s.Equal(extension.EventNameGetConsentsRequest, e.Name)
			s.Equal(extension.EventSourceRequestContent, e.Source)
			return eventbus.NewEvent(extension.EventNameGetConsentsResponse, extension.EventTypeConsent,
				extension.EventSourceResponseContent,
				map[string]any{"consents": map[string]any{"collect": map[string]any{"val": "y"}}},
			).InResponseTo(&e), nil
		})

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consent"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "consents", map[string]any{"collect": map[string]any{"val": "y"}})
}

func (s *ConsentHandlerSuite) TestGetConsents_Timeout() {
	s.hub.EXPECT().DispatchWithResponse(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(eventbus.Event{}, eventbus.ErrResponseTimeout)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consent"))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusGatewayTimeout, "timeout")
}

func (s *ConsentHandlerSuite) TestSharedState() {
	s.Run("nothing shared", func() {
		s.hub.EXPECT().SharedState(extension.Name).Return(eventbus.SharedState{}, false)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consent/shared-state"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("latest version", func() {
		s.hub.EXPECT().SharedState(extension.Name).Return(eventbus.SharedState{
			Version: 3,
			EventID: "evt-1",
			Data:    map[string]any{"consents": map[string]any{}},
		}, true)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consent/shared-state"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[sharedStateResponse](s.T(), rr)
		s.Equal(3, resp.Version)
		s.Equal("evt-1", resp.EventID)
		s.Equal(extension.Name, resp.Extension)
	})
}

func TestNew_DefaultQueryTimeout(t *testing.T) {
	h := New(nil, discardLogger(), 0)
	assert.Equal(t, DefaultQueryTimeout, h.queryTimeout)
}

// TestPublicAPI_RoundTrip drives the API against a running lane.
func TestPublicAPI_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := eventbus.NewHub(discardLogger())
	manager := service.NewManager(ctx, store.NewNamedCollection(extension.Name))
	extension.New(hub, manager, discardLogger(), nil).Register(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	router := chi.NewRouter()
	New(hub, discardLogger(), time.Second).Register(router)

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPut, "/configuration",
		`{"consent.default":{"consents":{"collect":{"val":"p"},"adID":{"val":"n"}}}}`))
	testutil.AssertStatus(t, rr, http.StatusAccepted)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/consent",
		testutil.XDMConsents(map[string]string{"collect": "y"})))
	testutil.AssertStatus(t, rr, http.StatusAccepted)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/consent"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertConsent(t, rr, "collect", "y")
	testutil.AssertConsent(t, rr, "adID", "n")
	resp := testutil.UnmarshalResponse[map[string]any](t, rr)
	consents, ok := (*resp)["consents"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, consents, "metadata")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/consent/shared-state"))
	testutil.AssertStatusOK(t, rr)
	state := testutil.UnmarshalResponse[sharedStateResponse](t, rr)
	assert.Equal(t, 2, state.Version)
}
