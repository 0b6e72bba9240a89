package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consentd/internal/consent/metrics"
	"consentd/internal/consent/models"
	"consentd/internal/consent/service/mocks"
	"consentd/internal/consent/store"
	"consentd/pkg/domain"
	"consentd/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/store-mocks.go -package=mocks Store

func consents(values map[string]string) models.Consents {
	categories := make(map[string]any, len(values))
	for k, v := range values {
		categories[k] = map[string]any{"val": v}
	}
	return models.FromCategories(categories)
}

func ptr(c models.Consents) *models.Consents {
	return &c
}

type ManagerSuite struct {
	suite.Suite
	ctx        context.Context
	collection *store.NamedCollection
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.collection = store.NewNamedCollection("com.adobe.edge.consent")
}

func (s *ManagerSuite) TestNewManager_LoadsPersistedConsents() {
	err := s.collection.Set(s.ctx, DefaultStorageKey,
		`{"consents":{"collect":{"val":"y"},"metadata":{"time":"2021-03-29T02:35:18Z"}}}`)
	s.Require().NoError(err)

	m := NewManager(s.ctx, s.collection)

	current := m.CurrentConsents()
	collect, ok := current.Category("collect")
	s.Require().True(ok)
	s.Equal(domain.ConsentValueYes, collect)
	ts, ok := current.Timestamp()
	s.Require().True(ok)
	s.Equal("2021-03-29T02:35:18Z", ts)
}

func (s *ManagerSuite) TestNewManager_DegradesToEmpty() {
	s.Run("missing entry", func() {
		m := NewManager(s.ctx, store.NewNamedCollection("ns"))
		s.True(m.CurrentConsents().IsEmpty())
	})

	s.Run("corrupt blob", func() {
		c := store.NewNamedCollection("ns")
		s.Require().NoError(c.Set(s.ctx, DefaultStorageKey, "{not-json"))
		m := NewManager(s.ctx, c)
		s.True(m.CurrentConsents().IsEmpty())
	})

	s.Run("unavailable backend", func() {
		c := store.NewNamedCollection("ns")
		c.SetUnavailable(true)
		m := NewManager(s.ctx, c)
		s.True(m.CurrentConsents().IsEmpty())
	})

	s.Run("nil store", func() {
		m := NewManager(s.ctx, nil)
		s.True(m.CurrentConsents().IsEmpty())
		m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))
		collect, _ := m.CurrentConsents().Category("collect")
		s.Equal(domain.ConsentValueYes, collect)
	})
}

func (s *ManagerSuite) TestMergeAndPersist_ReplacesCategories() {
	m := NewManager(s.ctx, s.collection)
	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "n", "adID": "n"})))
	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))

	s.True(m.CurrentConsents().Equal(consents(map[string]string{"collect": "y", "adID": "n"})))

	raw, err := s.collection.Get(s.ctx, DefaultStorageKey)
	s.Require().NoError(err)
	persisted, err := models.ParseJSON([]byte(raw))
	s.Require().NoError(err)
	s.True(persisted.Equal(consents(map[string]string{"collect": "y", "adID": "n"})))
}

func (s *ManagerSuite) TestMergeAndPersist_FreshManagerSeesPersistedState() {
	first := NewManager(s.ctx, s.collection)
	first.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))

	second := NewManager(s.ctx, s.collection)
	collect, ok := second.CurrentConsents().Category("collect")
	s.Require().True(ok)
	s.Equal(domain.ConsentValueYes, collect)
}

func (s *ManagerSuite) TestMergeAndPersist_UnavailableStoreKeepsMemoryState() {
	m := NewManager(s.ctx, s.collection)
	s.collection.SetUnavailable(true)

	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))

	collect, ok := m.CurrentConsents().Category("collect")
	s.Require().True(ok)
	s.Equal(domain.ConsentValueYes, collect)

	s.collection.SetUnavailable(false)
	_, err := s.collection.Get(s.ctx, DefaultStorageKey)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ManagerSuite) TestCurrentConsents_OverlaysUserOptedOnDefaults() {
	m := NewManager(s.ctx, s.collection)
	m.UpdateDefaultConsents(consents(map[string]string{"collect": "p", "adID": "n"}))
	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))

	s.True(m.CurrentConsents().Equal(consents(map[string]string{"collect": "y", "adID": "n"})))

	user := m.UserOptedConsents()
	s.True(user.Equal(consents(map[string]string{"collect": "y"})))
	defaults, ok := m.DefaultConsents()
	s.True(ok)
	s.True(defaults.Equal(consents(map[string]string{"collect": "p", "adID": "n"})))
}

func (s *ManagerSuite) TestCurrentConsents_EmptyDefaultsReturnUserOpted() {
	m := NewManager(s.ctx, s.collection)
	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))
	m.UpdateDefaultConsents(models.Consents{})

	s.True(m.CurrentConsents().Equal(m.UserOptedConsents()))
}

func (s *ManagerSuite) TestCurrentConsents_IsIndependentCopy() {
	m := NewManager(s.ctx, s.collection)
	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y"})))

	got := m.CurrentConsents()
	got.SetTimestamp(time.Unix(1616985318, 0))
	got.Merge(consents(map[string]string{"collect": "n"}))

	s.True(m.CurrentConsents().Equal(consents(map[string]string{"collect": "y"})))
}

func (s *ManagerSuite) TestUpdateDefaultConsents_ReportsEffectiveChange() {
	m := NewManager(s.ctx, s.collection)

	s.True(m.UpdateDefaultConsents(consents(map[string]string{"collect": "n", "adID": "n"})))
	s.False(m.UpdateDefaultConsents(consents(map[string]string{"collect": "n", "adID": "n"})),
		"same defaults must not report a change")
	s.True(m.UpdateDefaultConsents(consents(map[string]string{"collect": "n"})),
		"dropping adID changes the effective consents")
	s.True(m.CurrentConsents().Equal(consents(map[string]string{"collect": "n"})))
}

func (s *ManagerSuite) TestUpdateDefaultConsents_MaskedByUserOpted() {
	m := NewManager(s.ctx, s.collection)
	m.MergeAndPersist(s.ctx, ptr(consents(map[string]string{"collect": "y", "adID": "y"})))

	s.False(m.UpdateDefaultConsents(consents(map[string]string{"collect": "n", "adID": "n"})),
		"user-opted consents hide every default category")
}

func TestManager_DefaultsAreNeverPersisted(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	ctx := context.Background()

	mockStore.EXPECT().Get(gomock.Any(), DefaultStorageKey).Return("", sentinel.ErrNotFound)

	m := NewManager(ctx, mockStore)
	assert.True(t, m.UpdateDefaultConsents(consents(map[string]string{"collect": "n"})))
	assert.False(t, m.UpdateDefaultConsents(consents(map[string]string{"collect": "n"})))
	// No Set or Remove expectations: any write fails the test.
}

func TestManager_EmptyMergeDoesNotWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	ctx := context.Background()

	mockStore.EXPECT().Get(gomock.Any(), DefaultStorageKey).
		Return(`{"consents":{"collect":{"val":"y"}}}`, nil)

	m := NewManager(ctx, mockStore)
	m.MergeAndPersist(ctx, nil)
	m.MergeAndPersist(ctx, ptr(models.Consents{}))

	assert.True(t, m.UserOptedConsents().Equal(consents(map[string]string{"collect": "y"})))
}

func TestManager_WritesXDMBlobUnderStorageKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	ctx := context.Background()

	mockStore.EXPECT().Get(gomock.Any(), "custom").Return("", sentinel.ErrNotFound)
	mockStore.EXPECT().Set(gomock.Any(), "custom", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value string) error {
			var blob map[string]any
			require.NoError(t, json.Unmarshal([]byte(value), &blob))
			assert.Equal(t, map[string]any{
				"consents": map[string]any{"collect": map[string]any{"val": "y"}},
			}, blob)
			return nil
		})

	m := NewManager(ctx, mockStore, WithStorageKey("custom"))
	m.MergeAndPersist(ctx, ptr(consents(map[string]string{"collect": "y"})))
}

func TestManager_CountsPersistenceFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())

	mockStore.EXPECT().Get(gomock.Any(), DefaultStorageKey).Return("", errors.New("connection refused"))
	mockStore.EXPECT().Set(gomock.Any(), DefaultStorageKey, gomock.Any()).Return(sentinel.ErrUnavailable)

	manager := NewManager(ctx, mockStore, WithMetrics(m))
	manager.MergeAndPersist(ctx, ptr(consents(map[string]string{"collect": "y"})))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PersistenceFailures.WithLabelValues("load")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PersistenceFailures.WithLabelValues("save")))
}
