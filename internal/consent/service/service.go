package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"consentd/internal/consent/metrics"
	"consentd/internal/consent/models"
	"consentd/pkg/platform/sentinel"
)

// DefaultStorageKey is the persisted key holding user-opted consents.
const DefaultStorageKey = "consent:preferences"

// Store is a namespaced string key-value collection. Get returns
// sentinel.ErrNotFound when the key is absent and sentinel.ErrUnavailable
// when the backend cannot be reached.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Manager reconciles default and user-opted consents. Only user-opted
// consents are persisted; defaults are reloaded from configuration each run.
//
// Manager is not safe for concurrent use. It is owned by the event bus lane,
// which delivers one event at a time.
type Manager struct {
	store      Store
	storageKey string
	logger     *slog.Logger
	metrics    *metrics.Metrics

	userOpted models.Consents
	defaults  *models.Consents
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithStorageKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.storageKey = key
		}
	}
}

// NewManager builds a Manager and loads user-opted consents from store.
// Loading never fails: a nil store, a missing entry, an unavailable backend
// or a corrupt blob all start from empty consents.
func NewManager(ctx context.Context, store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		storageKey: DefaultStorageKey,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.userOpted = m.load(ctx)
	return m
}

// MergeAndPersist overlays update onto the user-opted consents and writes the
// result to the store. Empty updates change nothing and write nothing. Store
// failures are logged; the in-memory change still applies.
func (m *Manager) MergeAndPersist(ctx context.Context, update *models.Consents) {
	if update == nil || update.IsEmpty() {
		return
	}
	m.userOpted.Merge(*update)
	m.save(ctx, m.userOpted)
}

// UpdateDefaultConsents replaces the default layer and reports whether the
// effective consents changed as a result.
func (m *Manager) UpdateDefaultConsents(defaults models.Consents) bool {
	before := m.CurrentConsents()
	d := defaults.Clone()
	m.defaults = &d
	return !before.Equal(m.CurrentConsents())
}

// CurrentConsents returns the user-opted consents overlaid on the defaults.
// The result is a fresh copy and is empty, never nil, when nothing is set.
func (m *Manager) CurrentConsents() models.Consents {
	if m.defaults == nil || m.defaults.IsEmpty() {
		return m.userOpted.Clone()
	}
	current := m.defaults.Clone()
	current.Merge(m.userOpted)
	return current
}

// UserOptedConsents returns a copy of the persisted layer.
func (m *Manager) UserOptedConsents() models.Consents {
	return m.userOpted.Clone()
}

// DefaultConsents returns a copy of the default layer and whether one has
// been configured.
func (m *Manager) DefaultConsents() (models.Consents, bool) {
	if m.defaults == nil {
		return models.Consents{}, false
	}
	return m.defaults.Clone(), true
}

func (m *Manager) load(ctx context.Context) models.Consents {
	if m.store == nil {
		m.logger.WarnContext(ctx, "consent store not configured, loading nothing")
		return models.Consents{}
	}

	raw, err := m.store.Get(ctx, m.storageKey)
	if errors.Is(err, sentinel.ErrNotFound) {
		m.logger.DebugContext(ctx, "no previous consents stored in persistence")
		return models.Consents{}
	}
	if err != nil {
		m.metrics.IncrementPersistenceFailure("load")
		m.logger.WarnContext(ctx, "failed to load consents from persistence",
			"key", m.storageKey,
			"error", err,
		)
		return models.Consents{}
	}

	consents, err := models.ParseJSON([]byte(raw))
	if err != nil {
		m.metrics.IncrementPersistenceFailure("decode")
		m.logger.WarnContext(ctx, "persisted consents are not valid json, ignoring",
			"key", m.storageKey,
			"error", err,
		)
		return models.Consents{}
	}
	return consents
}

func (m *Manager) save(ctx context.Context, consents models.Consents) {
	if m.store == nil {
		m.logger.WarnContext(ctx, "consent store not configured, keeping consents in memory only")
		return
	}

	if consents.IsEmpty() {
		if err := m.store.Remove(ctx, m.storageKey); err != nil {
			m.metrics.IncrementPersistenceFailure("remove")
			m.logger.WarnContext(ctx, "failed to remove consents from persistence",
				"key", m.storageKey,
				"error", err,
			)
		}
		return
	}

	data, err := consents.MarshalJSON()
	if err != nil {
		m.metrics.IncrementPersistenceFailure("encode")
		m.logger.ErrorContext(ctx, "failed to encode consents", "error", err)
		return
	}
	if err := m.store.Set(ctx, m.storageKey, string(data)); err != nil {
		m.metrics.IncrementPersistenceFailure("save")
		m.logger.WarnContext(ctx, "failed to write consents to persistence",
			"key", m.storageKey,
			"error", err,
		)
	}
}
