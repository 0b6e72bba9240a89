package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformstrings "consentd/pkg/platform/strings"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Log      LogConfig
	Store    StoreConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Kafka    KafkaConfig
	Consent  ConsentConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// QueryTimeout bounds how long GET /consent waits for the event lane.
	QueryTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the persistence backend for user-opted consents.
type StoreConfig struct {
	Backend    string
	Namespace  string
	StorageKey string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// KafkaConfig configures the bridge to the remote consent service. An empty
// Brokers list disables it.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	GroupID           string
	UpdateTopic       string
	AckTopic          string
	Partitions        int32
	ReplicationFactor int16
	BufferSize        int
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type ConsentConfig struct {
	// DefaultsFile is a YAML configuration payload dispatched at startup.
	DefaultsFile string
}

// Load reads envFiles into the process environment, skipping missing files,
// then builds the configuration from the environment. Variables already set
// win over file values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	e := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:            e.str("CONSENTD_ADDR", ":8080"),
			ShutdownTimeout: e.duration("CONSENTD_SHUTDOWN_TIMEOUT", 10*time.Second),
			QueryTimeout:    e.duration("CONSENTD_QUERY_TIMEOUT", 5*time.Second),
		},
		Log: LogConfig{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "json"),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(e.str("CONSENTD_STORE", StoreMemory)),
			Namespace:  e.str("CONSENTD_STORE_NAMESPACE", "com.adobe.edge.consent"),
			StorageKey: e.str("CONSENTD_STORAGE_KEY", "consent:preferences"),
		},
		Redis: RedisConfig{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.integer("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    e.integer("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: e.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Mongo: MongoConfig{
			URI:            e.str("MONGO_URI", ""),
			Database:       e.str("MONGO_DATABASE", "consentd"),
			Collection:     e.str("MONGO_COLLECTION", "consent_preferences"),
			ConnectTimeout: e.duration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           e.list("KAFKA_BROKERS"),
			ClientID:          e.str("KAFKA_CLIENT_ID", "consentd"),
			GroupID:           e.str("KAFKA_GROUP_ID", "consentd"),
			UpdateTopic:       e.str("KAFKA_UPDATE_TOPIC", "consent.update.requests"),
			AckTopic:          e.str("KAFKA_ACK_TOPIC", "consent.preferences.handles"),
			Partitions:        int32(e.integer("KAFKA_TOPIC_PARTITIONS", 1)),
			ReplicationFactor: int16(e.integer("KAFKA_TOPIC_REPLICATION", 1)),
			BufferSize:        e.integer("KAFKA_BUFFER_SIZE", 1000),
		},
		Consent: ConsentConfig{
			DefaultsFile: e.str("CONSENT_DEFAULTS_FILE", ""),
		},
	}
	if e.err != nil {
		return Config{}, e.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.URL == "" {
			return errors.New("CONSENTD_STORE=redis requires REDIS_URL")
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			return errors.New("CONSENTD_STORE=postgres requires DATABASE_URL")
		}
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("CONSENTD_STORE=mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown CONSENTD_STORE %q", c.Store.Backend)
	}
	if c.Server.QueryTimeout <= 0 {
		return errors.New("CONSENTD_QUERY_TIMEOUT must be positive")
	}
	return nil
}

// LoadConfiguration reads a YAML configuration payload, expanding ${VAR}
// references from the environment. The result is dispatched as a
// configuration event, so "consent.default" carries the default consents.
func LoadConfiguration(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}

	var payload map[string]any
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &payload); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", path, err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// envReader collects the first parse error so FromEnv can read every
// variable before reporting.
type envReader struct {
	err error
}

func (e *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) list(key string) []string {
	return platformstrings.SplitList(e.str(key, ""), ",")
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
