package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"consentd/internal/consent/extension"
	"consentd/internal/consent/handler"
	"consentd/internal/consent/metrics"
	"consentd/internal/consent/service"
	"consentd/internal/consent/store"
	"consentd/internal/edge"
	"consentd/internal/eventbus"
	"consentd/internal/platform/config"
	"consentd/internal/platform/httpserver"
	"consentd/internal/platform/kafka"
	"consentd/internal/platform/kafka/consumer"
	"consentd/internal/platform/kafka/producer"
	"consentd/internal/platform/logger"
	platformmongo "consentd/internal/platform/mongo"
	"consentd/internal/platform/postgres"
	platformredis "consentd/internal/platform/redis"
	httptransport "consentd/internal/transport/http"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Consent logic lives in internal/consent; everything here is plumbing.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "consentd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFiles, _ := filepath.Glob("config/*.env")
	cfg, err := config.Load(append([]string{".env"}, envFiles...)...)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	hub := eventbus.NewHub(log)
	consentMetrics := metrics.New(registry)
	manager := service.NewManager(ctx, backend.store,
		service.WithLogger(log),
		service.WithMetrics(consentMetrics),
		service.WithStorageKey(cfg.Store.StorageKey),
	)
	consentExt := extension.New(hub, manager, log, consentMetrics)

	g, gctx := errgroup.WithContext(ctx)

	checks := backend.checks
	if cfg.Kafka.Enabled() {
		check, err := startBridge(gctx, g, cfg.Kafka, hub, registry, log)
		if err != nil {
			return err
		}
		checks = append(checks, check)
	}

	// Listeners must be in place before the lane starts delivering.
	consentExt.Register(ctx)
	if err := dispatchConfiguration(ctx, hub, cfg.Consent.DefaultsFile, log); err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:   log,
		Registry: registry,
		Consent:  handler.New(hub, log, cfg.Server.QueryTimeout),
		Checks:   checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.InfoContext(ctx, "starting consentd",
			"addr", cfg.Server.Addr,
			"store", cfg.Store.Backend,
			"extension", extension.Name,
			"version", extension.Version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("consentd stopped")
		return nil
	})

	return g.Wait()
}

type storeBackend struct {
	store  service.Store
	checks []httptransport.HealthCheck
	close  func()
}

// openStore connects the persistence backend selected by CONSENTD_STORE.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (storeBackend, error) {
	ns := cfg.Store.Namespace
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return storeBackend{}, err
		}
		return storeBackend{
			store:  store.NewRedis(client.Client, ns),
			checks: []httptransport.HealthCheck{{Name: "redis", Check: client.Health}},
			close:  func() { _ = client.Close() },
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return storeBackend{}, err
		}
		pg := store.NewPostgres(db, ns)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return storeBackend{}, fmt.Errorf("migrate consent store: %w", err)
		}
		return storeBackend{
			store:  pg,
			checks: []httptransport.HealthCheck{{Name: "postgres", Check: db.PingContext}},
			close:  func() { _ = db.Close() },
		}, nil

	case config.StoreMongo:
		client, err := platformmongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return storeBackend{}, err
		}
		return storeBackend{
			store:  store.NewMongo(client.Database, cfg.Mongo.Collection, ns),
			checks: []httptransport.HealthCheck{{Name: "mongo", Check: client.Health}},
			close:  func() { _ = client.Close(context.Background()) },
		}, nil

	default:
		log.WarnContext(ctx, "using in-memory consent store, consents are lost on restart")
		return storeBackend{
			store: store.NewNamedCollection(ns),
			close: func() {},
		}, nil
	}
}

// startBridge connects the hub to the remote consent service over Kafka.
func startBridge(ctx context.Context, g *errgroup.Group, cfg config.KafkaConfig, hub *eventbus.Hub, registry *prometheus.Registry, log *slog.Logger) (httptransport.HealthCheck, error) {
	var check httptransport.HealthCheck
	if err := kafka.EnsureTopics(ctx, cfg, cfg.UpdateTopic, cfg.AckTopic); err != nil {
		return check, err
	}

	edgeMetrics := edge.NewMetrics(registry)

	prod, err := producer.New(cfg, log)
	if err != nil {
		return check, err
	}
	forwarder := edge.NewForwarder(prod, cfg.UpdateTopic,
		edge.WithLogger(log),
		edge.WithMetrics(edgeMetrics),
		edge.WithBufferSize(cfg.BufferSize),
	)
	forwarder.Register(hub)

	cons, err := consumer.New(cfg, edge.NewAckHandler(hub, log, edgeMetrics), log, cfg.AckTopic)
	if err != nil {
		prod.Close(ctx)
		return check, err
	}

	g.Go(func() error {
		defer prod.Close(context.WithoutCancel(ctx))
		if err := forwarder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := cons.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return httptransport.HealthCheck{Name: "kafka", Check: prod.Health}, nil
}

// dispatchConfiguration queues the configuration payload from path, if any,
// so default consents apply before the first request.
func dispatchConfiguration(ctx context.Context, hub *eventbus.Hub, path string, log *slog.Logger) error {
	if path == "" {
		return nil
	}
	payload, err := config.LoadConfiguration(path)
	if err != nil {
		return err
	}
	event := eventbus.NewEvent(
		extension.EventNameConfigurationResponse,
		extension.EventTypeConfiguration,
		extension.EventSourceResponseContent,
		payload,
	)
	log.InfoContext(ctx, "dispatching configuration", "file", path)
	return hub.Dispatch(ctx, event)
}
