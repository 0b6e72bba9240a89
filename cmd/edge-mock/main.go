package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"consentd/internal/edge"
	"consentd/internal/platform/config"
	"consentd/internal/platform/kafka"
	"consentd/internal/platform/kafka/consumer"
	"consentd/internal/platform/kafka/producer"
	"consentd/internal/platform/logger"
)

// edge-mock answers consent update requests the way the remote consent
// service would, so a local consentd can be exercised end to end.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "edge-mock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	if !cfg.Kafka.Enabled() {
		return errors.New("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kafka.EnsureTopics(ctx, cfg.Kafka, cfg.Kafka.UpdateTopic, cfg.Kafka.AckTopic); err != nil {
		return err
	}

	prod, err := producer.New(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer prod.Close(context.Background())

	mockCfg := cfg.Kafka
	mockCfg.GroupID = cfg.Kafka.GroupID + "-edge-mock"
	cons, err := consumer.New(mockCfg, edge.NewResponder(prod, cfg.Kafka.AckTopic, log), log, cfg.Kafka.UpdateTopic)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "edge mock answering update requests",
		"update_topic", cfg.Kafka.UpdateTopic,
		"ack_topic", cfg.Kafka.AckTopic,
	)
	if err := cons.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
