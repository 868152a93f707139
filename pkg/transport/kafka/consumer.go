// Package kafka feeds finding notifications from a Kafka topic to the
// processor. Offsets are marked only after a message has been handled, so
// delivery is at-least-once.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"
)

// Config contains configuration for connecting to Kafka brokers.
type Config struct {
	Brokers  []string
	Topic    string
	GroupID  string
	ClientID string
}

// NotificationHandler processes one raw notification payload.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, payload []byte) error
}

// Consumer reads notifications from a single topic as part of a consumer group.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler *claimHandler
	logger  *slog.Logger

	// restart paces new sessions after a handler failure.
	restart backoff.BackOff
}

func newSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Session.Timeout = 20 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 6 * time.Second
	cfg.Consumer.Offsets.AutoCommit.Enable = true
	cfg.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second
	cfg.Version = sarama.V2_8_0_0
	return cfg
}

// NewConsumer creates a consumer group client for cfg.
func NewConsumer(cfg Config, h NotificationHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, newSaramaConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return newConsumer(group, cfg, h, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg Config, h NotificationHandler, logger *slog.Logger) *Consumer {
	restart := backoff.NewExponentialBackOff()
	restart.InitialInterval = time.Second
	restart.MaxInterval = time.Minute
	restart.MaxElapsedTime = 0

	return &Consumer{
		group:   group,
		topic:   cfg.Topic,
		handler: &claimHandler{handler: h, clientID: cfg.ClientID, logger: logger},
		logger:  logger,
		restart: restart,
	}
}

// ConnectWithRetry creates a Consumer, retrying with exponential backoff
// for up to five minutes while the brokers are unreachable.
func ConnectWithRetry(cfg Config, h NotificationHandler, logger *slog.Logger) (*Consumer, error) {
	var c *Consumer

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		var err error
		c, err = NewConsumer(cfg, h, logger)
		if err != nil {
			logger.Warn("failed to connect to kafka, will retry", "brokers", cfg.Brokers, "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, fmt.Errorf("failed to connect to kafka after retries: %w", err)
	}
	return c, nil
}

// Run consumes until ctx is cancelled. A failed message ends the current
// session; the next session resumes from the last marked offset. Sessions
// that end in an error, from a message or from the group itself, are
// restarted after a growing pause.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}

		failed := c.handler.takeFailure()
		if err == nil && !failed {
			c.restart.Reset()
			continue
		}

		wait := c.restart.NextBackOff()
		c.logger.Warn("consumer group session ended with error, restarting",
			"topic", c.topic,
			"wait", wait.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}
