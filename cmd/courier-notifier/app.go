package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SIRI-bit-tech/courier-web/config"
	"github.com/SIRI-bit-tech/courier-web/internal/broker/kafka"
	"github.com/SIRI-bit-tech/courier-web/internal/cache/rediscache"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier/fake"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier/httpsink"
	"github.com/SIRI-bit-tech/courier-web/internal/services/dispatch"
)

type notifierFactories struct {
	newConsumer    func(cfg *config.Config) dispatch.Consumer
	newSink        func(cfg *config.Config) notifier.Sink
	newRateLimiter func(cfg *config.Config) dispatch.RateLimiter
}

func defaultNotifierFactories() notifierFactories {
	return notifierFactories{
		newConsumer: func(cfg *config.Config) dispatch.Consumer {
			topic := cfg.Kafka.StatusChangedTopicName
			if topic == "" {
				topic = "courier.status-changed"
			}
			group := cfg.Notifier.KafkaConsumerGroup
			if group == "" {
				group = "courier-notifier"
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewConsumer(brokers, topic, group)
		},
		newSink: func(cfg *config.Config) notifier.Sink {
			// Без base_url работаем на локальном fake — удобно для демо.
			if cfg.Notifier.SinkBaseURL == "" {
				slog.Warn("notifier sink_base_url is empty, using in-memory fake sink")
				return fake.New()
			}
			return httpsink.New(cfg.Notifier.SinkBaseURL, cfg.Notifier.SinkAPIKey)
		},
		newRateLimiter: func(cfg *config.Config) dispatch.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
	}
}

func RunNotifier(ctx context.Context, cfg *config.Config, f notifierFactories) error {
	limit := int64(cfg.Notifier.RateLimitPerMinute)
	if limit <= 0 {
		limit = 30
	}

	d := dispatch.New(f.newConsumer(cfg), f.newSink(cfg), f.newRateLimiter(cfg), limit)

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runNotifierHTTPServer(ctx, notifierHTTPOpts{
			httpAddr:   cfg.Notifier.HTTPAddr,
			dispatcher: d,
			cfg:        cfg,
		})
	}()

	runErr := make(chan error, 1)
	go func() {
		runErr <- d.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-runErr:
		return err
	case err := <-httpErr:
		return err
	}
}
