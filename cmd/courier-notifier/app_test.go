package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/SIRI-bit-tech/courier-web/config"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier/fake"
	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier/httpsink"
	"github.com/SIRI-bit-tech/courier-web/internal/services/dispatch"
	"github.com/stretchr/testify/require"
)

type blockingConsumer struct{}

func (blockingConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDefaultNotifierFactories_SelectSink(t *testing.T) {
	f := defaultNotifierFactories()

	withSink := &config.Config{
		Notifier: config.NotifierConfig{SinkBaseURL: "http://localhost:9100", SinkAPIKey: "k"},
	}
	s1 := f.newSink(withSink)
	_, ok := s1.(*httpsink.Client)
	require.True(t, ok)

	noSink := &config.Config{}
	s2 := f.newSink(noSink)
	_, ok = s2.(*fake.Sink)
	require.True(t, ok)
}

func TestDefaultNotifierFactories_ConsumerAndRateLimiter_NonNil(t *testing.T) {
	f := defaultNotifierFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	require.NotNil(t, f.newConsumer(cfg))
	require.NotNil(t, f.newRateLimiter(cfg))
}

func TestRunNotifier_ContextCanceled(t *testing.T) {
	f := notifierFactories{
		newConsumer:    func(cfg *config.Config) dispatch.Consumer { return blockingConsumer{} },
		newSink:        func(cfg *config.Config) notifier.Sink { return fake.New() },
		newRateLimiter: func(cfg *config.Config) dispatch.RateLimiter { return nil },
	}

	cfg := &config.Config{
		Notifier: config.NotifierConfig{HTTPAddr: "127.0.0.1:0"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunNotifier(ctx, cfg, f) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("RunNotifier did not stop on cancel")
	}
}

func TestNotifierHTTPServer_StatsAndHealth(t *testing.T) {
	d := dispatch.New(blockingConsumer{}, fake.New(), nil, 0)
	cfg := &config.Config{
		Notifier: config.NotifierConfig{KafkaConsumerGroup: "courier-notifier", RateLimitPerMinute: 30},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	go func() {
		_ = runNotifierHTTPServer(ctx, notifierHTTPOpts{
			httpAddr:   "127.0.0.1:0",
			onListen:   func(addr string) { addrCh <- addr },
			dispatcher: d,
			cfg:        cfg,
		})
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats dispatch.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Zero(t, stats.Sent)
}
