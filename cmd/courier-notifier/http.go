package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/SIRI-bit-tech/courier-web/config"
	"github.com/SIRI-bit-tech/courier-web/internal/services/dispatch"
	"github.com/go-chi/chi/v5"
)

type notifierHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	dispatcher *dispatch.Dispatcher
	cfg        *config.Config
}

func runNotifierHTTPServer(ctx context.Context, opts notifierHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.dispatcher == nil {
			_, _ = w.Write([]byte(`{"error":"dispatcher not wired"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(opts.dispatcher.Stats())
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if opts.cfg == nil {
			_, _ = w.Write([]byte(`{"error":"config not wired"}`))
			return
		}
		// Avoid dumping secrets; show only operational worker settings.
		out := map[string]any{
			"kafkaConsumerGroup": opts.cfg.Notifier.KafkaConsumerGroup,
			"rateLimitPerMinute": opts.cfg.Notifier.RateLimitPerMinute,
			"sinkConfigured":     opts.cfg.Notifier.SinkBaseURL != "",
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}
