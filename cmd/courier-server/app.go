package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/api/courier_api"
	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
)

type courierServerOpts struct {
	httpAddr string

	onListen func(httpAddr string)
}

func runCourierServer(ctx context.Context, opts courierServerOpts, api *courier_api.CourierAPI, hub *realtime.Hub) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: api.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		// websockets are hijacked, Shutdown does not touch them
		hub.Stop()
		_ = lis.Close()
	}()

	slog.Info("http server listening", "addr", lis.Addr().String())
	err = srv.Serve(lis)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
