package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SIRI-bit-tech/courier-web/config"
	"github.com/SIRI-bit-tech/courier-web/internal/api/courier_api"
	"github.com/SIRI-bit-tech/courier-web/internal/auth"
	"github.com/SIRI-bit-tech/courier-web/internal/broker/kafka"
	"github.com/SIRI-bit-tech/courier-web/internal/cache/rediscache"
	"github.com/SIRI-bit-tech/courier-web/internal/realtime"
	"github.com/SIRI-bit-tech/courier-web/internal/services/packages"
	"github.com/SIRI-bit-tech/courier-web/internal/storage/pgcourier"
)

type courierServerApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    courierServerOpts
	api     *courier_api.CourierAPI
	hub     *realtime.Hub
	closeDB func()
}

func mustBootstrapCourierServer() *courierServerApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	if cfg.Courier.JWTSigningKey == "" {
		panic("courier.jwt_signing_key is required")
	}

	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "courier.status-changed"
	}
	snapshotTTL := time.Duration(cfg.Courier.SnapshotTTLSeconds) * time.Second
	if snapshotTTL <= 0 {
		snapshotTTL = 10 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)

	hub := realtime.NewHub(realtime.NewRegistry())
	svc := packages.New(st, rc, hub, producer, topic, snapshotTTL, !cfg.Courier.PermissiveTransitions)
	tokens := auth.NewTokenService(cfg.Courier.JWTSigningKey)
	api := courier_api.New(svc, tokens, hub)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &courierServerApp{
		ctx:    ctx,
		cancel: cancel,
		opts: courierServerOpts{
			httpAddr: cfg.Courier.HTTPAddr,
		},
		api:     api,
		hub:     hub,
		closeDB: st.Close,
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgcourier.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgcourier.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *courierServerApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *courierServerApp) Run() error {
	return runCourierServer(a.ctx, a.opts, a.api, a.hub)
}
