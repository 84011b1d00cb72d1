package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/nandanugg/fleet-geofence/config"
	"github.com/nandanugg/fleet-geofence/module/core"
)

func main() {
	cfg := config.Load()
	if err := config.ConfigureLogging(cfg); err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := core.InitSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.Fatalf("mqtt: %v", err)
	}
	defer mqttClient.Disconnect(250)

	redisClient, err := config.NewRedis(cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	// keep the interface nil when redis is not configured
	var stateClient goredis.UniversalClient
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		stateClient = redisClient
	}

	coreModule, err := core.Build(db, amqpConn, mqttClient, stateClient)
	if err != nil {
		log.Fatalf("core module: %v", err)
	}
	defer func() { _ = coreModule.Close() }()

	if err := coreModule.Start(ctx, cfg.GeofenceRefreshInterval); err != nil {
		log.Fatalf("start core module: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), config.RequestLogger())

	health := config.NewHealthChecker(db, amqpConn, mqttClient, stateClient)
	health.Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}
