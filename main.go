package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"tasky-chat/internal/auth"
	"tasky-chat/internal/config"
	"tasky-chat/internal/db"
	"tasky-chat/internal/grpcserver"
	"tasky-chat/internal/handlers"
	"tasky-chat/internal/logging"
	"tasky-chat/internal/middleware"
	"tasky-chat/internal/observability"
	"tasky-chat/internal/rabbitmq"
	"tasky-chat/internal/repositories"
	"tasky-chat/internal/services"
	"tasky-chat/internal/telemetry"
	"tasky-chat/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("chat service stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:        cfg.LogLevel,
		Service:      cfg.ServiceName,
		Dir:          cfg.LogPath,
		MaxAge:       cfg.LogMaxAge,
		RotationTime: cfg.LogRotationTime,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	logger.Info("event publisher ready", "mode", rabbitmq.PublisherMode(publisher), "noop_reason", rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.chat", cfg.ServiceName, cfg.Environment, logger)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	messageRepo := repositories.NewMessageRepo(database, repositories.NewProfileRepo(database))
	chatService := services.NewChatService(messageRepo, logger)

	hub := ws.NewHub(logger)
	gateway := ws.NewGateway(chatService, hub, auditEmitter, logger)
	wsHandler := ws.NewHandler(hub, gateway, verifier, ws.Options{
		PingInterval: cfg.WSPingInterval,
		PongWait:     cfg.WSPongWait,
		SendBuffer:   cfg.WSSendBuffer,
	}, logger)

	chatHandler := handlers.NewChatHandler(chatService, auditEmitter, cfg.DefaultListLimit)
	healthHandler := handlers.NewHealthHandler(database)

	if cfg.Environment != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		otelgin.Middleware(cfg.ServiceName),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/healthz", healthHandler.Health)
	router.GET("/metrics", observability.MetricsHandler())
	router.GET("/ws", wsHandler.Handle)
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	api := router.Group("/", middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), middleware.AuthMiddleware(verifier))
	chatHandler.RegisterRoutes(api)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	grpcServer := grpcserver.New(cfg.ServiceName, logger)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	go grpcServer.WatchDatabase(ctx, database, cfg.HealthInterval)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("grpc server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(grpcListener); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server failed, shutting down", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown", "err", shutdownErr)
	}
	grpcServer.Stop()
	if closeErr := publisher.Close(); closeErr != nil {
		logger.Warn("close publisher", "err", closeErr)
	}
	if traceErr := shutdownTracing(shutdownCtx); traceErr != nil {
		logger.Warn("flush traces", "err", traceErr)
	}
	return err
}
