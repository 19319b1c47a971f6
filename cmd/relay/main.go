package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomrelay/internal/core/ports"
	"roomrelay/internal/core/services"
	httphandlers "roomrelay/internal/handlers/http"
	"roomrelay/internal/infrastructure/distributed"
	"roomrelay/internal/infrastructure/middleware"
	"roomrelay/internal/infrastructure/monitoring"
	repositories "roomrelay/internal/infrastructure/repositories"
	signalinfra "roomrelay/internal/infrastructure/signal"
	"roomrelay/pkg/circuitbreaker"
	"roomrelay/pkg/config"
	"roomrelay/pkg/logger"
	"roomrelay/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := os.Getenv("ROOMRELAY_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tp, err := tracing.Init(cfg.Tracing)
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	repoFactory := repositories.NewRepositoryFactory(runCtx, cfg, log)

	collector := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	wsServer := signalinfra.NewWebSocketServer(signalinfra.Options{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		SendBuffer:        cfg.Signal.SendBuffer,
		MaxMessageSize:    cfg.Signal.MaxMessageSize,
		AllowedOrigins:    cfg.Signal.AllowedOrigins,
		MessagesPerSecond: messagesPerSecond(cfg),
		Burst:             cfg.RateLimiting.WebSocket.Burst,
	}, log.Named("signal"))
	wsServer.SetRecorder(collector)

	observers := []ports.RoomObserver{collector}
	healthChecker := monitoring.NewHealthChecker()

	if client := repoFactory.RedisClient(); client != nil {
		instanceID := uuid.NewString()
		feedLog := log.Named("activity")

		breaker := circuitbreaker.New(cfg.Redis.PublishBreaker)
		breaker.OnStateChange(func(from, to circuitbreaker.State) {
			feedLog.Warnw("activity feed breaker changed state", "from", from.String(), "to", to.String())
		})

		bus := distributed.NewEventBus(client, cfg.Redis.Channel, instanceID, cfg.Redis.FeedBuffer, feedLog,
			distributed.WithRetry(cfg.Redis.PublishRetry),
			distributed.WithCircuitBreaker(breaker),
		)
		observers = append(observers, bus)
		go bus.Run(runCtx)

		healthChecker.AddRedisCheck(client, 2*time.Second)
		log.Infow("room activity feed enabled", "channel", cfg.Redis.Channel, "instance_id", instanceID)
	}

	router := services.NewRouter(
		repoFactory.ConnectionRegistry(),
		repoFactory.RoomDirectory(),
		wsServer,
		services.WithObservers(observers...),
		services.WithLogger(log.Named("router")),
	)
	dispatcher := services.NewDispatcher(router, wsServer, collector, cfg.Signal.MailboxSize, log.Named("dispatcher"))
	wsServer.SetEventSink(dispatcher)

	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(runCtx)
		close(dispatcherDone)
	}()

	healthChecker.AddCheck("dispatcher", func(ctx context.Context) error {
		if dispatcher.Stopped() {
			return services.ErrDispatcherStopped
		}
		return nil
	}, time.Second)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	requestLog := logger.NewContextLogger(zapLogger)
	engine.Use(
		middleware.RequestIDMiddleware(),
		middleware.RecoveryMiddleware(log),
		middleware.TracingMiddleware(),
		middleware.RequestLoggingMiddleware(requestLog),
		middleware.NewCORSMiddleware(cfg.Signal.AllowedOrigins),
		middleware.ErrorHandlerMiddleware(requestLog),
	)

	engine.GET(cfg.Signal.Path,
		middleware.NewWebSocketRateLimitMiddleware(cfg, wsServer),
		gin.WrapF(wsServer.HandleWebSocket),
	)

	api := engine.Group("", middleware.NewHTTPRateLimitMiddleware(cfg))
	httphandlers.NewRoomHandler(repoFactory.RoomDirectory(), cfg.WebRTC.ICEServers).SetupRoutes(api)
	httphandlers.NewHealthHandler(healthChecker, wsServer, repoFactory.RoomDirectory()).SetupRoutes(engine)

	if cfg.Monitoring.PrometheusEnabled {
		engine.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
		log.Infow("Prometheus metrics enabled", "path", cfg.Monitoring.MetricsPath)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting roomrelay", "address", cfg.Server.Address, "signal_path", cfg.Signal.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down roomrelay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error closing signaling connections", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	cancelRun()
	<-dispatcherDone

	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer provider", "error", err)
	}

	log.Info("roomrelay stopped")
}

// messagesPerSecond returns zero, meaning unlimited, when rate limiting is off.
func messagesPerSecond(cfg *config.Config) float64 {
	if !cfg.RateLimiting.Enabled {
		return 0
	}
	return cfg.RateLimiting.WebSocket.MessagesPerSecond
}
