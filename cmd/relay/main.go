package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SunYerim/StockOfGalaxy/internal/approval"
	"github.com/SunYerim/StockOfGalaxy/internal/config"
	"github.com/SunYerim/StockOfGalaxy/internal/dispatch"
	"github.com/SunYerim/StockOfGalaxy/internal/gateway"
	"github.com/SunYerim/StockOfGalaxy/internal/registry"
	"github.com/SunYerim/StockOfGalaxy/internal/upstream"
	"github.com/SunYerim/StockOfGalaxy/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.KIS.WSURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the credential store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to credential store", "error", err)
		os.Exit(1)
	}
	logger.Info("credential store connected", "addr", cfg.Redis.Addr)

	// Credential issuance and caches. The relay core uses the approval key;
	// the access token cache serves the surrounding REST services sharing
	// the same store.
	kisClient := approval.NewClient(
		cfg.KIS.RestURL,
		cfg.KIS.AppKey,
		cfg.KIS.AppSecret,
		approval.WithLogger(logger),
		approval.WithTimeout(cfg.KIS.Timeout),
		approval.WithApprovalTTL(cfg.Redis.ApprovalTTL),
	)
	store := approval.NewRedisStore(rdb)
	approvalCache := approval.NewCache(store, kisClient.ApprovalKeyIssuer(), cfg.Redis.ApprovalKey, logger)
	tokenCache := approval.NewCache(store, kisClient.AccessTokenIssuer(), cfg.Redis.TokenKey, logger)

	// Warm the access token so REST consumers find it in the store.
	if _, err := tokenCache.Get(ctx); err != nil {
		logger.Warn("access token warmup failed", "error", err)
	}

	// Relay core
	reg := registry.New()
	dispatcher := dispatch.New(reg, logger)

	mgrCfg := upstream.ManagerConfig{
		Client: upstream.ClientConfig{
			URL:              cfg.KIS.WSURL,
			HandshakeTimeout: cfg.Upstream.HandshakeTimeout,
			WriteTimeout:     cfg.Upstream.WriteTimeout,
			PingInterval:     cfg.Upstream.PingInterval,
			PingTimeout:      cfg.Upstream.PingTimeout,
			BufferSize:       cfg.Upstream.BufferSize,
		},
	}
	manager := upstream.NewManager(mgrCfg, approvalCache, reg, dispatcher, logger)
	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start upstream manager", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		manager.Stop(shutdownCtx)
	}()

	// Client-facing gateway
	gw := gateway.NewServer(gateway.Config{
		Path:         cfg.Gateway.Path,
		WriteTimeout: cfg.Gateway.WriteTimeout,
		SendBuffer:   cfg.Gateway.SendBuffer,
	}, manager, logger)

	gatewayServer := &http.Server{
		Addr:    cfg.Gateway.ListenAddr,
		Handler: gw.Handler(),
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.Gateway.ListenAddr, "path", cfg.Gateway.Path)
		if err := gatewayServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("gateway server error", "error", err)
			cancel()
		}
	}()

	// Health endpoint
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg, rdb, reg, manager),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("relay running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	gatewayServer.Shutdown(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("relay stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(cfg *config.RelayConfig, rdb *redis.Client, reg *registry.Registry, manager *upstream.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(cfg.Health.Path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		// Check the credential store
		if err := rdb.Ping(ctx).Err(); err != nil {
			health.Status = "unhealthy"
			health.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["redis"] = "connected"
		}

		// Upstream state and subscription load. A disconnected upstream
		// with zero sessions is normal (lazy connect), not degraded.
		health.Components["upstream"] = manager.State().String()
		health.Components["subscriptions"] = map[string]int{
			"sessions": reg.SessionCount(),
			"topics":   len(reg.AllTopics()),
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/topics", func(w http.ResponseWriter, r *http.Request) {
		topics := reg.AllTopics()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":  len(topics),
			"topics": topics,
		})
	})

	return mux
}
