package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mcpi-go/mcpi/internal/admin"
	"github.com/mcpi-go/mcpi/internal/audit"
	"github.com/mcpi-go/mcpi/internal/config"
	"github.com/mcpi-go/mcpi/internal/discovery"
	"github.com/mcpi-go/mcpi/internal/dispatch"
	"github.com/mcpi-go/mcpi/internal/plugin"
	"github.com/mcpi-go/mcpi/internal/telemetry"
	"github.com/mcpi-go/mcpi/internal/transport/streamable"
	"github.com/mcpi-go/mcpi/internal/transport/wstransport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogging(cfg.Logging)

	log.Info().Msg("Starting MCPI server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelProvider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	if otelProvider != nil {
		log.Info().Str("endpoint", cfg.Telemetry.Endpoint).Str("service", cfg.Telemetry.ServiceName).Msg("OpenTelemetry enabled")
	}
	telemetry.InitMetrics()

	auditLog, err := audit.New(ctx, cfg.Audit.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit log")
	}
	defer auditLog.Close()

	registry := plugin.NewRegistry()
	filePool := plugin.NewFilePool(4)
	for _, pc := range cfg.Plugins {
		p := plugin.NewJSONDataPlugin(pc.Name, pc.Description, pc.Category, pc.Operations, pc.DataFile, "testdata/plugins", filePool)
		if err := registry.Register(p); err != nil {
			log.Fatal().Err(err).Str("plugin", pc.Name).Msg("Failed to register plugin")
		}
	}
	log.Info().Int("count", len(registry.All())).Msg("plugins registered")

	store := streamable.NewStore(cfg.Session.Timeout, cfg.Session.CleanupInterval)
	defer store.Stop()

	counters := admin.NewCounters(store.Count)

	dispatcher := &dispatch.Dispatcher{
		Registry: registry,
		Provider: dispatch.ProviderInfo{
			Name:        cfg.Provider.Name,
			Domain:      cfg.Provider.Domain,
			Description: cfg.Provider.Description,
		},
		ServerName:    cfg.Provider.Name,
		ServerVersion: "1.0.0",
		Counters:      counters,
		Audit:         auditLog,
	}

	streamableHandler := streamable.NewHandler(dispatcher, store)
	streamableHandler.KeepAliveInterval = cfg.Session.SSEKeepAlive

	wsHandler := &wstransport.Handler{Dispatcher: dispatcher, Counters: counters}

	discoveryResponder := &discovery.Responder{
		Registry:  registry,
		Provider:  dispatcher.Provider,
		Referrals: cfg.ReferralsAsWire(),
	}

	adminHandler := admin.NewHandler(counters, registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if cfg.Telemetry.Enabled {
		r.Use(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "mcpi-server")
		})
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposeHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/mcpi/discover", discoveryResponder.ServeHTTP)
	r.Get("/mcpi", wsHandler.ServeHTTP)
	r.HandleFunc("/mcp", streamableHandler.ServeHTTP)

	r.Route("/api/admin", func(r chi.Router) {
		r.Get("/stats", adminHandler.ServeStats)
		r.Get("/plugins", adminHandler.ServePlugins)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: r,
		// WriteTimeout must be 0: the streamable-HTTP GET endpoint is a
		// long-lived SSE stream.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		store.Shutdown(shutdownCtx)

		if otelProvider != nil {
			otelProvider.Shutdown(shutdownCtx)
			log.Info().Msg("Telemetry shut down")
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}

		cancel()
	}()

	log.Info().Str("addr", addr).Msg("Server listening")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}

	log.Info().Msg("Server stopped")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	zerolog.TimeFieldFormat = time.RFC3339
}
