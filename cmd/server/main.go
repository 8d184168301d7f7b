package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/helicityai/steward/internal/api"
	"github.com/helicityai/steward/internal/cache"
	"github.com/helicityai/steward/internal/db"
	"github.com/helicityai/steward/internal/insights"
	"github.com/helicityai/steward/internal/logger"
	"github.com/helicityai/steward/internal/ratelimit"
)

var version string

func main() {
	// Start pprof debug server if enabled (for memory/CPU profiling)
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Initialize OpenTelemetry
	// Configured via env vars: OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		// Non-fatal: continue without tracing if OTEL env vars not set
	} else {
		defer otelShutdown()
	}

	// Load configuration from environment
	config := loadConfig()

	// Connect to the directory store
	// Note: Migrations are run separately via CLI before starting the server
	// See: migrate -database "$DATABASE_URL" -path internal/db/migrations up
	directory, err := db.Connect(config.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to directory database", "error", err)
	}
	defer directory.Close()

	// Connect to the telemetry store when configured. Leaving it unset is a
	// supported state: the insights endpoints report "not yet available".
	var usageSource insights.UsageSource
	if config.TelemetryDatabaseURL != "" {
		telemetry, err := db.Connect(config.TelemetryDatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to telemetry database", "error", err)
		}
		defer telemetry.Close()
		usageSource = insights.NewStore(telemetry.Conn())
		logger.Info("telemetry store configured")
	} else {
		logger.Info("telemetry store not configured (TELEMETRY_DATABASE_URL not set), insights disabled")
	}

	insightsService := insights.NewService(usageSource, directory)
	limiter := ratelimit.NewInMemoryRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	defer limiter.Stop()

	// Create API server
	server := api.NewServer(api.Options{
		DB:             directory,
		Insights:       insightsService,
		Cache:          cache.NewMemory(),
		CacheTTL:       config.InsightsCacheTTL,
		Limiter:        limiter,
		AdminToken:     config.AdminToken,
		AllowedOrigins: config.AllowedOrigins,
		Version:        version,
	})
	router := server.SetupRoutes()

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "steward-backend")

	// HTTP server configuration
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,  // Configurable via HTTP_READ_TIMEOUT (default: 30s)
		WriteTimeout: config.WriteTimeout, // Configurable via HTTP_WRITE_TIMEOUT (default: 30s)
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", config.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

type Config struct {
	Port                 int
	DatabaseURL          string
	TelemetryDatabaseURL string
	AdminToken           string
	AllowedOrigins       []string
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	RateLimitRPS         float64
	RateLimitBurst       int
	InsightsCacheTTL     time.Duration
}

func loadConfig() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	// HTTP timeout configuration (defaults to 30s)
	readTimeout := 30 * time.Second
	if rt := os.Getenv("HTTP_READ_TIMEOUT"); rt != "" {
		if parsed, err := time.ParseDuration(rt); err == nil {
			readTimeout = parsed
		}
	}

	writeTimeout := 30 * time.Second
	if wt := os.Getenv("HTTP_WRITE_TIMEOUT"); wt != "" {
		if parsed, err := time.ParseDuration(wt); err == nil {
			writeTimeout = parsed
		}
	}

	// Validate required database configuration
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	// Telemetry store is optional until the usage pipeline is deployed
	telemetryDatabaseURL := os.Getenv("TELEMETRY_DATABASE_URL")

	// Validate required admin API configuration
	adminToken := os.Getenv("ADMIN_API_TOKEN")
	if adminToken == "" {
		logger.Fatal("missing required env var", "var", "ADMIN_API_TOKEN", "hint", "must be at least 32 characters")
	}
	if len(adminToken) < 32 {
		logger.Fatal("invalid env var", "var", "ADMIN_API_TOKEN", "error", "must be at least 32 characters")
	}

	var allowedOrigins []string
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	// Rate limiting for the insights endpoints (defaults: 10 rps, burst 20)
	rateLimitRPS := 10.0
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		fmt.Sscanf(v, "%f", &rateLimitRPS)
	}
	rateLimitBurst := 20
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		fmt.Sscanf(v, "%d", &rateLimitBurst)
	}

	// Assembled read-models are cached briefly; the engine itself never caches
	insightsCacheTTL := 60 * time.Second
	if v := os.Getenv("INSIGHTS_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			insightsCacheTTL = parsed
		}
	}

	return Config{
		Port:                 port,
		DatabaseURL:          databaseURL,
		TelemetryDatabaseURL: telemetryDatabaseURL,
		AdminToken:           adminToken,
		AllowedOrigins:       allowedOrigins,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		RateLimitRPS:         rateLimitRPS,
		RateLimitBurst:       rateLimitBurst,
		InsightsCacheTTL:     insightsCacheTTL,
	}
}

// startPprofServer starts a pprof debug server on localhost:6060.
// Only accessible locally; intended for proxied remote debugging.
func startPprofServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}
