// Command broker runs the MQTT v5 broker: it loads configuration, wires
// up the audit sink and hooks, and serves connections until it receives
// an interrupt or termination signal.
//
// Usage:
//
//	broker [PORT]
//	broker -config <path>
//
// The positional PORT overrides the config file's listen port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axonmq/broker5/internal/audit"
	"github.com/axonmq/broker5/internal/config"
	"github.com/axonmq/broker5/internal/hook"
	"github.com/axonmq/broker5/internal/listener"
	"github.com/axonmq/broker5/pkg/logger"
	"github.com/axonmq/broker5/registry"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("broker: load config: %v", err)
	}

	if args := flag.Args(); len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("broker: invalid port %q (must be an integer in 1-65535)", args[0])
		}
		cfg.Server.Port = port
	}

	appLog, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "broker: init logger: %v\n", err)
		os.Exit(1)
	}

	appLog.Info("starting broker", "host", cfg.Server.Host, "port", cfg.Server.Port, "audit_backend", cfg.Audit.Backend)

	sink, err := buildAuditSink(cfg.Audit)
	if err != nil {
		appLog.Error("failed to initialize audit sink", "error", err)
		os.Exit(1)
	}

	hooks := hook.NewManager()
	if err := hooks.Add(hook.NewAuditHook(sink)); err != nil {
		appLog.Error("failed to register audit hook", "error", err)
		os.Exit(1)
	}
	if cfg.RateLimit.Enabled {
		rl := hook.NewRateLimitHook(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window)
		if err := hooks.Add(rl); err != nil {
			appLog.Error("failed to register rate limit hook", "error", err)
			os.Exit(1)
		}
	}
	defer hooks.Close()

	reg := registry.New(appLog)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	l := listener.New(addr, reg, hooks, appLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		go serveMetrics(appLog, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	go logIdleSessions(ctx, appLog, l)

	runDone := make(chan error, 1)
	go func() { runDone <- l.Run(ctx) }()

	appLog.Info("broker listening", "addr", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLog.Info("received signal, shutting down", "signal", sig.String())
	case err := <-runDone:
		if err != nil {
			appLog.Error("listener stopped unexpectedly", "error", err)
			hooks.Close()
			os.Exit(1)
		}
	}

	cancel()
	listener.Shutdown(context.Background(), l.Pool(), hooks, cfg.Server.ShutdownTimeout)

	select {
	case <-runDone:
	case <-time.After(cfg.Server.ShutdownTimeout):
	}

	appLog.Info("broker stopped")
}

// loadConfig reads the file at path, or falls back to in-process defaults
// when no -config flag was given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildAuditSink(cfg config.AuditConfig) (audit.Sink, error) {
	switch cfg.Backend {
	case "pebble":
		return audit.NewPebbleSink(audit.PebbleSinkConfig{Path: cfg.PebblePath})
	case "redis":
		return audit.NewRedisSink(audit.RedisSinkConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	default:
		return audit.NewMemorySink(), nil
	}
}

// logIdleSessions periodically reports sessions that have gone a minute
// or more without reading or writing a packet. Observability only: idle
// sessions are never disconnected.
func logIdleSessions(ctx context.Context, log *slog.Logger, l *listener.Listener) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if idle := l.IdleSessions(time.Minute); len(idle) > 0 {
				log.Debug("idle sessions", "count", len(idle), "sessions", idle)
			}
		}
	}
}

func serveMetrics(log *slog.Logger, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.Info("metrics listening", "addr", addr, "path", path)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server error", "error", err)
	}
}
