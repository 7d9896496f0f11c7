// okxbridge is a smoke-test harness for the OKX bridge: it loads
// configuration, starts the façade, subscribes to one instrument's order
// book and ticker, logs every execution event and market update it
// receives, and serves Prometheus metrics until a shutdown signal arrives.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/facade"
	"github.com/okx-bridge/okx/internal/metrics"
	"github.com/okx-bridge/okx/internal/subscription"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("OKX_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics server started", "addr", cfg.Metrics.Addr)
	}

	f, err := facade.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build facade", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.Start(ctx); err != nil {
		logger.Error("failed to start facade", "error", err)
		os.Exit(1)
	}

	demoInstrument := os.Getenv("OKX_DEMO_INSTRUMENT")
	if demoInstrument == "" {
		demoInstrument = "BTC-USDT"
	}
	depthSub, err := f.Subscribe(subscription.Request{InstID: demoInstrument, Resolution: "depth"})
	if err != nil {
		logger.Error("failed to subscribe to depth", "error", err, "instId", demoInstrument)
	}
	tickerSub, err := f.Subscribe(subscription.Request{InstID: demoInstrument, Resolution: "tick", TickType: subscription.TickQuote})
	if err != nil {
		logger.Error("failed to subscribe to ticker", "error", err, "instId", demoInstrument)
	}

	go logEvents(logger, f)
	if depthSub != nil {
		go logDataPoints(logger, depthSub)
	}
	if tickerSub != nil {
		go logDataPoints(logger, tickerSub)
	}

	logger.Info("okx bridge started", "environment", cfg.Environment, "instrument", demoInstrument)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	f.Stop()
}

func logEvents(logger *slog.Logger, f *facade.Facade) {
	for {
		select {
		case evt, ok := <-f.Events():
			if !ok {
				return
			}
			logger.Info("execution event", "engineOrderId", evt.EngineOrderID, "status", evt.Status, "isFill", evt.IsFill())
		case msg, ok := <-f.Messages():
			if !ok {
				return
			}
			logger.Warn("brokerage message", "code", msg.Code, "message", msg.Message, "recoverable", msg.Recoverable)
		}
	}
}

func logDataPoints(logger *slog.Logger, sub *facade.Subscription) {
	for dp := range sub.Events() {
		switch {
		case dp.Depth != nil:
			logger.Debug("depth update", "instId", dp.InstID, "mid", dp.Depth.Mid.String())
		case dp.Ticker != nil:
			logger.Debug("ticker update", "instId", dp.InstID, "last", dp.Ticker.Last.String())
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
