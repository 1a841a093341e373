// Command server is a thin HTTP front end over pkg/engine: it decodes
// one JSON request object per call, dispatches it, and encodes the
// response. Metrics are served separately so the request listener
// stays single-purpose.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hitesh-reddy-k/cloude-storage/pkg/config"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/engine"
	"github.com/hitesh-reddy-k/cloude-storage/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the YAML configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting storage engine",
		"data_root", cfg.DataRoot,
		"memtable_limit", cfg.MemtableLimit,
		"compaction_threshold", cfg.CompactionThreshold,
	)

	eng := engine.New(cfg.DataRoot, cfg.MemtableLimit, cfg.CompactionThreshold, logger)
	reg := metrics.NewRegistry()
	eng.SetMetrics(reg)
	eng.LSM().StartBackgroundCompaction(cfg.CompactionInterval)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/request", handleRequest(eng, logger))
	apiServer := &http.Server{Addr: cfg.ListenAddr, Handler: apiMux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	go func() {
		logger.Info("request server listening", "addr", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("request server error", "error", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	_ = apiServer.Close()
	_ = metricsServer.Close()
	eng.LSM().Stop()
	if err := eng.Close(); err != nil {
		logger.Error("error closing engine", "error", err)
	}
}

func handleRequest(eng *engine.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			logger.Warn("malformed request body", "error", err)
			writeJSON(w, map[string]any{"error": "malformed request body"})
			return
		}

		resp := eng.Dispatch(req)
		writeJSON(w, resp)
	}
}

func writeJSON(w http.ResponseWriter, v map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
