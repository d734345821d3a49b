package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentchain/config"
	"rentchain/core"
	"rentchain/core/genesis"
	"rentchain/core/ledger"
	"rentchain/indexer"
	"rentchain/observability/logging"
	"rentchain/observability/metrics"
	"rentchain/observability/otel"
	"rentchain/rpc"
	"rentchain/storage"
)

const (
	genesisPathEnv = "RENTCHAIN_GENESIS"
	envNameEnv     = "RENTCHAIN_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides RENTCHAIN_GENESIS and config GenesisFile)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *genesisFlag); err != nil {
		slog.Error("rentchaind exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, genesisFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env := cfg.Environment
	if override := strings.TrimSpace(os.Getenv(envNameEnv)); override != "" {
		env = override
	}
	logger, logCloser := logging.SetupWithOptions("rentchaind", env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	shutdownTelemetry, err := otel.Init(ctx, otel.Config{
		ServiceName: "rentchaind",
		Environment: env,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	programs, err := cfg.ProgramIDs()
	if err != nil {
		return err
	}
	pauses, err := cfg.Pauses()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	index, err := indexer.Open(cfg.Indexer.DSN, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	m := metrics.Rental()
	l := ledger.New(db,
		ledger.WithEmitter(index),
		ledger.WithLogger(logger),
		ledger.WithMetrics(m))
	node, err := core.NewNode(l, core.NodeConfig{
		ChainID: cfg.ChainID,
		Programs: core.Programs{
			Directory: programs.Directory,
			Tracker:   programs.Tracker,
			Custody:   programs.Custody,
		},
		Pauses:  pauses,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	if path := resolveGenesisPath(genesisFlag, cfg.GenesisFile, os.LookupEnv); path != "" {
		if err := applyGenesis(ctx, node, path, cfg.ChainID, logger); err != nil {
			return err
		}
	}

	var metricsServer *http.Server
	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics server listening", slog.String("addr", addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	server, err := rpc.NewServer(node, index, rpc.ServerConfig{
		JWT: rpc.JWTConfig{
			Enable:      strings.TrimSpace(cfg.RPC.JWTSecretEnv) != "",
			HSSecretEnv: cfg.RPC.JWTSecretEnv,
			Issuer:      cfg.RPC.JWTIssuer,
		},
		RateLimitPerSecond:  cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:      cfg.RPC.RateLimitBurst,
		TrustedProxies:      cfg.RPC.TrustedProxies,
		MaxRequestBodyBytes: cfg.RPC.MaxRequestBodyBytes,
		ReadHeaderTimeout:   seconds(cfg.RPC.ReadHeaderTimeout),
		ReadTimeout:         seconds(cfg.RPC.ReadTimeout),
		WriteTimeout:        seconds(cfg.RPC.WriteTimeout),
		IdleTimeout:         seconds(cfg.RPC.IdleTimeout),
	}, logger, m)
	if err != nil {
		return fmt.Errorf("create rpc server: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(cfg.RPCAddress) }()
	logger.Info("rentchaind started",
		slog.Uint64("chainId", cfg.ChainID),
		slog.String("rpc", cfg.RPCAddress),
		slog.Any("pausedModules", cfg.PausedModules))

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc shutdown: %w", err)
	}
	return nil
}

func resolveGenesisPath(flagValue, configValue string, lookup func(string) (string, bool)) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if lookup != nil {
		if v, ok := lookup(genesisPathEnv); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(configValue)
}

func applyGenesis(ctx context.Context, node *core.Node, path string, chainID uint64, logger *slog.Logger) error {
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	if id, ok := spec.ChainIDValue(); ok && id != chainID {
		return fmt.Errorf("genesis chain id %d does not match configured chain id %d", id, chainID)
	}
	applied, err := node.ApplyGenesis(ctx, spec)
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	if applied {
		logger.Info("genesis applied", slog.String("path", path), slog.Int("allocations", len(spec.Allocations())))
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
