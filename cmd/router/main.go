// Package main is the entry point for the Solana swap router.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/swap-router/business/aggregator"
	aggregatorDI "github.com/fd1az/swap-router/business/aggregator/di"
	"github.com/fd1az/swap-router/business/blockchain"
	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	"github.com/fd1az/swap-router/business/market"
	"github.com/fd1az/swap-router/business/pricing"
	"github.com/fd1az/swap-router/business/venue"
	"github.com/fd1az/swap-router/internal/apm"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/health"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/metrics"
	"github.com/fd1az/swap-router/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

// options are the parsed command line flags.
type options struct {
	configPath string
	mode       string
	in         string
	out        string
	amount     string
	raw        bool
	slippage   uint
	venue      string
	interval   time.Duration
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.mode, "mode", "quote", "quote | quotes | execute | price | discover | tui | keygen")
	flag.StringVar(&opts.in, "in", "SOL", "Input mint or well-known symbol")
	flag.StringVar(&opts.out, "out", "USDC", "Output mint or well-known symbol")
	flag.StringVar(&opts.amount, "amount", "1", "Input amount in token units")
	flag.BoolVar(&opts.raw, "raw", false, "Treat -amount as smallest units")
	flag.UintVar(&opts.slippage, "slippage", 50, "Slippage tolerance in basis points")
	flag.StringVar(&opts.venue, "venue", "", "Restrict to one venue")
	flag.DurationVar(&opts.interval, "interval", 5*time.Second, "Quote board refresh interval")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("swap-router %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if opts.mode == "keygen" {
		if err := runKeygen(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if opts.mode != "tui" {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tuiMode := opts.mode == "tui"
	cfg.App.TUIMode = tuiMode

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// the board owns the terminal
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting swap router",
			"version", version,
			"environment", cfg.App.Environment,
			"mode", opts.mode,
		)
	}

	shutdown, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdown()

	mono := monolith.New(cfg, log)
	modules := []monolith.Module{
		&market.Module{},     // pool and token cache
		&blockchain.Module{}, // RPC, signer, confirmation
		&venue.Module{},      // adapters, depend on market and blockchain
		&aggregator.Module{}, // fan-out over the adapters
		&pricing.Module{},    // token price refresh
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mono.Close(closeCtx); err != nil {
			log.Warn(closeCtx, "shutdown incomplete", "error", err)
		}
	}()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	healthServer.RegisterCheck("solana_rpc", func(ctx context.Context) (bool, string) {
		if err := blockchainDI.GetService(mono.Services()).Health(ctx); err != nil {
			return false, err.Error()
		}
		return true, "ok"
	})
	healthServer.RegisterCheck("venues", func(ctx context.Context) (bool, string) {
		agg := aggregatorDI.GetAggregator(mono.Services())
		enabled := 0
		for _, c := range agg.Configs() {
			if c.Enabled {
				enabled++
			}
		}
		return enabled > 0, fmt.Sprintf("%d of %d enabled", enabled, len(agg.Venues()))
	})
	healthServer.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = healthServer.Stop(stopCtx)
	}()

	if tuiMode {
		return runTUI(ctx, mono, modules, opts)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	cli := &cli{
		agg:    aggregatorDI.GetAggregator(mono.Services()),
		tokens: tokenDecimals(mono),
		out:    os.Stdout,
	}
	return cli.run(ctx, opts)
}

// setupTelemetry installs tracing and metrics when enabled and returns the
// matching shutdown.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithPrometheus(),
	}
	if cfg.Telemetry.TraceProvider == string(apm.OTLPGRPCProvider) {
		metricOpts = append(metricOpts,
			metrics.WithOTLP(cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), false))
	}
	mp, err := metrics.NewMetricProvider(ctx, metricOpts...)
	if err != nil {
		_ = tp.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	prom := metrics.NewPromServer(cfg.Telemetry.PrometheusPort, log)
	prom.Start(ctx)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := errors.Join(prom.Shutdown(stopCtx), mp.Shutdown(stopCtx), tp.Stop())
		if err != nil {
			log.Warn(stopCtx, "telemetry shutdown", "error", err)
		}
	}, nil
}
