// Package main is the entry point of kcmc-svc.
//
// kcmc-svc finds small sets of active sensors in wireless sensor network
// instances such that every point of interest stays covered by K active
// sensors and keeps M node-disjoint paths of active sensors to a sink.
//
// # Subcommands
//
//	kcmc-svc generate <pois> <sensors> <sinks> <area> <cov_r> <com_r> <k> <m> <seed>...
//	kcmc-svc evaluate <k> <m> <instance> [inactive...]
//	kcmc-svc optimize <instance> <k> <m>
//	kcmc-svc report [-format tsv|json|md|xlsx|pdf] [-o file] [problems-file]
//	kcmc-svc serve
//
// K and M may be given as one K2M3 token wherever both are expected.
// evaluate and optimize take -remote <url> to run against a kcmc-svc
// started with serve instead of the local engine.
// generate prints one "instance<TAB>k<TAB>m" line per seed, which is the
// input format of report, so the two chain through a pipe.
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: KCMC_), including a .env file
//  2. Config files (config.yaml, config/config.yaml, /etc/kcmc/config.yaml)
//  3. Default values
//
// Key options (environment variable format):
//
//	KCMC_LOG_LEVEL             - debug, info, warn, error (default: info)
//	KCMC_LOG_OUTPUT            - stdout, stderr, file (default: stderr)
//	KCMC_HTTP_PORT             - HTTP port for serve (default: 8080)
//	KCMC_ENGINE_METHODS        - comma separated minimizers of a suite
//	KCMC_ENGINE_WORKERS        - minimizers running in parallel (default: 4)
//	KCMC_CACHE_ENABLED         - cache minimizer results (default: false)
//	KCMC_CACHE_DRIVER          - memory, redis (default: memory)
//	KCMC_RATE_LIMIT_ENABLED    - limit /v1 requests (default: false)
//	KCMC_TRACING_ENABLED       - export OTLP traces (default: false)
//	KCMC_REPORT_DEFAULT_FORMAT - report format (default: tsv)
//
// Logs go to stderr so that stdout carries only command output.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kcmc/pkg/apperror"
	"kcmc/pkg/config"
	"kcmc/pkg/logger"
	"kcmc/pkg/metrics"
	"kcmc/pkg/telemetry"
	kcmcsvc "kcmc/services/kcmc-svc"
)

const usage = `usage: kcmc-svc <command> [arguments]

commands:
  generate  <pois> <sensors> <sinks> <area> <cov_r> <com_r> <k> <m> <seed>...
  evaluate  [-cross-check] [-remote url] <k> <m> <instance> [inactive...]
  optimize  [-methods a,b] [-inactive 1,2] [-remote url] <instance> <k> <m>
  report    [-format f] [-o file] [-methods a,b] [problems-file]
  serve
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(os.Stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	// =========================================================================
	// Configuration Loading
	// =========================================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// =========================================================================
	// Logger Initialization
	// =========================================================================
	//
	// File output is rotated by lumberjack (log.output=file).
	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// =========================================================================
	// Telemetry Initialization (OpenTelemetry)
	// =========================================================================
	//
	// Shutdown flushes pending spans before the process exits.
	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to init telemetry", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Log.Warn("Failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Log.Info("Telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// =========================================================================
	// Metrics Initialization (Prometheus)
	// =========================================================================
	m := metrics.InitMetrics(cfg.Metrics.Namespace, "")
	if cfg.Metrics.Enabled {
		if err := prometheus.Register(metrics.NewRuntimeCollector(cfg.Metrics.Namespace, "")); err != nil {
			logger.Log.Warn("Failed to register runtime collector", "error", err)
		}
		m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	}

	// =========================================================================
	// Engine, Cache and Rate Limiter
	// =========================================================================
	app, err := kcmcsvc.New(cfg)
	if err != nil {
		logger.Log.Error("Failed to create engine", "error", err)
		return 1
	}
	defer app.Close(ctx)

	// =========================================================================
	// Command Dispatch
	// =========================================================================
	cmd := &command{app: app, stdout: os.Stdout, stdin: os.Stdin}
	if err := cmd.dispatch(ctx, args[0], args[1:]); err != nil {
		return exitCode(err)
	}
	return 0
}

// exitCode prints err and maps it to a process exit status: 2 for usage and
// input errors, 3 for infeasible problems, 1 otherwise.
func exitCode(err error) int {
	fmt.Fprintf(os.Stderr, "kcmc-svc: %v\n", err)

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	switch apperror.Code(err) {
	case apperror.CodeParseError, apperror.CodeInvalidInstance, apperror.CodeInvalidArgument, apperror.CodeUnknownMethod:
		return 2
	case apperror.CodeInsufficientCoverage, apperror.CodeInsufficientConnectivity:
		return 3
	default:
		return 1
	}
}
