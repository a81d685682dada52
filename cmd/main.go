package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	kat "github.com/devine-os/kern-acceptor"
	"github.com/devine-os/kern-acceptor/exitcodes"
	"github.com/devine-os/kern-acceptor/flags"
	"github.com/devine-os/kern-acceptor/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "kern-acceptor"
	app.Usage = "Devine Kernel Acceptance Tester"
	app.Description = "kern-acceptor validates kernel images by booting them under an emulator"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if kat.IsRuntimeError(err) {
				// For runtime errors, use exit code 2
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else {
				// Precondition violations, check failures and anything else
				// unspecified map to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.CheckFailure))
			}
		}
	}

	// Start telemetry
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup open telemetry: %v\n", err)
		os.Exit(exitcodes.RuntimeErr)
	}
	defer otelShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start healthz/metrics servers
	svc := service.New(zap.L())
	svc.Start(ctx)
	defer svc.Shutdown()

	// Start CLI
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(exitcodes.RuntimeErr)
	}
}

func run(ctx *cli.Context) error {
	logger, err := newLogger(ctx.String(flags.LogLevel.Name))
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return kat.NewRuntimeError(fmt.Errorf("failed to create logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	cfg, err := kat.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return kat.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config",
		zap.String("kernelImage", cfg.KernelImage),
		zap.String("qemuBinary", cfg.QemuBinary),
		zap.String("logDir", cfg.LogDir))

	appCtx, cancel := context.WithCancelCause(ctx.Context)
	defer cancel(nil)

	// Create the KAT service
	katService, err := kat.New(appCtx, cfg, Version, cancel)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return kat.NewRuntimeError(fmt.Errorf("failed to create kat: %w", err))
	}

	if err := katService.Start(appCtx); err != nil {
		return err
	}

	if !cfg.RunOnce {
		// Block until interrupted, then stop the scheduler and drain
		<-appCtx.Done()
		if err := katService.Stop(context.Background()); err != nil {
			logger.Error("Error stopping service", zap.Error(err))
		}
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer waitCancel()
		_ = katService.WaitForShutdown(waitCtx)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	return cfg.Build()
}
