package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeydtaylor/steeze-runner/pkg/bootstrap"
	"github.com/joeydtaylor/steeze-runner/pkg/loader"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"github.com/joeydtaylor/steeze-runner/pkg/serverfx"
	_ "github.com/joeydtaylor/steeze-runner/pkg/workload/builtin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, args []string) error {
	cfg, shouldExit, err := parse(args, out)
	if err != nil || shouldExit {
		return err
	}

	log := logger.ProvideLogger()
	defer func() { _ = log.Sync() }()

	fmt.Fprintf(out, "PID %d: loading function %q\n", os.Getpid(), cfg.WorkloadID)
	res, err := bootstrap.Start(ctx, bootstrap.Options{
		WorkloadID: cfg.WorkloadID,
		Descriptor: cfg.Descriptor,
		AppsDir:    cfg.AppsDir,
		Timeout:    cfg.Timeout,
		Logger:     log,
		Observer:   metrics.ObserveInvocation,
		Loader: loader.Options{
			Logger:            log,
			ReadyTimeout:      cfg.ReadyTimeout,
			PythonInterpreter: cfg.Python,
		},
	})
	if err != nil {
		return startupError(cfg.WorkloadID, err)
	}
	fmt.Fprintf(out, "Function %q loaded in %s.\n", cfg.WorkloadID, res.Handle.LoadTime())

	var srvOpts []serverfx.Option
	if cfg.Listen != "" {
		srvOpts = append(srvOpts, serverfx.WithListenAddr(cfg.Listen))
	}
	app := fx.New(
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger { return &fxevent.ZapLogger{Logger: l} }),
		fx.Supply(res.Host, log),
		serverfx.Module(srvOpts...),
	)

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		_ = res.Host.Close(context.Background())
		return &ExitError{Code: 1, Message: fmt.Sprintf("Error: server failed to start: %v", err)}
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	return app.Stop(stopCtx)
}

// startupError renders a bootstrap failure for the operator.
func startupError(id string, err error) error {
	var nf *registry.NotFoundError
	var le *loader.LoadError
	switch {
	case errors.Is(err, bootstrap.ErrNoWorkload):
		return &ExitError{Code: 1, Message: "Usage: runner [options] <function_name>"}
	case errors.As(err, &nf):
		return &ExitError{Code: 1, Message: fmt.Sprintf(
			"Error: Function '%s' not found in configuration.\nAvailable functions: %v", id, nf.Available)}
	case errors.As(err, &le):
		msg := fmt.Sprintf("Error: Failed to load function '%s': %v", id, le)
		if le.Trace != "" {
			msg += "\n" + le.Trace
		}
		return &ExitError{Code: 1, Message: msg}
	}
	return &ExitError{Code: 1, Message: "Error: " + err.Error()}
}
