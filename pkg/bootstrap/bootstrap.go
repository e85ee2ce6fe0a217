// Package bootstrap drives the startup order: registry, lookup, bind, host.
// Every error it returns is fatal for the process; nothing is listening yet.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/host"
	"github.com/joeydtaylor/steeze-runner/pkg/loader"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"go.uber.org/zap"
)

var ErrNoWorkload = errors.New("no workload id given")

type Options struct {
	WorkloadID string
	Descriptor string // registry source
	AppsDir    string // base for relative entry paths

	Timeout  time.Duration // per-invocation cap, 0 = none
	Logger   *zap.Logger
	Loader   loader.Options
	Observer host.Observer
}

// Result is a Bound host and what it was built from.
type Result struct {
	Registry   *registry.Registry
	Descriptor registry.Descriptor
	Host       *host.Host
	Handle     *loader.Handle
}

func Start(ctx context.Context, o Options) (*Result, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.WorkloadID == "" {
		return nil, ErrNoWorkload
	}

	reg, err := registry.Load(o.Descriptor, o.AppsDir)
	if err != nil {
		log.Warn("descriptor unusable; continuing with an empty registry",
			zap.String("path", o.Descriptor), zap.Error(err))
	} else {
		log.Info("registry loaded", zap.String("path", o.Descriptor), zap.Strings("workloads", reg.IDs()))
	}

	d, err := reg.Get(o.WorkloadID)
	if err != nil {
		return nil, err
	}

	lo := o.Loader
	if lo.Logger == nil {
		lo.Logger = log
	}
	log.Info("loading workload", zap.String("workload", d.ID), zap.Int("pid", os.Getpid()))
	hd, err := loader.New(lo).Bind(ctx, d)
	if err != nil {
		return nil, err
	}

	h := host.New(reg,
		host.WithLogger(log),
		host.WithTimeout(o.Timeout),
		host.WithObserver(o.Observer),
	)
	if err := h.Bind(hd); err != nil {
		_ = hd.Close(ctx)
		return nil, err
	}
	log.Info("workload loaded",
		zap.String("workload", d.ID),
		zap.String("runtime", string(d.Runtime)),
		zap.Duration("loadTime", hd.LoadTime()),
	)
	return &Result{Registry: reg, Descriptor: d, Host: h, Handle: hd}, nil
}
