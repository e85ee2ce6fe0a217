// Package bundlefx groups the HTTP middleware providers.
package bundlefx

import (
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-runner/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides *auth.Middleware, *logger.Middleware and the named
// "metrics" handler.
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
)
