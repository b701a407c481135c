// Package permission decides whether tracking may proceed given the
// platform's location permission state.
package permission

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/provider"
)

// ErrDenied is returned when the platform reports the permission denied or
// restricted after a request round-trip.
var ErrDenied = errors.New("location permission denied")

// ScopeFor returns the permission scope a config requires. Background mode
// needs the always scope; the gate never downgrades that to foreground.
func ScopeFor(cfg config.TrackingConfig) provider.PermissionScope {
	if cfg.BackgroundMode {
		return provider.ScopeAlways
	}
	return provider.ScopeForeground
}

// A Gate authorizes tracking operations against a permission requester.
type Gate struct {
	req    provider.PermissionRequester
	logger golog.Logger
}

// NewGate returns a gate over the given requester.
func NewGate(req provider.PermissionRequester, logger golog.Logger) *Gate {
	return &Gate{req: req, logger: logger}
}

// Ensure queries the scope's status and, if not yet granted, performs one
// request round-trip. Denied or restricted answers fail with ErrDenied.
// StatusPending is returned without error: the platform deferred to an
// asynchronous dialog and the caller must re-invoke after it resolves.
func (g *Gate) Ensure(ctx context.Context, scope provider.PermissionScope) (provider.PermissionStatus, error) {
	status, err := g.req.QueryPermission(ctx, scope)
	if err != nil {
		return provider.StatusUnknown, errors.Wrapf(err, "cannot query %q permission", scope)
	}
	if status == provider.StatusGranted {
		return status, nil
	}

	g.logger.Debugw("requesting location permission", "scope", scope, "status", status)
	status, err = g.req.RequestPermission(ctx, scope)
	if err != nil {
		return provider.StatusUnknown, errors.Wrapf(err, "cannot request %q permission", scope)
	}

	switch status {
	case provider.StatusGranted:
		return status, nil
	case provider.StatusPending:
		return status, nil
	default:
		return status, errors.Wrapf(ErrDenied, "scope %q reported %q", scope, status)
	}
}
