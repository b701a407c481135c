// Package provider defines the capability contract a platform location
// provider must satisfy. The tracking core treats a provider as opaque: it can
// report and request permissions, honor start/stop, and deliver samples and
// failures on channels at whatever cadence the platform produces them.
package provider

import (
	"context"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/location"
)

// PermissionScope names a platform location permission.
type PermissionScope string

const (
	// ScopeForeground allows location access while the application is in
	// the foreground.
	ScopeForeground = PermissionScope("foreground")
	// ScopeAlways additionally allows access while backgrounded.
	ScopeAlways = PermissionScope("always")
)

// PermissionStatus is the platform's answer to a permission query or request.
type PermissionStatus string

const (
	// StatusUnknown means the platform has not been asked yet.
	StatusUnknown = PermissionStatus("unknown")
	// StatusGranted allows tracking for the queried scope.
	StatusGranted = PermissionStatus("granted")
	// StatusDenied means the user refused the permission.
	StatusDenied = PermissionStatus("denied")
	// StatusRestricted means policy prevents the permission regardless of
	// user choice.
	StatusRestricted = PermissionStatus("restricted")
	// StatusPending means the platform deferred to an asynchronous dialog
	// that has not resolved yet.
	StatusPending = PermissionStatus("pending")
)

// A PermissionRequester exposes the platform permission operations.
type PermissionRequester interface {
	// RequestPermission asks the platform for a scope. It may block while
	// a dialog is shown and may resolve to StatusPending when the platform
	// defers the answer.
	RequestPermission(ctx context.Context, scope PermissionScope) (PermissionStatus, error)

	// QueryPermission reports the current status without prompting.
	QueryPermission(ctx context.Context, scope PermissionScope) (PermissionStatus, error)
}

// A Provider produces raw location samples. StartEmitting and StopEmitting may
// block while the platform acts; both honor their context. Samples and
// Failures return channels that stay valid for the provider's lifetime.
type Provider interface {
	PermissionRequester

	// StartEmitting begins an indefinite stream of samples at the
	// provider's native cadence, configured as closely to cfg as the
	// platform allows.
	StartEmitting(ctx context.Context, cfg config.TrackingConfig) error

	// StopEmitting ceases emission.
	StopEmitting(ctx context.Context) error

	// Samples delivers raw location samples while emitting.
	Samples() <-chan location.Sample

	// Failures delivers abrupt provider faults, such as hardware becoming
	// unavailable. A failure means the sample stream is dead.
	Failures() <-chan error
}
