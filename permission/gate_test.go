package permission_test

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/trackkit/gpstrack/config"
	"github.com/trackkit/gpstrack/permission"
	"github.com/trackkit/gpstrack/provider"
	"github.com/trackkit/gpstrack/provider/fake"
)

func TestScopeFor(t *testing.T) {
	cfg := config.DefaultConfig()
	test.That(t, permission.ScopeFor(cfg), test.ShouldEqual, provider.ScopeForeground)

	cfg.BackgroundMode = true
	test.That(t, permission.ScopeFor(cfg), test.ShouldEqual, provider.ScopeAlways)
}

func TestEnsureGranted(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prov := fake.New(logger)
	prov.SetPermission(provider.ScopeForeground, provider.StatusGranted)

	gate := permission.NewGate(prov, logger)
	status, err := gate.Ensure(context.Background(), provider.ScopeForeground)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, provider.StatusGranted)
}

func TestEnsureGrantedAfterRequest(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prov := fake.New(logger)
	prov.SetPermission(provider.ScopeForeground, provider.StatusUnknown)
	prov.ScriptRequest(provider.ScopeForeground, provider.StatusGranted)

	gate := permission.NewGate(prov, logger)
	status, err := gate.Ensure(context.Background(), provider.ScopeForeground)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, provider.StatusGranted)
}

func TestEnsureDenied(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prov := fake.New(logger)
	prov.SetPermission(provider.ScopeAlways, provider.StatusDenied)

	gate := permission.NewGate(prov, logger)
	status, err := gate.Ensure(context.Background(), provider.ScopeAlways)
	test.That(t, errors.Is(err, permission.ErrDenied), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "always")
	test.That(t, status, test.ShouldEqual, provider.StatusDenied)
}

func TestEnsureRestricted(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prov := fake.New(logger)
	prov.SetPermission(provider.ScopeForeground, provider.StatusRestricted)

	gate := permission.NewGate(prov, logger)
	_, err := gate.Ensure(context.Background(), provider.ScopeForeground)
	test.That(t, errors.Is(err, permission.ErrDenied), test.ShouldBeTrue)
}

func TestEnsurePending(t *testing.T) {
	logger := golog.NewTestLogger(t)
	prov := fake.New(logger)
	prov.ScriptRequest(provider.ScopeForeground, provider.StatusPending, provider.StatusGranted)

	gate := permission.NewGate(prov, logger)

	// pending is a legitimate terminal-for-now state, not an error
	status, err := gate.Ensure(context.Background(), provider.ScopeForeground)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, provider.StatusPending)

	// once the dialog resolves, a second round succeeds
	status, err = gate.Ensure(context.Background(), provider.ScopeForeground)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, provider.StatusGranted)
}
