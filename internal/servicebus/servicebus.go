// Package servicebus defines the interface the notification queue consumer
// uses to restart or reload the services that consume replicated data.
// This is one of spec.md §1's out-of-scope external collaborators (the
// object-bus bindings and the service-management bus); only the interface
// the core depends on is specified here.
package servicebus

import (
	"context"
	"log/slog"
)

// Bus restarts or reloads a named unit. A production implementation talks
// to systemd over D-Bus; this package only ships a logging stub so the
// daemon is runnable without that external dependency.
type Bus interface {
	RestartUnit(ctx context.Context, service string) error
	ReloadUnit(ctx context.Context, service string) error
}

// LoggingStub is a Bus that only logs the call it would have made. It lets
// the engine and notify-queue consumer run end-to-end in tests and in
// environments without a real systemd/D-Bus connection.
type LoggingStub struct{}

// RestartUnit implements Bus.
func (LoggingStub) RestartUnit(ctx context.Context, service string) error {
	slog.Info("service bus: restart (stub)", "service", service)
	return nil
}

// ReloadUnit implements Bus.
func (LoggingStub) ReloadUnit(ctx context.Context, service string) error {
	slog.Info("service bus: reload (stub)", "service", service)
	return nil
}
