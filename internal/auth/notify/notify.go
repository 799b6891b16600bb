// Package notify delivers MFA codes and account notifications. The core only
// depends on the Notifier interface; concrete adapters live alongside so the
// service has no compile-time coupling to a delivery vendor.
package notify

import "context"

// Notifier is the narrow delivery contract consumed by the MFA orchestrator.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSms(ctx context.Context, to, body string) error
}

// Noop discards every message. Used in tests and when delivery is not
// configured (the codes still land in the ephemeral store).
type Noop struct{}

func (Noop) SendEmail(ctx context.Context, to, subject, body string) error { return nil }
func (Noop) SendSms(ctx context.Context, to, body string) error            { return nil }
