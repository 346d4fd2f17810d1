package ports

import (
	"context"

	"screener/pkg/platform/audit"
)

// AuditPublisher matches the compliance publisher but is declared here to
// keep the service free of platform wiring.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
