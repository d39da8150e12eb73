// Package lifecycle defines the Service/DescriptorProvider contract every
// long-running component implements, and a Manager that starts and stops
// them deterministically as a unit.
package lifecycle

import (
	"context"

	core "github.com/starvault/casebot/internal/app/core/service"
)

// Service represents a lifecycle-managed component. Every long-running
// module (queue workers, the long-poll runner, the HTTP server, the cron
// scheduler) implements this so the Manager can start and stop them
// deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// DescriptorProvider optionally advertises service metadata (layer,
// capabilities) for the admin diagnostics surface.
type DescriptorProvider interface {
	Descriptor() core.Descriptor
}
