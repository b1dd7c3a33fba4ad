package ports

import (
	"context"

	"github.com/mikey/phishgard/internal/core"
)

// EmailFilter defines the interface for email filtering
type EmailFilter interface {
	// ProcessEmail analyses an email and returns the verdict
	ProcessEmail(ctx context.Context, email *core.Email) (*core.VerdictReport, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
