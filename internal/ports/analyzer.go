package ports

import (
	"context"

	"github.com/mikey/phishgard/internal/core"
)

// Analyzer is the analysis pipeline as seen by the outer surfaces
type Analyzer interface {
	// AnalyzeEmail analyses a full message on behalf of a user
	AnalyzeEmail(ctx context.Context, userID string, email *core.Email) (*core.VerdictReport, error)

	// AnalyzeHeaders analyses a raw header block
	AnalyzeHeaders(ctx context.Context, raw string) (*core.VerdictReport, error)

	// Lookup returns a stored report or core.ErrNotFound
	Lookup(ctx context.Context, userID, emailID string) (*core.VerdictReport, error)
}
