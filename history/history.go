// Package history persists completed conversation exchanges per session.
// The pipeline engine appends entries only after a pipeline finalizes, so
// partial or failed exchanges are never stored. Three backends are
// provided: in-memory (tests, demos), SQLite (single-node deployments) and
// Redis (shared deployments with TTL-based expiry).
package history

import (
	"context"
	"time"

	"github.com/avilaj/rassist/core"
)

// Store is the history collaborator contract. Clear on a session without
// history is a no-op, not an error.
type Store interface {
	Append(ctx context.Context, sessionID, role, content string, ts time.Time) error
	List(ctx context.Context, sessionID string) ([]core.Message, error)
	Clear(ctx context.Context, sessionID string) error
}
