// Package marketdata supplies per-tick market snapshots to the
// orchestrator. The live implementation consumes a WebSocket market feed
// and caches the latest update per subject; the stub subpackage replays
// scripted snapshots for offline runs.
package marketdata

import (
	"context"
	"errors"

	"launch-sentinel/internal/domain"
)

// ErrUnavailable is returned when no (fresh) snapshot exists for the
// subject. The orchestrator reports it and skips the tick; it is never
// fatal.
var ErrUnavailable = errors.New("market data unavailable")

// Provider is the market-data collaborator contract.
type Provider interface {
	// GetMarketSnapshot returns the current snapshot for the subject or
	// ErrUnavailable.
	GetMarketSnapshot(ctx context.Context, subjectKey string) (*domain.MarketSnapshot, error)
}
