// Package stub provides a scripted market-data provider for offline
// simulation and tests.
package stub

import (
	"context"
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/marketdata"
)

// Provider replays scripted snapshots per subject. Each GetMarketSnapshot
// call advances the script by one; the final snapshot repeats once the
// script is exhausted. Subjects with no script report ErrUnavailable.
type Provider struct {
	mu      sync.Mutex
	scripts map[string][]domain.MarketSnapshot
	cursor  map[string]int
}

// NewProvider creates an empty stub provider.
func NewProvider() *Provider {
	return &Provider{
		scripts: make(map[string][]domain.MarketSnapshot),
		cursor:  make(map[string]int),
	}
}

// Script sets the snapshot sequence for a subject, resetting its cursor.
func (p *Provider) Script(subjectKey string, snapshots ...domain.MarketSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts[subjectKey] = snapshots
	p.cursor[subjectKey] = 0
}

// GetMarketSnapshot returns the next scripted snapshot for the subject.
func (p *Provider) GetMarketSnapshot(_ context.Context, subjectKey string) (*domain.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	script := p.scripts[subjectKey]
	if len(script) == 0 {
		return nil, marketdata.ErrUnavailable
	}

	i := p.cursor[subjectKey]
	if i >= len(script) {
		i = len(script) - 1
	} else {
		p.cursor[subjectKey] = i + 1
	}

	snapshot := script[i]
	snapshot.SubjectKey = subjectKey
	return &snapshot, nil
}

var _ marketdata.Provider = (*Provider)(nil)
