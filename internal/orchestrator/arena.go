package orchestrator

import (
	"sync"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/lifecycle"
)

// Handle is a stable index into the entity arena. External callers address
// entities by subject key; internally every lookup resolves to a handle
// once and borrows the record for the duration of one operation.
type Handle int

// entity is one tracked launch. The orchestrator owns the arena; other
// components only ever see the fields passed into them during a tick.
// mu serializes ticks for this entity: one in-flight tick per entity is
// the mandatory mutual-exclusion boundary.
type entity struct {
	mu sync.Mutex

	subjectKey   string
	handle       Handle
	launchedAtMs int64

	machine    *lifecycle.Machine
	reputation *domain.ReputationRecord
	evidence   domain.BehaviorEvidence
	limiter    rateLimiter

	totalActions int
	// actions is the bounded per-entity action log, newest last.
	actions    []domain.ActionRecord
	actionsCap int

	lastUpdateMs int64
}

// appendAction logs an executed action, trimming from the front at cap.
// Caller holds e.mu.
func (e *entity) appendAction(rec domain.ActionRecord) {
	e.actions = append(e.actions, rec)
	if e.actionsCap > 0 && len(e.actions) > e.actionsCap {
		e.actions = e.actions[len(e.actions)-e.actionsCap:]
	}
}

// arena stores entity records addressed by handle, with a subject-key
// lookup table. Records are never removed: termination is a lifecycle
// state, not a deletion, so handles stay valid for the process lifetime.
type arena struct {
	mu      sync.RWMutex
	records []*entity
	byKey   map[string]Handle
}

func newArena() *arena {
	return &arena{byKey: make(map[string]Handle)}
}

// add registers a new entity and returns its handle. ok is false when the
// subject key is already tracked.
func (a *arena) add(e *entity) (Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byKey[e.subjectKey]; exists {
		return 0, false
	}

	h := Handle(len(a.records))
	e.handle = h
	a.records = append(a.records, e)
	a.byKey[e.subjectKey] = h
	return h, true
}

// byKeyLookup resolves a subject key to its entity.
func (a *arena) byKeyLookup(subjectKey string) (*entity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	h, ok := a.byKey[subjectKey]
	if !ok {
		return nil, false
	}
	return a.records[h], true
}

// byHandle resolves a handle to its entity.
func (a *arena) byHandle(h Handle) (*entity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if h < 0 || int(h) >= len(a.records) {
		return nil, false
	}
	return a.records[h], true
}

// subjects returns all tracked subject keys in handle order.
func (a *arena) subjects() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]string, len(a.records))
	for i, e := range a.records {
		keys[i] = e.subjectKey
	}
	return keys
}
