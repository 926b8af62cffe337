// Package lifecycle holds the deterministic per-entity state machine that
// gates intervention eligibility. Transitions are driven by reputation-band
// changes, rug detections, launch age, and explicit termination.
package lifecycle

import (
	"errors"
	"fmt"

	"launch-sentinel/internal/domain"
	"launch-sentinel/internal/idhash"
)

// ErrTerminated is returned when any transition is attempted on a
// terminated machine. TERMINATED is absorbing.
var ErrTerminated = errors.New("entity is terminated: no further transitions accepted")

// Publisher receives events emitted by the machine.
type Publisher interface {
	Publish(domain.Event)
}

// DefaultHistoryCap bounds the per-entity transition history.
const DefaultHistoryCap = 100

// Machine is the lifecycle state machine for one tracked entity.
// Exactly one state holds at any time. Not safe for concurrent use: the
// orchestrator serializes access per entity.
type Machine struct {
	subjectKey   string
	state        domain.LifecycleState
	stateStartMs int64
	history      []domain.TransitionRecord
	historyCap   int
	pub          Publisher
}

// NewMachine creates a machine in INIT and records the initialize
// transition.
func NewMachine(subjectKey string, nowMs int64, pub Publisher) *Machine {
	m := &Machine{
		subjectKey:   subjectKey,
		state:        domain.StateInit,
		stateStartMs: nowMs,
		historyCap:   DefaultHistoryCap,
		pub:          pub,
	}
	m.record(nowMs, domain.StateInit, domain.StateInit, domain.TriggerInitialize)
	return m
}

// State returns the current lifecycle state.
func (m *Machine) State() domain.LifecycleState {
	return m.state
}

// StateStart returns when the current state was entered (Unix ms).
func (m *Machine) StateStart() int64 {
	return m.stateStartMs
}

// History returns a copy of the bounded transition history.
func (m *Machine) History() []domain.TransitionRecord {
	out := make([]domain.TransitionRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Activate moves INIT to ACTIVE on the first successful tick. A no-op in
// any other state.
func (m *Machine) Activate(nowMs int64) error {
	if m.state.Terminal() {
		return ErrTerminated
	}
	if m.state != domain.StateInit {
		return nil
	}
	m.transition(nowMs, domain.StateActive, domain.TriggerInitialize)
	return nil
}

// ApplyBand re-aligns the state with a reputation band. A no-op when the
// state already matches, and from COOLDOWN: band changes never pull an
// aged launch back into a band state. An error when terminated.
func (m *Machine) ApplyBand(nowMs int64, band domain.Band) error {
	if m.state.Terminal() {
		return ErrTerminated
	}
	if m.state == domain.StateCooldown {
		return nil
	}
	target := domain.StateForBand(band)
	if m.state == target {
		return nil
	}
	m.transition(nowMs, target, domain.TriggerBandChange)
	return nil
}

// ApplyRug forces ADVERSARIAL from any non-terminal state. A no-op when
// already ADVERSARIAL.
func (m *Machine) ApplyRug(nowMs int64) error {
	if m.state.Terminal() {
		return ErrTerminated
	}
	if m.state == domain.StateAdversarial {
		return nil
	}
	m.transition(nowMs, domain.StateAdversarial, domain.TriggerRugDetected)
	return nil
}

// ApplyLaunchAge moves any non-terminal state to COOLDOWN once the launch
// is older than maxAgeMs. COOLDOWN tapers intervention frequency; it does
// not stop it.
func (m *Machine) ApplyLaunchAge(nowMs, launchedAtMs, maxAgeMs int64) error {
	if m.state.Terminal() {
		return ErrTerminated
	}
	if m.state == domain.StateCooldown {
		return nil
	}
	if nowMs-launchedAtMs <= maxAgeMs {
		return nil
	}
	m.transition(nowMs, domain.StateCooldown, domain.TriggerLaunchAged)
	return nil
}

// Terminate moves to TERMINATED from any state except TERMINATED itself.
func (m *Machine) Terminate(nowMs int64, reason string) error {
	if m.state.Terminal() {
		return fmt.Errorf("terminate %s: %w", m.subjectKey, ErrTerminated)
	}
	m.transition(nowMs, domain.StateTerminated, domain.TriggerTerminate)
	return nil
}

// transition applies an accepted state change: exactly one history record
// and exactly one STATE_TRANSITION event per call.
func (m *Machine) transition(nowMs int64, to domain.LifecycleState, trigger string) {
	m.record(nowMs, m.state, to, trigger)
	m.state = to
	m.stateStartMs = nowMs
}

func (m *Machine) record(nowMs int64, from, to domain.LifecycleState, trigger string) {
	rec := domain.TransitionRecord{
		TransitionID: idhash.ComputeTransitionID(m.subjectKey, string(from), string(to), nowMs),
		SubjectKey:   m.subjectKey,
		From:         from,
		To:           to,
		Trigger:      trigger,
		OccurredAt:   nowMs,
	}

	m.history = append(m.history, rec)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}

	if m.pub != nil {
		m.pub.Publish(domain.Event{
			Kind:       domain.EventStateTransition,
			SubjectKey: m.subjectKey,
			EmittedAt:  nowMs,
			Payload:    domain.StateTransitionPayload{Transition: rec},
		})
	}
}
