package gov

import (
	"errors"
	"fmt"

	"github.com/Johny-1992/TGST/core/events"
	"github.com/Johny-1992/TGST/crypto"
)

// Role identifiers gating the privileged entry points.
const (
	// RoleAdmin grants and revokes the other roles.
	RoleAdmin = "ROLE_ADMIN"
	// RoleGovernor tunes parameters, manages partners, pauses, funds pools,
	// and performs stray-asset rescues.
	RoleGovernor = "ROLE_GOVERNOR"
	// RoleOracle may push oracle updates and nothing else.
	RoleOracle = "ROLE_ORACLE"
)

var (
	// ErrUnauthorized indicates the caller does not hold the required role.
	ErrUnauthorized = errors.New("gov: caller not authorized")
	// ErrPaused indicates a state-mutating entry point was hit while paused.
	ErrPaused = errors.New("gov: system paused")
	// ErrUnknownRole indicates an unrecognised role identifier.
	ErrUnknownRole = errors.New("gov: unknown role")
)

func validRole(role string) bool {
	switch role {
	case RoleAdmin, RoleGovernor, RoleOracle:
		return true
	}
	return false
}

// Engine holds role assignments, the process-wide pause flag, and the
// anomaly counter driving the circuit breaker.
type Engine struct {
	roles            map[string]map[crypto.Address]struct{}
	paused           bool
	anomalyCount     uint32
	anomalyThreshold uint32
	emitter          events.Emitter
}

// NewEngine constructs a governance engine with the initial admin and
// anomaly threshold. The admin also starts as governor so a fresh deployment
// is operable with a single key.
func NewEngine(admin crypto.Address, anomalyThreshold uint32) *Engine {
	e := &Engine{
		roles:            make(map[string]map[crypto.Address]struct{}),
		anomalyThreshold: anomalyThreshold,
		emitter:          events.NoopEmitter{},
	}
	e.grant(RoleAdmin, admin)
	e.grant(RoleGovernor, admin)
	return e
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) grant(role string, addr crypto.Address) {
	set, ok := e.roles[role]
	if !ok {
		set = make(map[crypto.Address]struct{})
		e.roles[role] = set
	}
	set[addr] = struct{}{}
}

// HasRole reports whether the address holds the role.
func (e *Engine) HasRole(role string, addr crypto.Address) bool {
	set, ok := e.roles[role]
	if !ok {
		return false
	}
	_, held := set[addr]
	return held
}

// RequireRole returns ErrUnauthorized unless the caller holds the role.
func (e *Engine) RequireRole(role string, caller crypto.Address) error {
	if !e.HasRole(role, caller) {
		return fmt.Errorf("%w: %s requires %s", ErrUnauthorized, caller, role)
	}
	return nil
}

// GrantRole assigns the role; only an admin may call.
func (e *Engine) GrantRole(caller crypto.Address, role string, addr crypto.Address) error {
	if err := e.RequireRole(RoleAdmin, caller); err != nil {
		return err
	}
	if !validRole(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	e.grant(role, addr)
	e.emitter.Emit(events.RoleGranted{Role: role, Account: addr})
	return nil
}

// RevokeRole removes the role; only an admin may call.
func (e *Engine) RevokeRole(caller crypto.Address, role string, addr crypto.Address) error {
	if err := e.RequireRole(RoleAdmin, caller); err != nil {
		return err
	}
	if !validRole(role) {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if set, ok := e.roles[role]; ok {
		delete(set, addr)
	}
	e.emitter.Emit(events.RoleRevoked{Role: role, Account: addr})
	return nil
}

// Paused reports the process-wide pause flag.
func (e *Engine) Paused() bool { return e.paused }

// GuardNotPaused fails fast when the system is paused.
func (e *Engine) GuardNotPaused() error {
	if e.paused {
		return ErrPaused
	}
	return nil
}

// Pause halts all economic entry points; governor only.
func (e *Engine) Pause(caller crypto.Address) error {
	if err := e.RequireRole(RoleGovernor, caller); err != nil {
		return err
	}
	e.paused = true
	e.emitter.Emit(events.Paused{By: caller})
	return nil
}

// Unpause lifts the pause and resets the anomaly counter; governor only.
func (e *Engine) Unpause(caller crypto.Address) error {
	if err := e.RequireRole(RoleGovernor, caller); err != nil {
		return err
	}
	e.paused = false
	e.anomalyCount = 0
	e.emitter.Emit(events.Unpaused{By: caller})
	return nil
}

// AnomalyCount returns the running anomalous-push counter.
func (e *Engine) AnomalyCount() uint32 { return e.anomalyCount }

// AnomalyThreshold returns the configured auto-pause threshold.
func (e *Engine) AnomalyThreshold() uint32 { return e.anomalyThreshold }

// SetAnomalyThreshold updates the auto-pause threshold (governance-tuned).
func (e *Engine) SetAnomalyThreshold(threshold uint32) { e.anomalyThreshold = threshold }

// RecordOracleObservation advances the circuit breaker with the anomaly
// classification of the latest push. An in-bounds push resets the counter;
// reaching the threshold forces a pause without governor involvement.
// It reports whether an auto-pause was triggered.
func (e *Engine) RecordOracleObservation(anomalous bool) bool {
	if !anomalous {
		e.anomalyCount = 0
		return false
	}
	e.anomalyCount++
	e.emitter.Emit(events.AnomalyRecorded{Count: e.anomalyCount, Threshold: e.anomalyThreshold})
	if e.anomalyThreshold > 0 && e.anomalyCount >= e.anomalyThreshold && !e.paused {
		e.paused = true
		e.emitter.Emit(events.AutoPaused{AnomalyCount: e.anomalyCount})
		return true
	}
	return false
}
