package gov

import (
	"fmt"
	"sort"

	"github.com/Johny-1992/TGST/crypto"
)

// State is the serialisable form of the governance engine. The anomaly
// threshold is a configured tunable, not state, so it is never persisted;
// restarts pick it up from config like the fee and staking knobs.
type State struct {
	Roles        map[string][]string `json:"roles,omitempty"`
	Paused       bool                `json:"paused"`
	AnomalyCount uint32              `json:"anomalyCount"`
}

// Export captures role assignments and breaker state for checkpointing.
func (e *Engine) Export() *State {
	state := &State{
		Roles:        make(map[string][]string, len(e.roles)),
		Paused:       e.paused,
		AnomalyCount: e.anomalyCount,
	}
	for role, set := range e.roles {
		members := make([]string, 0, len(set))
		for addr := range set {
			members = append(members, addr.String())
		}
		sort.Strings(members)
		state.Roles[role] = members
	}
	return state
}

// Restore rebuilds the role sets and breaker state from a checkpoint.
func (e *Engine) Restore(state *State) error {
	if state == nil {
		return fmt.Errorf("gov: nil state")
	}
	roles := make(map[string]map[crypto.Address]struct{}, len(state.Roles))
	for role, members := range state.Roles {
		if !validRole(role) {
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
		set := make(map[crypto.Address]struct{}, len(members))
		for _, memberStr := range members {
			addr, err := crypto.DecodeAddress(memberStr)
			if err != nil {
				return fmt.Errorf("gov: role member: %w", err)
			}
			set[addr] = struct{}{}
		}
		roles[role] = set
	}
	e.roles = roles
	e.paused = state.Paused
	e.anomalyCount = state.AnomalyCount
	return nil
}
