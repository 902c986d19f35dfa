package staking

import (
	"fmt"
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

// StakeState is the serialisable form of a stake record.
type StakeState struct {
	Amount     string `json:"amount"`
	StartTime  int64  `json:"startTime"`
	UnlockTime int64  `json:"unlockTime"`
}

// State is the serialisable form of the staking engine.
type State struct {
	Stakes map[string]StakeState `json:"stakes,omitempty"`
}

// Export captures the staking records for checkpointing.
func (e *Engine) Export() *State {
	state := &State{Stakes: make(map[string]StakeState, len(e.stakes))}
	for owner, stake := range e.stakes {
		state.Stakes[owner.String()] = StakeState{
			Amount:     stake.Amount.String(),
			StartTime:  stake.StartTime,
			UnlockTime: stake.UnlockTime,
		}
	}
	return state
}

// Restore rebuilds the stake records and escrow total from a checkpoint.
func (e *Engine) Restore(state *State) error {
	if state == nil {
		return fmt.Errorf("staking: nil state")
	}
	stakes := make(map[crypto.Address]*Stake, len(state.Stakes))
	total := big.NewInt(0)
	for ownerStr, ss := range state.Stakes {
		owner, err := crypto.DecodeAddress(ownerStr)
		if err != nil {
			return fmt.Errorf("staking: owner address: %w", err)
		}
		amount, ok := new(big.Int).SetString(ss.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("staking: invalid stake amount %q", ss.Amount)
		}
		stakes[owner] = &Stake{Amount: amount, StartTime: ss.StartTime, UnlockTime: ss.UnlockTime}
		total.Add(total, amount)
	}
	e.stakes = stakes
	e.totalStaked = total
	return nil
}
