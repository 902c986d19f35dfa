package oracle

import (
	"fmt"
	"math/big"
	"time"
)

// State is the serialisable form of the adapter's last observation.
type State struct {
	TotalVolume      string `json:"totalVolume"`
	TotalStaked      string `json:"totalStaked"`
	TotalPartnerMint string `json:"totalPartnerMint"`
	Timestamp        int64  `json:"timestamp"`
}

// Export captures the last snapshot for checkpointing.
func (a *Adapter) Export() *State {
	return &State{
		TotalVolume:      a.snapshot.TotalVolume.String(),
		TotalStaked:      a.snapshot.TotalStaked.String(),
		TotalPartnerMint: a.snapshot.TotalPartnerMint.String(),
		Timestamp:        a.snapshot.Timestamp.Unix(),
	}
}

// Restore rebuilds the last observation from a checkpoint.
func (a *Adapter) Restore(state *State) error {
	if state == nil {
		return fmt.Errorf("oracle: nil state")
	}
	parse := func(field, s string) (*big.Int, error) {
		if s == "" {
			return big.NewInt(0), nil
		}
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("oracle: invalid %s value %q", field, s)
		}
		return v, nil
	}
	volume, err := parse("totalVolume", state.TotalVolume)
	if err != nil {
		return err
	}
	staked, err := parse("totalStaked", state.TotalStaked)
	if err != nil {
		return err
	}
	partnerMint, err := parse("totalPartnerMint", state.TotalPartnerMint)
	if err != nil {
		return err
	}
	a.snapshot = Snapshot{
		TotalVolume:      volume,
		TotalStaked:      staked,
		TotalPartnerMint: partnerMint,
		Timestamp:        time.Unix(state.Timestamp, 0).UTC(),
	}
	return nil
}
