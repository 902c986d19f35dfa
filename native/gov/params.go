package gov

import (
	"fmt"
	"math/big"
	"time"
)

// BpsCeiling bounds every basis-point parameter.
const BpsCeiling = 10_000

// Params groups the governance-tunable knobs of the ledger engine. Values
// arrive pre-scaled (prices and caps in 1e18 units).
type Params struct {
	BaseBurnBps      uint64
	BaseMintBps      uint64
	MaxRewardBps     uint64
	TargetPrice      *big.Int
	PriceK           *big.Int
	VolumeCeiling    *big.Int
	UserDailyMintCap *big.Int
	MinStakeDuration time.Duration
	MaxStakeDuration time.Duration
	AnomalyThreshold uint32
}

// Clone returns a deep copy of the parameter set.
func (p Params) Clone() Params {
	clone := p
	clone.TargetPrice = copyOrZero(p.TargetPrice)
	clone.PriceK = copyOrZero(p.PriceK)
	clone.VolumeCeiling = copyOrZero(p.VolumeCeiling)
	clone.UserDailyMintCap = copyOrZero(p.UserDailyMintCap)
	return clone
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Validate checks the parameter bounds before governance applies them.
func (p Params) Validate() error {
	if p.BaseBurnBps > BpsCeiling {
		return fmt.Errorf("gov: base burn %d bps exceeds %d", p.BaseBurnBps, BpsCeiling)
	}
	if p.BaseMintBps > BpsCeiling {
		return fmt.Errorf("gov: base mint %d bps exceeds %d", p.BaseMintBps, BpsCeiling)
	}
	if p.MaxRewardBps > BpsCeiling {
		return fmt.Errorf("gov: max reward %d bps exceeds %d", p.MaxRewardBps, BpsCeiling)
	}
	if p.TargetPrice == nil || p.TargetPrice.Sign() <= 0 {
		return fmt.Errorf("gov: target price must be positive")
	}
	if p.PriceK != nil && p.PriceK.Sign() < 0 {
		return fmt.Errorf("gov: price coefficient must not be negative")
	}
	if p.MinStakeDuration <= 0 {
		return fmt.Errorf("gov: min stake duration must be positive")
	}
	if p.MaxStakeDuration < p.MinStakeDuration {
		return fmt.Errorf("gov: max stake duration %s below min %s", p.MaxStakeDuration, p.MinStakeDuration)
	}
	if p.AnomalyThreshold == 0 {
		return fmt.Errorf("gov: anomaly threshold must be positive")
	}
	return nil
}
