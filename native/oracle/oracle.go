package oracle

import (
	"errors"
	"math/big"
	"time"
)

// ErrNotAuthorized indicates the caller does not hold the oracle role; the
// coordinating engine performs the role check and maps to this sentinel.
var ErrNotAuthorized = errors.New("oracle: caller not authorized")

// Snapshot holds the last externally reported market observation. Pushes
// overwrite it wholesale; the adapter keeps no history.
type Snapshot struct {
	TotalVolume      *big.Int
	TotalStaked      *big.Int
	TotalPartnerMint *big.Int
	Timestamp        time.Time
}

// Clone returns a deep copy so callers cannot mutate adapter state.
func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{Timestamp: s.Timestamp}
	clone.TotalVolume = copyOrZero(s.TotalVolume)
	clone.TotalStaked = copyOrZero(s.TotalStaked)
	clone.TotalPartnerMint = copyOrZero(s.TotalPartnerMint)
	return clone
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Adapter derives the current price from the last snapshot and classifies
// pushes against the configured anomaly thresholds.
type Adapter struct {
	snapshot      Snapshot
	targetPrice   *big.Int
	priceK        *big.Int
	volumeCeiling *big.Int
	maxSupply     *big.Int
}

// New constructs an adapter with a zeroed snapshot.
func New(targetPrice, priceK, volumeCeiling, maxSupply *big.Int) *Adapter {
	return &Adapter{
		snapshot: Snapshot{
			TotalVolume:      big.NewInt(0),
			TotalStaked:      big.NewInt(0),
			TotalPartnerMint: big.NewInt(0),
		},
		targetPrice:   copyOrZero(targetPrice),
		priceK:        copyOrZero(priceK),
		volumeCeiling: copyOrZero(volumeCeiling),
		maxSupply:     copyOrZero(maxSupply),
	}
}

// Snapshot returns a copy of the last accepted observation.
func (a *Adapter) Snapshot() Snapshot { return a.snapshot.Clone() }

// TargetPrice returns a copy of the configured target price.
func (a *Adapter) TargetPrice() *big.Int { return new(big.Int).Set(a.targetPrice) }

// SetTargetPrice updates the target price (governance-tuned).
func (a *Adapter) SetTargetPrice(p *big.Int) { a.targetPrice = copyOrZero(p) }

// PriceK returns a copy of the premium coefficient.
func (a *Adapter) PriceK() *big.Int { return new(big.Int).Set(a.priceK) }

// SetPriceK updates the premium coefficient (governance-tuned).
func (a *Adapter) SetPriceK(k *big.Int) { a.priceK = copyOrZero(k) }

// SetVolumeCeiling updates the anomaly volume ceiling (governance-tuned).
func (a *Adapter) SetVolumeCeiling(c *big.Int) { a.volumeCeiling = copyOrZero(c) }

// CurrentPrice derives the price from the last snapshot:
// targetPrice + k * totalVolume / effectiveSupply. A zero effective supply
// yields the target price.
func (a *Adapter) CurrentPrice(effectiveSupply *big.Int) *big.Int {
	if effectiveSupply == nil || effectiveSupply.Sign() == 0 {
		return new(big.Int).Set(a.targetPrice)
	}
	premium := new(big.Int).Mul(a.priceK, a.snapshot.TotalVolume)
	premium.Quo(premium, effectiveSupply)
	return premium.Add(premium, a.targetPrice)
}

// Update overwrites the snapshot and reports whether the push is anomalous:
// volume above the absolute ceiling, or partner mint above half of max supply.
func (a *Adapter) Update(volume, staked, partnerMint *big.Int, now time.Time) bool {
	a.snapshot = Snapshot{
		TotalVolume:      copyOrZero(volume),
		TotalStaked:      copyOrZero(staked),
		TotalPartnerMint: copyOrZero(partnerMint),
		Timestamp:        now,
	}
	if a.volumeCeiling.Sign() > 0 && a.snapshot.TotalVolume.Cmp(a.volumeCeiling) > 0 {
		return true
	}
	halfSupply := new(big.Int).Rsh(a.maxSupply, 1)
	if halfSupply.Sign() > 0 && a.snapshot.TotalPartnerMint.Cmp(halfSupply) > 0 {
		return true
	}
	return false
}
