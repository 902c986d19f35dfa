package fees

import (
	"errors"
	"fmt"
	"math/big"
)

// BpsDenominator converts basis points into a ratio.
const BpsDenominator = 10_000

// Unit is the 1e18 fixed-point scale shared by prices and amounts.
var Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ErrZeroEffectiveSupply indicates the burn/mint quote cannot be computed
// because the effective supply is zero.
var ErrZeroEffectiveSupply = errors.New("fees: zero effective supply")

// ErrBurnRateSaturated indicates the price-scaled burn rate reached 100%.
// Such transfers are rejected: settling them would consume the full amount
// (or more) in fees and deliver nothing.
var ErrBurnRateSaturated = errors.New("fees: burn rate saturated")

// Quote is the burn/mint outcome computed for a transfer amount. All
// divisions truncate toward zero; the truncation is part of the contract.
type Quote struct {
	BurnBps    *big.Int
	MintBps    *big.Int
	BurnAmount *big.Int
	MintAmount *big.Int
}

// Engine computes dynamic burn/mint amounts for ordinary transfers from the
// current price and the oracle activity snapshot.
type Engine struct {
	baseBurnBps *big.Int
	baseMintBps *big.Int
}

// New constructs a fee engine with the configured base rates in basis points.
func New(baseBurnBps, baseMintBps uint64) *Engine {
	return &Engine{
		baseBurnBps: new(big.Int).SetUint64(baseBurnBps),
		baseMintBps: new(big.Int).SetUint64(baseMintBps),
	}
}

// SetBaseBurnBps updates the base burn rate (governance-tuned).
func (e *Engine) SetBaseBurnBps(bps uint64) { e.baseBurnBps = new(big.Int).SetUint64(bps) }

// SetBaseMintBps updates the base mint rate (governance-tuned).
func (e *Engine) SetBaseMintBps(bps uint64) { e.baseMintBps = new(big.Int).SetUint64(bps) }

// BaseBurnBps returns the configured base burn rate.
func (e *Engine) BaseBurnBps() uint64 { return e.baseBurnBps.Uint64() }

// BaseMintBps returns the configured base mint rate.
func (e *Engine) BaseMintBps() uint64 { return e.baseMintBps.Uint64() }

// Quote computes the burn and mint amounts for the transfer:
//
//	burnBps = baseBurnBps * currentPrice / targetPrice
//	mintBps = baseMintBps * (totalVolume * 1e18 / effectiveSupply) / 1e18
//	burn    = amount * burnBps / 10000
//	mint    = amount * mintBps / 10000
//
// A burnBps at or above 10000 fails with ErrBurnRateSaturated.
func (e *Engine) Quote(amount, currentPrice, targetPrice, totalVolume, effectiveSupply *big.Int) (Quote, error) {
	if effectiveSupply == nil || effectiveSupply.Sign() == 0 {
		return Quote{}, ErrZeroEffectiveSupply
	}
	burnBps := new(big.Int).Mul(e.baseBurnBps, currentPrice)
	burnBps.Quo(burnBps, targetPrice)
	if burnBps.Cmp(big.NewInt(BpsDenominator)) >= 0 {
		return Quote{}, fmt.Errorf("%w: %s bps", ErrBurnRateSaturated, burnBps)
	}

	activityRatio := new(big.Int).Mul(totalVolume, Unit)
	activityRatio.Quo(activityRatio, effectiveSupply)
	mintBps := new(big.Int).Mul(e.baseMintBps, activityRatio)
	mintBps.Quo(mintBps, Unit)

	burnAmount := new(big.Int).Mul(amount, burnBps)
	burnAmount.Quo(burnAmount, big.NewInt(BpsDenominator))
	mintAmount := new(big.Int).Mul(amount, mintBps)
	mintAmount.Quo(mintAmount, big.NewInt(BpsDenominator))

	return Quote{
		BurnBps:    burnBps,
		MintBps:    mintBps,
		BurnAmount: burnAmount,
		MintAmount: mintAmount,
	}, nil
}
