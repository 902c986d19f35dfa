package staking

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Johny-1992/TGST/core/events"
	"github.com/Johny-1992/TGST/crypto"
	"github.com/Johny-1992/TGST/native/fees"
	"github.com/Johny-1992/TGST/native/ledger"
	"github.com/Johny-1992/TGST/native/oracle"
)

var (
	// ErrInvalidAmount indicates a zero or negative stake amount.
	ErrInvalidAmount = errors.New("staking: amount must be positive")
	// ErrDurationOutOfRange indicates the lock duration is outside the bounds.
	ErrDurationOutOfRange = errors.New("staking: duration out of range")
	// ErrAlreadyStaked indicates the account already holds an active stake.
	ErrAlreadyStaked = errors.New("staking: active stake exists")
	// ErrNoActiveStake indicates the account has nothing staked.
	ErrNoActiveStake = errors.New("staking: no active stake")
	// ErrStakeLocked indicates the stake has not reached its unlock time.
	ErrStakeLocked = errors.New("staking: stake still locked")
)

// Stake is an account's single active escrow position.
type Stake struct {
	Amount     *big.Int
	StartTime  int64
	UnlockTime int64
}

// Clone returns a deep copy of the stake record.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Amount != nil {
		clone.Amount = new(big.Int).Set(s.Amount)
	}
	return &clone
}

// Escrow is the slice of ledger functionality the staking engine needs.
type Escrow interface {
	Custodial() crypto.Address
	Move(from, to crypto.Address, amount *big.Int) error
	PoolBalance(pool ledger.Pool) *big.Int
	PayFromPool(pool ledger.Pool, to crypto.Address, amount *big.Int) error
	EffectiveSupply() *big.Int
}

// Market exposes the oracle snapshot feeding the reward formula.
type Market interface {
	Snapshot() oracle.Snapshot
}

// Engine escrows balances for a lock period and pays rewards from the reward
// pool. Rewards are silently capped to the pool's actual balance; the pool is
// debited by the paid amount, never the computed one.
type Engine struct {
	escrow       Escrow
	market       Market
	stakes       map[crypto.Address]*Stake
	minDuration  time.Duration
	maxDuration  time.Duration
	maxRewardBps uint64
	totalStaked  *big.Int
	emitter      events.Emitter
	now          func() time.Time
}

// NewEngine constructs a staking engine bound to the ledger escrow.
func NewEngine(escrow Escrow, market Market, minDuration, maxDuration time.Duration, maxRewardBps uint64) *Engine {
	return &Engine{
		escrow:       escrow,
		market:       market,
		stakes:       make(map[crypto.Address]*Stake),
		minDuration:  minDuration,
		maxDuration:  maxDuration,
		maxRewardBps: maxRewardBps,
		totalStaked:  big.NewInt(0),
		emitter:      events.NoopEmitter{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetClock overrides the engine clock, primarily for deterministic testing.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// SetDurationBounds updates the allowed lock window (governance-tuned).
func (e *Engine) SetDurationBounds(min, max time.Duration) {
	e.minDuration = min
	e.maxDuration = max
}

// SetMaxRewardBps updates the reward ceiling (governance-tuned).
func (e *Engine) SetMaxRewardBps(bps uint64) { e.maxRewardBps = bps }

// Rebind swaps the escrow ledger and market source, used after a checkpoint
// restore.
func (e *Engine) Rebind(escrow Escrow, market Market) {
	e.escrow = escrow
	e.market = market
}

// MaxRewardBps returns the configured reward ceiling.
func (e *Engine) MaxRewardBps() uint64 { return e.maxRewardBps }

// StakeOf returns a copy of the owner's active stake, if any.
func (e *Engine) StakeOf(owner crypto.Address) (*Stake, bool) {
	stake, ok := e.stakes[owner]
	if !ok {
		return nil, false
	}
	return stake.Clone(), true
}

// TotalStaked returns the sum of all escrowed principals.
func (e *Engine) TotalStaked() *big.Int { return new(big.Int).Set(e.totalStaked) }

// Stake escrows the amount into the custodial balance and records
// {amount, now, now+duration}. At most one active stake per account.
func (e *Engine) Stake(owner crypto.Address, amount *big.Int, duration time.Duration) (*Stake, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if duration < e.minDuration || duration > e.maxDuration {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrDurationOutOfRange, duration, e.minDuration, e.maxDuration)
	}
	if _, exists := e.stakes[owner]; exists {
		return nil, ErrAlreadyStaked
	}
	if err := e.escrow.Move(owner, e.escrow.Custodial(), amount); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	stake := &Stake{
		Amount:     new(big.Int).Set(amount),
		StartTime:  now.Unix(),
		UnlockTime: now.Add(duration).Unix(),
	}
	e.stakes[owner] = stake
	e.totalStaked.Add(e.totalStaked, amount)
	e.emitter.Emit(events.StakeCreated{
		Owner:      owner,
		Amount:     new(big.Int).Set(amount),
		StartTime:  stake.StartTime,
		UnlockTime: stake.UnlockTime,
	})
	return stake.Clone(), nil
}

// RewardFor computes the uncapped reward for a principal under the current
// oracle snapshot: min(maxRewardBps, maxRewardBps*totalVolume/effectiveSupply)
// applied to the principal. A zero effective supply yields zero reward.
func (e *Engine) RewardFor(principal *big.Int) *big.Int {
	effective := e.escrow.EffectiveSupply()
	if principal == nil || principal.Sign() <= 0 || effective.Sign() <= 0 {
		return big.NewInt(0)
	}
	maxBps := new(big.Int).SetUint64(e.maxRewardBps)
	bps := new(big.Int).Mul(maxBps, e.market.Snapshot().TotalVolume)
	bps.Quo(bps, effective)
	if bps.Cmp(maxBps) > 0 {
		bps = maxBps
	}
	reward := new(big.Int).Mul(principal, bps)
	return reward.Quo(reward, big.NewInt(fees.BpsDenominator))
}

// Withdraw releases a matured stake: principal returns from escrow, the
// reward pays from the reward pool capped to what the pool actually holds,
// and the stake record clears. Both the unstake and claim-rewards entry
// points resolve here.
func (e *Engine) Withdraw(owner crypto.Address) (principal, reward *big.Int, err error) {
	stake, ok := e.stakes[owner]
	if !ok {
		return nil, nil, ErrNoActiveStake
	}
	now := e.now().UTC().Unix()
	if now < stake.UnlockTime {
		return nil, nil, fmt.Errorf("%w: unlocks at %d, now %d", ErrStakeLocked, stake.UnlockTime, now)
	}

	computed := e.RewardFor(stake.Amount)
	paid := new(big.Int).Set(computed)
	pool := e.escrow.PoolBalance(ledger.PoolReward)
	capped := false
	if paid.Cmp(pool) > 0 {
		paid.Set(pool)
		capped = true
	}

	if err := e.escrow.Move(e.escrow.Custodial(), owner, stake.Amount); err != nil {
		return nil, nil, err
	}
	if paid.Sign() > 0 {
		if err := e.escrow.PayFromPool(ledger.PoolReward, owner, paid); err != nil {
			// Roll the principal back; the withdrawal must be all-or-nothing.
			if rbErr := e.escrow.Move(owner, e.escrow.Custodial(), stake.Amount); rbErr != nil {
				return nil, nil, fmt.Errorf("staking: reward payout failed (%v) and rollback failed: %w", err, rbErr)
			}
			return nil, nil, err
		}
		e.emitter.Emit(events.PoolDebited{
			Pool:    string(ledger.PoolReward),
			Amount:  new(big.Int).Set(paid),
			Balance: e.escrow.PoolBalance(ledger.PoolReward),
			To:      owner,
		})
	}

	principal = new(big.Int).Set(stake.Amount)
	e.totalStaked.Sub(e.totalStaked, stake.Amount)
	delete(e.stakes, owner)
	e.emitter.Emit(events.StakeWithdrawn{
		Owner:     owner,
		Principal: new(big.Int).Set(principal),
		Reward:    new(big.Int).Set(paid),
		Capped:    capped,
	})
	return principal, paid, nil
}
