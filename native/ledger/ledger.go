package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

var (
	// ErrInvalidAmount indicates a zero or negative amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrInsufficientBalance indicates the debited account cannot cover the amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrBlacklisted indicates a blacklisted party on the transfer path.
	ErrBlacklisted = errors.New("ledger: account blacklisted")
	// ErrSupplyCap indicates a mint would push total supply past the cap.
	ErrSupplyCap = errors.New("ledger: max supply exceeded")
	// ErrInsufficientPool indicates a pool cannot cover the requested debit.
	ErrInsufficientPool = errors.New("ledger: insufficient pool balance")
	// ErrPoolReconciliation indicates pool counters would exceed the custodial balance.
	ErrPoolReconciliation = errors.New("ledger: pool counters exceed custodial balance")
	// ErrUnknownPool indicates an unrecognised pool name.
	ErrUnknownPool = errors.New("ledger: unknown pool")
	// ErrInvariantViolated indicates the conservation check failed.
	ErrInvariantViolated = errors.New("ledger: supply conservation violated")
)

// Pool identifies a named sub-balance reserved inside the custodial account.
type Pool string

const (
	PoolReward     Pool = "reward"
	PoolCashback   Pool = "cashback"
	PoolStabilizer Pool = "stabilizer"
	PoolLiquidity  Pool = "liquidity"
)

// Pools enumerates the known pools in canonical order.
var Pools = []Pool{PoolReward, PoolCashback, PoolStabilizer, PoolLiquidity}

// ParsePool normalises a pool name.
func ParsePool(name string) (Pool, error) {
	switch Pool(name) {
	case PoolReward, PoolCashback, PoolStabilizer, PoolLiquidity:
		return Pool(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPool, name)
}

// Ledger holds all account balances, the supply counters, the blacklist, and
// the pool counters reserved within the custodial account balance. It is not
// safe for concurrent use; the coordinating engine serialises access.
type Ledger struct {
	balances    map[crypto.Address]*big.Int
	totalSupply *big.Int
	maxSupply   *big.Int
	custodial   crypto.Address
	blacklist   map[crypto.Address]bool
	pools       map[Pool]*big.Int
}

// New constructs an empty ledger with the given custodial address and supply cap.
func New(custodial crypto.Address, maxSupply *big.Int) *Ledger {
	cap := big.NewInt(0)
	if maxSupply != nil {
		cap = new(big.Int).Set(maxSupply)
	}
	pools := make(map[Pool]*big.Int, len(Pools))
	for _, p := range Pools {
		pools[p] = big.NewInt(0)
	}
	return &Ledger{
		balances:    make(map[crypto.Address]*big.Int),
		totalSupply: big.NewInt(0),
		maxSupply:   cap,
		custodial:   custodial,
		blacklist:   make(map[crypto.Address]bool),
		pools:       pools,
	}
}

// Custodial returns the contract-owned escrow address.
func (l *Ledger) Custodial() crypto.Address { return l.custodial }

// BalanceOf returns a copy of the account balance.
func (l *Ledger) BalanceOf(addr crypto.Address) *big.Int {
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// TotalSupply returns a copy of the current total supply.
func (l *Ledger) TotalSupply() *big.Int { return new(big.Int).Set(l.totalSupply) }

// MaxSupply returns a copy of the configured supply ceiling.
func (l *Ledger) MaxSupply() *big.Int { return new(big.Int).Set(l.maxSupply) }

// EffectiveSupply returns total supply minus the stabilizer pool; it is the
// denominator for price and activity calculations.
func (l *Ledger) EffectiveSupply() *big.Int {
	return new(big.Int).Sub(l.totalSupply, l.pools[PoolStabilizer])
}

// SetBlacklisted flips the blacklist flag for an address.
func (l *Ledger) SetBlacklisted(addr crypto.Address, blocked bool) {
	if blocked {
		l.blacklist[addr] = true
		return
	}
	delete(l.blacklist, addr)
}

// IsBlacklisted reports whether transfers involving the address are blocked.
func (l *Ledger) IsBlacklisted(addr crypto.Address) bool { return l.blacklist[addr] }

func (l *Ledger) credit(addr crypto.Address, amount *big.Int) {
	bal, ok := l.balances[addr]
	if !ok {
		bal = big.NewInt(0)
		l.balances[addr] = bal
	}
	bal.Add(bal, amount)
}

func (l *Ledger) debit(addr crypto.Address, amount *big.Int) error {
	bal, ok := l.balances[addr]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: account %s holds %s, needs %s",
			ErrInsufficientBalance, addr, l.BalanceOf(addr), amount)
	}
	bal.Sub(bal, amount)
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Move transfers the full amount between accounts without touching supply or
// fees. It is the primitive for custodial escrow and payout moves.
func (l *Ledger) Move(from, to crypto.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// Burn removes the amount from the account balance and from total supply.
func (l *Ledger) Burn(from crypto.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.totalSupply.Sub(l.totalSupply, amount)
	return nil
}

// Mint creates new supply in the target account, guarded by the supply cap.
func (l *Ledger) Mint(to crypto.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	next := new(big.Int).Add(l.totalSupply, amount)
	if next.Cmp(l.maxSupply) > 0 {
		return fmt.Errorf("%w: supply %s + mint %s > cap %s",
			ErrSupplyCap, l.totalSupply, amount, l.maxSupply)
	}
	l.credit(to, amount)
	l.totalSupply.Set(next)
	return nil
}

// MintToPool mints new supply into the custodial account and reserves it in
// the named pool in the same step.
func (l *Ledger) MintToPool(pool Pool, amount *big.Int) error {
	if _, ok := l.pools[pool]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPool, pool)
	}
	if err := l.Mint(l.custodial, amount); err != nil {
		return err
	}
	l.pools[pool].Add(l.pools[pool], amount)
	return nil
}

// PoolBalance returns a copy of the named pool counter.
func (l *Ledger) PoolBalance(pool Pool) *big.Int {
	if bal, ok := l.pools[pool]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

// PoolsTotal returns the sum of all pool counters.
func (l *Ledger) PoolsTotal() *big.Int {
	total := big.NewInt(0)
	for _, p := range Pools {
		total.Add(total, l.pools[p])
	}
	return total
}

// FundPool moves the amount from the funder into the custodial account and
// reserves it in the named pool. The reconciliation rule (pool counters never
// exceed the custodial balance) holds by construction here, but is re-checked.
func (l *Ledger) FundPool(pool Pool, funder crypto.Address, amount *big.Int) error {
	if _, ok := l.pools[pool]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPool, pool)
	}
	if err := l.Move(funder, l.custodial, amount); err != nil {
		return err
	}
	reserved := new(big.Int).Add(l.PoolsTotal(), amount)
	if reserved.Cmp(l.balances[l.custodial]) > 0 {
		// Undo the move rather than leave partial state behind.
		if err := l.Move(l.custodial, funder, amount); err != nil {
			return fmt.Errorf("%w: rollback failed: %v", ErrPoolReconciliation, err)
		}
		return ErrPoolReconciliation
	}
	l.pools[pool].Add(l.pools[pool], amount)
	return nil
}

// PayFromPool debits the named pool and moves the amount from the custodial
// account to the recipient.
func (l *Ledger) PayFromPool(pool Pool, to crypto.Address, amount *big.Int) error {
	bal, ok := l.pools[pool]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPool, pool)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: pool %q holds %s, needs %s", ErrInsufficientPool, pool, bal, amount)
	}
	if err := l.Move(l.custodial, to, amount); err != nil {
		return err
	}
	bal.Sub(bal, amount)
	return nil
}

// UnreservedCustodial returns the custodial balance net of pool counters and
// the supplied escrow total. It is the ceiling for stray-asset rescues.
func (l *Ledger) UnreservedCustodial(escrow *big.Int) *big.Int {
	free := new(big.Int).Set(l.BalanceOf(l.custodial))
	free.Sub(free, l.PoolsTotal())
	if escrow != nil {
		free.Sub(free, escrow)
	}
	if free.Sign() < 0 {
		return big.NewInt(0)
	}
	return free
}

// CheckInvariants verifies supply conservation and pool reconciliation:
// the sum of all account balances equals total supply, total supply stays
// within the cap, and pool counters never exceed the custodial balance.
func (l *Ledger) CheckInvariants() error {
	sum := big.NewInt(0)
	for _, bal := range l.balances {
		if bal.Sign() < 0 {
			return fmt.Errorf("%w: negative balance", ErrInvariantViolated)
		}
		sum.Add(sum, bal)
	}
	if sum.Cmp(l.totalSupply) != 0 {
		return fmt.Errorf("%w: balances sum %s != supply %s", ErrInvariantViolated, sum, l.totalSupply)
	}
	if l.totalSupply.Sign() < 0 || l.totalSupply.Cmp(l.maxSupply) > 0 {
		return fmt.Errorf("%w: supply %s outside [0, %s]", ErrInvariantViolated, l.totalSupply, l.maxSupply)
	}
	if l.PoolsTotal().Cmp(l.BalanceOf(l.custodial)) > 0 {
		return fmt.Errorf("%w: pools %s > custodial %s", ErrPoolReconciliation, l.PoolsTotal(), l.BalanceOf(l.custodial))
	}
	return nil
}
