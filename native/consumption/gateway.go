package consumption

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Johny-1992/TGST/core/events"
	"github.com/Johny-1992/TGST/crypto"
	"github.com/Johny-1992/TGST/native/fees"
	"github.com/Johny-1992/TGST/native/ledger"
)

// DayFormat is the UTC bucket used for daily mint caps.
const DayFormat = "2006-01-02"

var (
	// ErrExpiredVoucher indicates the voucher expiry has elapsed.
	ErrExpiredVoucher = errors.New("consumption: voucher expired")
	// ErrReplayRejected indicates the voucher nonce does not match the stored value.
	ErrReplayRejected = errors.New("consumption: nonce mismatch")
	// ErrBadSignature indicates the recovered signer is not the partner's key.
	ErrBadSignature = errors.New("consumption: bad signature")
	// ErrVerifierRejected indicates the partner's policy hook denied the mint.
	ErrVerifierRejected = errors.New("consumption: verifier rejected")
	// ErrSupplyExceeded indicates the mint would push supply past the cap.
	ErrSupplyExceeded = errors.New("consumption: max supply exceeded")
	// ErrPartnerCapExceeded indicates the partner's daily mint cap is spent.
	ErrPartnerCapExceeded = errors.New("consumption: partner daily cap exceeded")
	// ErrUserCapExceeded indicates the user's daily mint cap is spent.
	ErrUserCapExceeded = errors.New("consumption: user daily cap exceeded")
	// ErrUnknownPartner indicates no partner is registered under the name.
	ErrUnknownPartner = errors.New("consumption: unknown partner")
	// ErrPartnerInactive indicates the partner has been toggled off.
	ErrPartnerInactive = errors.New("consumption: partner inactive")
	// ErrPartnerExists indicates a duplicate partner registration.
	ErrPartnerExists = errors.New("consumption: partner already registered")
	// ErrInvalidAmount indicates a zero or negative voucher amount.
	ErrInvalidAmount = errors.New("consumption: amount must be positive")
	// ErrInvalidPrice indicates the oracle price is unusable for conversion.
	ErrInvalidPrice = errors.New("consumption: non-positive price")
)

// Partner captures an onboarded consumption partner. Records are toggled
// active/inactive, never deleted.
type Partner struct {
	Name         string
	Signer       crypto.Address
	Active       bool
	CashbackBps  uint32
	RewardBps    uint32
	DailyMintCap *big.Int
	MintedToday  *big.Int
	LastMintDay  string
	TotalMinted  *big.Int
}

// Clone returns a deep copy so callers cannot mutate gateway state.
func (p *Partner) Clone() *Partner {
	if p == nil {
		return nil
	}
	clone := *p
	clone.DailyMintCap = copyOrZero(p.DailyMintCap)
	clone.MintedToday = copyOrZero(p.MintedToday)
	clone.TotalMinted = copyOrZero(p.TotalMinted)
	return &clone
}

func copyOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Minter is the slice of ledger functionality the gateway needs.
type Minter interface {
	TotalSupply() *big.Int
	MaxSupply() *big.Int
	EffectiveSupply() *big.Int
	MintToPool(pool ledger.Pool, amount *big.Int) error
	PoolBalance(pool ledger.Pool) *big.Int
	PayFromPool(pool ledger.Pool, to crypto.Address, amount *big.Int) error
}

// Pricer derives the current price for stable-to-TGST conversion.
type Pricer interface {
	CurrentPrice(effectiveSupply *big.Int) *big.Int
}

// Verifier is an optional secondary authorization hook supplied by a partner
// integration; a non-nil error denies the mint.
type Verifier interface {
	VerifyConsumption(user crypto.Address, amount *big.Int, partner string) error
}

type userMeter struct {
	day    string
	minted *big.Int
}

// Gateway verifies partner-signed vouchers and mints supply into the
// stabilizer pool under per-partner, per-user, and global caps.
type Gateway struct {
	domain       Domain
	minter       Minter
	pricer       Pricer
	verifiers    map[string]Verifier
	partners     map[string]*Partner
	nonces       map[crypto.Address]uint64
	userMeters   map[crypto.Address]*userMeter
	userDailyCap *big.Int
	emitter      events.Emitter
	now          func() time.Time
}

// NewGateway constructs a gateway bound to the ledger and price source.
// userDailyCap of zero disables the per-user daily cap.
func NewGateway(domain Domain, minter Minter, pricer Pricer, userDailyCap *big.Int) *Gateway {
	return &Gateway{
		domain:       domain,
		minter:       minter,
		pricer:       pricer,
		verifiers:    make(map[string]Verifier),
		partners:     make(map[string]*Partner),
		nonces:       make(map[crypto.Address]uint64),
		userMeters:   make(map[crypto.Address]*userMeter),
		userDailyCap: copyOrZero(userDailyCap),
		emitter:      events.NoopEmitter{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (g *Gateway) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		g.emitter = events.NoopEmitter{}
		return
	}
	g.emitter = emitter
}

// SetClock overrides the gateway clock, primarily for deterministic testing.
func (g *Gateway) SetClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// SetUserDailyCap updates the per-user daily mint cap (governance-tuned).
func (g *Gateway) SetUserDailyCap(cap *big.Int) { g.userDailyCap = copyOrZero(cap) }

// Rebind swaps the ledger and price source, used after a checkpoint restore.
func (g *Gateway) Rebind(minter Minter, pricer Pricer) {
	g.minter = minter
	g.pricer = pricer
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddPartner registers a new partner record. Authorization is enforced by
// the coordinating engine.
func (g *Gateway) AddPartner(name string, signer crypto.Address, cashbackBps, rewardBps uint32, dailyMintCap *big.Int) (*Partner, error) {
	key := normalizeName(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownPartner)
	}
	if signer.IsZero() {
		return nil, fmt.Errorf("consumption: partner signer required")
	}
	if cashbackBps > fees.BpsDenominator || rewardBps > fees.BpsDenominator {
		return nil, fmt.Errorf("consumption: partner rates must not exceed %d bps", fees.BpsDenominator)
	}
	if _, exists := g.partners[key]; exists {
		return nil, fmt.Errorf("%w: %q", ErrPartnerExists, key)
	}
	partner := &Partner{
		Name:         key,
		Signer:       signer,
		Active:       true,
		CashbackBps:  cashbackBps,
		RewardBps:    rewardBps,
		DailyMintCap: copyOrZero(dailyMintCap),
		MintedToday:  big.NewInt(0),
		TotalMinted:  big.NewInt(0),
	}
	g.partners[key] = partner
	g.emitter.Emit(events.PartnerAdded{Name: key, Signer: signer})
	return partner.Clone(), nil
}

// TogglePartner flips the partner's active flag and returns the new state.
func (g *Gateway) TogglePartner(name string) (bool, error) {
	partner, ok := g.partners[normalizeName(name)]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownPartner, name)
	}
	partner.Active = !partner.Active
	g.emitter.Emit(events.PartnerToggled{Name: partner.Name, Active: partner.Active})
	return partner.Active, nil
}

// SetVerifier installs (or removes, when nil) the policy hook for a partner.
func (g *Gateway) SetVerifier(name string, v Verifier) error {
	key := normalizeName(name)
	if _, ok := g.partners[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPartner, name)
	}
	if v == nil {
		delete(g.verifiers, key)
		return nil
	}
	g.verifiers[key] = v
	return nil
}

// Partner returns a copy of the named partner record. The daily meter in
// the copy is rolled over: on a new UTC day it reads zero even before the
// day's first mint lands.
func (g *Gateway) Partner(name string) (*Partner, bool) {
	partner, ok := g.partners[normalizeName(name)]
	if !ok {
		return nil, false
	}
	clone := partner.Clone()
	if clone.LastMintDay != g.now().UTC().Format(DayFormat) {
		clone.MintedToday = big.NewInt(0)
	}
	return clone, true
}

// Nonce returns the next expected voucher nonce for the user.
func (g *Gateway) Nonce(user crypto.Address) uint64 { return g.nonces[user] }

// UserMintedToday returns the user's consumed daily mint allowance.
func (g *Gateway) UserMintedToday(user crypto.Address, day string) *big.Int {
	meter, ok := g.userMeters[user]
	if !ok || meter.day != day {
		return big.NewInt(0)
	}
	return new(big.Int).Set(meter.minted)
}

// MintOnConsumption settles a partner-signed voucher: it validates expiry,
// nonce, signature, and caps, then mints amount*1e18/currentPrice into the
// stabilizer pool and pays partner cashback from the cashback pool when it
// can be funded. All checks complete before any state mutates.
func (g *Gateway) MintOnConsumption(v *Voucher, signature []byte) (*big.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("consumption: nil voucher")
	}
	if v.Amount == nil || v.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	now := g.now().UTC()
	if now.Unix() > v.Expiry {
		return nil, fmt.Errorf("%w: expired at %d, now %d", ErrExpiredVoucher, v.Expiry, now.Unix())
	}
	if stored := g.nonces[v.User]; v.Nonce != stored {
		return nil, fmt.Errorf("%w: voucher nonce %d, expected %d", ErrReplayRejected, v.Nonce, stored)
	}
	partner, ok := g.partners[normalizeName(v.Partner)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPartner, v.Partner)
	}
	if !partner.Active {
		return nil, fmt.Errorf("%w: %q", ErrPartnerInactive, partner.Name)
	}
	signer, err := crypto.RecoverAddress(v.Digest(g.domain), signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if signer != partner.Signer {
		return nil, fmt.Errorf("%w: recovered %s", ErrBadSignature, signer)
	}
	if verifier, ok := g.verifiers[partner.Name]; ok {
		if err := verifier.VerifyConsumption(v.User, new(big.Int).Set(v.Amount), partner.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVerifierRejected, err)
		}
	}

	price := g.pricer.CurrentPrice(g.minter.EffectiveSupply())
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	mintAmount := new(big.Int).Mul(v.Amount, fees.Unit)
	mintAmount.Quo(mintAmount, price)
	if mintAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	next := new(big.Int).Add(g.minter.TotalSupply(), mintAmount)
	if next.Cmp(g.minter.MaxSupply()) > 0 {
		return nil, fmt.Errorf("%w: supply %s + %s > cap %s",
			ErrSupplyExceeded, g.minter.TotalSupply(), mintAmount, g.minter.MaxSupply())
	}

	day := now.Format(DayFormat)
	partnerMinted := partner.MintedToday
	if partner.LastMintDay != day {
		partnerMinted = big.NewInt(0)
	}
	if partner.DailyMintCap.Sign() > 0 {
		spent := new(big.Int).Add(partnerMinted, mintAmount)
		if spent.Cmp(partner.DailyMintCap) > 0 {
			return nil, fmt.Errorf("%w: %s of %s spent", ErrPartnerCapExceeded, partnerMinted, partner.DailyMintCap)
		}
	}
	userMinted := g.UserMintedToday(v.User, day)
	if g.userDailyCap.Sign() > 0 {
		spent := new(big.Int).Add(userMinted, mintAmount)
		if spent.Cmp(g.userDailyCap) > 0 {
			return nil, fmt.Errorf("%w: %s of %s spent", ErrUserCapExceeded, userMinted, g.userDailyCap)
		}
	}

	// All checks passed; apply effects.
	if err := g.minter.MintToPool(ledger.PoolStabilizer, mintAmount); err != nil {
		return nil, err
	}
	g.nonces[v.User] = v.Nonce + 1
	partner.LastMintDay = day
	partner.MintedToday = new(big.Int).Add(partnerMinted, mintAmount)
	partner.TotalMinted.Add(partner.TotalMinted, mintAmount)
	g.userMeters[v.User] = &userMeter{day: day, minted: new(big.Int).Add(userMinted, mintAmount)}

	g.emitter.Emit(events.ConsumptionMinted{
		Partner:    partner.Name,
		User:       v.User,
		Amount:     new(big.Int).Set(v.Amount),
		MintAmount: new(big.Int).Set(mintAmount),
		Nonce:      v.Nonce,
		Day:        day,
	})

	g.payCashback(partner, v.User, mintAmount)
	return mintAmount, nil
}

// payCashback credits amount*cashbackBps/10000 from the cashback pool when
// the pool can fund it; an underfunded pool skips silently, mirroring the
// staking reward capping policy.
func (g *Gateway) payCashback(partner *Partner, user crypto.Address, mintAmount *big.Int) {
	if partner.CashbackBps == 0 {
		return
	}
	cashback := new(big.Int).Mul(mintAmount, new(big.Int).SetUint64(uint64(partner.CashbackBps)))
	cashback.Quo(cashback, big.NewInt(fees.BpsDenominator))
	if cashback.Sign() <= 0 {
		return
	}
	if g.minter.PoolBalance(ledger.PoolCashback).Cmp(cashback) < 0 {
		return
	}
	if err := g.minter.PayFromPool(ledger.PoolCashback, user, cashback); err != nil {
		return
	}
	g.emitter.Emit(events.PoolDebited{
		Pool:    string(ledger.PoolCashback),
		Amount:  new(big.Int).Set(cashback),
		Balance: g.minter.PoolBalance(ledger.PoolCashback),
		To:      user,
	})
	g.emitter.Emit(events.CashbackPaid{Partner: partner.Name, User: user, Amount: cashback})
}
