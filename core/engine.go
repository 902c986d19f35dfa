package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Johny-1992/TGST/core/events"
	"github.com/Johny-1992/TGST/crypto"
	"github.com/Johny-1992/TGST/native/consumption"
	"github.com/Johny-1992/TGST/native/fees"
	"github.com/Johny-1992/TGST/native/gov"
	"github.com/Johny-1992/TGST/native/ledger"
	"github.com/Johny-1992/TGST/native/oracle"
	"github.com/Johny-1992/TGST/native/staking"
	"github.com/Johny-1992/TGST/storage"
)

var (
	// ErrRescueExceedsUnreserved indicates a rescue beyond the free custodial balance.
	ErrRescueExceedsUnreserved = errors.New("core: rescue exceeds unreserved custodial balance")
	// ErrCustodialParty indicates the custodial address on a user transfer path.
	ErrCustodialParty = errors.New("core: custodial address cannot transact directly")
)

// Config assembles everything the engine needs at initialization. Privileged
// addresses are configuration, never compiled-in constants.
type Config struct {
	Name      string
	Version   string
	ChainID   uint64
	Contract  crypto.Address
	Custodial crypto.Address
	Admin     crypto.Address
	Governor  crypto.Address
	Oracle    crypto.Address

	MaxSupply     *big.Int
	InitialSupply *big.Int
	Treasury      crypto.Address

	Params gov.Params
}

// Validate checks the assembly configuration.
func (c Config) Validate() error {
	if c.Custodial.IsZero() {
		return fmt.Errorf("core: custodial address required")
	}
	if c.Admin.IsZero() {
		return fmt.Errorf("core: admin address required")
	}
	if c.MaxSupply == nil || c.MaxSupply.Sign() <= 0 {
		return fmt.Errorf("core: max supply must be positive")
	}
	if c.InitialSupply != nil && c.InitialSupply.Sign() > 0 {
		if c.Treasury.IsZero() {
			return fmt.Errorf("core: treasury required for initial supply")
		}
		if c.InitialSupply.Cmp(c.MaxSupply) > 0 {
			return fmt.Errorf("core: initial supply exceeds max supply")
		}
	}
	return c.Params.Validate()
}

// Engine is the coordinator owning the whole ledger state. Every mutating
// entry point runs inside one global critical section: pool balances and
// total supply are shared across accounts, so per-account locking cannot
// preserve serializability.
type Engine struct {
	mu sync.RWMutex

	cfg     Config
	params  gov.Params
	ledger  *ledger.Ledger
	oracle  *oracle.Adapter
	fees    *fees.Engine
	gateway *consumption.Gateway
	staking *staking.Engine
	gov     *gov.Engine

	emitter events.Emitter
	now     func() time.Time
	db      storage.Database
}

// Option customises engine assembly.
type Option func(*Engine)

// WithEmitter wires an event subscriber into every component.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithClock overrides the engine clock, primarily for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDatabase enables state checkpointing after every mutation.
func WithDatabase(db storage.Database) Option {
	return func(e *Engine) { e.db = db }
}

// NewEngine assembles the components, applies genesis supply, and restores a
// prior checkpoint when a database holds one.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	params := cfg.Params.Clone()
	e := &Engine{
		cfg:     cfg,
		params:  params,
		emitter: events.NoopEmitter{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}

	e.ledger = ledger.New(cfg.Custodial, cfg.MaxSupply)
	e.oracle = oracle.New(params.TargetPrice, params.PriceK, params.VolumeCeiling, cfg.MaxSupply)
	e.fees = fees.New(params.BaseBurnBps, params.BaseMintBps)
	domain := consumption.Domain{Name: cfg.Name, Version: cfg.Version, ChainID: cfg.ChainID, Contract: cfg.Contract}
	e.gateway = consumption.NewGateway(domain, e.ledger, e.oracle, params.UserDailyMintCap)
	e.staking = staking.NewEngine(e.ledger, e.oracle, params.MinStakeDuration, params.MaxStakeDuration, params.MaxRewardBps)
	e.gov = gov.NewEngine(cfg.Admin, params.AnomalyThreshold)

	e.gateway.SetEmitter(e.emitter)
	e.staking.SetEmitter(e.emitter)
	e.gov.SetEmitter(e.emitter)
	e.gateway.SetClock(e.now)
	e.staking.SetClock(e.now)

	if !cfg.Governor.IsZero() {
		if err := e.gov.GrantRole(cfg.Admin, gov.RoleGovernor, cfg.Governor); err != nil {
			return nil, err
		}
	}
	if !cfg.Oracle.IsZero() {
		if err := e.gov.GrantRole(cfg.Admin, gov.RoleOracle, cfg.Oracle); err != nil {
			return nil, err
		}
	}

	restored := false
	if e.db != nil {
		ok, err := e.restoreCheckpoint()
		if err != nil {
			return nil, err
		}
		restored = ok
	}
	if !restored && cfg.InitialSupply != nil && cfg.InitialSupply.Sign() > 0 {
		if err := e.ledger.Mint(cfg.Treasury, cfg.InitialSupply); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.SupplyChanged{
			Total:  e.ledger.TotalSupply(),
			Delta:  new(big.Int).Set(cfg.InitialSupply),
			Reason: events.SupplyReasonMint,
		})
	}
	return e, nil
}

// checkpoint persists the current state when a database is configured. A
// failed checkpoint is surfaced; the in-memory state remains authoritative.
func (e *Engine) checkpoint() error {
	if e.db == nil {
		return nil
	}
	return e.saveCheckpoint()
}

// --- Entry points (wire contract) ---

// Transfer runs the dynamic-fee transfer path: burn from the sender, move
// the remainder to the recipient, and mint the activity-driven amount into
// the stabilizer pool. Moves touching the custodial address are internal
// bookkeeping and never enter here.
func (e *Engine) Transfer(from, to crypto.Address, amount *big.Int) (*fees.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.GuardNotPaused(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if from == e.ledger.Custodial() || to == e.ledger.Custodial() {
		return nil, ErrCustodialParty
	}
	if e.ledger.IsBlacklisted(from) || e.ledger.IsBlacklisted(to) {
		return nil, ledger.ErrBlacklisted
	}
	if e.ledger.BalanceOf(from).Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: account %s", ledger.ErrInsufficientBalance, from)
	}

	effective := e.ledger.EffectiveSupply()
	price := e.oracle.CurrentPrice(effective)
	snapshot := e.oracle.Snapshot()
	quote, err := e.fees.Quote(amount, price, e.oracle.TargetPrice(), snapshot.TotalVolume, effective)
	if err != nil {
		return nil, err
	}
	if quote.MintAmount.Sign() > 0 {
		headroom := new(big.Int).Sub(e.ledger.MaxSupply(), e.ledger.TotalSupply())
		if quote.MintAmount.Cmp(headroom) > 0 {
			return nil, fmt.Errorf("%w: transfer mint %s exceeds headroom %s",
				ledger.ErrSupplyCap, quote.MintAmount, headroom)
		}
	}

	if quote.BurnAmount.Sign() > 0 {
		if err := e.ledger.Burn(from, quote.BurnAmount); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.SupplyChanged{
			Total:  e.ledger.TotalSupply(),
			Delta:  new(big.Int).Neg(quote.BurnAmount),
			Reason: events.SupplyReasonBurn,
		})
	}
	net := new(big.Int).Sub(amount, quote.BurnAmount)
	if net.Sign() > 0 {
		if err := e.ledger.Move(from, to, net); err != nil {
			return nil, err
		}
	}
	if quote.MintAmount.Sign() > 0 {
		if err := e.ledger.MintToPool(ledger.PoolStabilizer, quote.MintAmount); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.SupplyChanged{
			Total:  e.ledger.TotalSupply(),
			Delta:  new(big.Int).Set(quote.MintAmount),
			Reason: events.SupplyReasonMint,
		})
	}

	e.emitter.Emit(events.TransferApplied{
		From:   from,
		To:     to,
		Amount: new(big.Int).Set(amount),
		Burned: new(big.Int).Set(quote.BurnAmount),
		Minted: new(big.Int).Set(quote.MintAmount),
	})
	return &quote, e.checkpoint()
}

// MintOnConsumption settles a partner-signed consumption voucher.
func (e *Engine) MintOnConsumption(v *consumption.Voucher, signature []byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.GuardNotPaused(); err != nil {
		return nil, err
	}
	minted, err := e.gateway.MintOnConsumption(v, signature)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SupplyChanged{
		Total:  e.ledger.TotalSupply(),
		Delta:  new(big.Int).Set(minted),
		Reason: events.SupplyReasonMint,
	})
	return minted, e.checkpoint()
}

// Stake escrows the caller's balance for the lock duration.
func (e *Engine) Stake(owner crypto.Address, amount *big.Int, duration time.Duration) (*staking.Stake, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.GuardNotPaused(); err != nil {
		return nil, err
	}
	if e.ledger.IsBlacklisted(owner) {
		return nil, ledger.ErrBlacklisted
	}
	stake, err := e.staking.Stake(owner, amount, duration)
	if err != nil {
		return nil, err
	}
	return stake, e.checkpoint()
}

// Unstake releases a matured stake, paying principal plus a pool-capped reward.
func (e *Engine) Unstake(owner crypto.Address) (principal, reward *big.Int, err error) {
	return e.withdrawStake(owner)
}

// ClaimRewards resolves identically to Unstake: a matured position pays out
// in full and the record clears.
func (e *Engine) ClaimRewards(owner crypto.Address) (principal, reward *big.Int, err error) {
	return e.withdrawStake(owner)
}

func (e *Engine) withdrawStake(owner crypto.Address) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.GuardNotPaused(); err != nil {
		return nil, nil, err
	}
	principal, reward, err := e.staking.Withdraw(owner)
	if err != nil {
		return nil, nil, err
	}
	return principal, reward, e.checkpoint()
}

// FundPool moves governor funds into the custodial balance and reserves them
// in the named pool.
func (e *Engine) FundPool(caller crypto.Address, pool ledger.Pool, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.GuardNotPaused(); err != nil {
		return err
	}
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return err
	}
	if err := e.ledger.FundPool(pool, caller, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.PoolFunded{
		Pool:    string(pool),
		Amount:  new(big.Int).Set(amount),
		Balance: e.ledger.PoolBalance(pool),
		Funder:  caller,
	})
	return e.checkpoint()
}

// AddPartner registers a consumption partner; governor only.
func (e *Engine) AddPartner(caller crypto.Address, name string, signer crypto.Address, cashbackBps, rewardBps uint32, dailyMintCap *big.Int) (*consumption.Partner, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return nil, err
	}
	partner, err := e.gateway.AddPartner(name, signer, cashbackBps, rewardBps, dailyMintCap)
	if err != nil {
		return nil, err
	}
	return partner, e.checkpoint()
}

// TogglePartner flips a partner's active flag; governor only.
func (e *Engine) TogglePartner(caller crypto.Address, name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return false, err
	}
	active, err := e.gateway.TogglePartner(name)
	if err != nil {
		return false, err
	}
	return active, e.checkpoint()
}

// SetPartnerVerifier installs a partner policy hook; governor only. Hooks
// are process wiring and are not checkpointed.
func (e *Engine) SetPartnerVerifier(caller crypto.Address, name string, v consumption.Verifier) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return err
	}
	return e.gateway.SetVerifier(name, v)
}

// UpdateOracle overwrites the market snapshot; oracle role only. Anomalous
// pushes advance the circuit breaker, which may force a pause. Oracle pushes
// stay open while paused so the feed keeps observing the market.
func (e *Engine) UpdateOracle(caller crypto.Address, volume, staked, partnerMint *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleOracle, caller); err != nil {
		return err
	}
	anomalous := e.oracle.Update(volume, staked, partnerMint, e.now().UTC())
	e.gov.RecordOracleObservation(anomalous)
	snapshot := e.oracle.Snapshot()
	e.emitter.Emit(events.OracleUpdated{
		TotalVolume:      snapshot.TotalVolume,
		TotalStaked:      snapshot.TotalStaked,
		TotalPartnerMint: snapshot.TotalPartnerMint,
		Anomalous:        anomalous,
	})
	return e.checkpoint()
}

// Pause halts the economic entry points; governor only.
func (e *Engine) Pause(caller crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.Pause(caller); err != nil {
		return err
	}
	return e.checkpoint()
}

// Unpause lifts the pause and resets the anomaly counter; governor only.
func (e *Engine) Unpause(caller crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.Unpause(caller); err != nil {
		return err
	}
	return e.checkpoint()
}

// SetBlacklisted flips an address blacklist entry; governor only.
func (e *Engine) SetBlacklisted(caller, addr crypto.Address, blocked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return err
	}
	e.ledger.SetBlacklisted(addr, blocked)
	e.emitter.Emit(events.BlacklistUpdated{Account: addr, Blacklisted: blocked})
	return e.checkpoint()
}

// GrantRole delegates to governance; admin only.
func (e *Engine) GrantRole(caller crypto.Address, role string, addr crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.GrantRole(caller, role, addr); err != nil {
		return err
	}
	return e.checkpoint()
}

// RevokeRole delegates to governance; admin only.
func (e *Engine) RevokeRole(caller crypto.Address, role string, addr crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RevokeRole(caller, role, addr); err != nil {
		return err
	}
	return e.checkpoint()
}

// UpdateParams validates and applies a full parameter set; governor only.
func (e *Engine) UpdateParams(caller crypto.Address, params gov.Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	e.params = params.Clone()
	e.fees.SetBaseBurnBps(params.BaseBurnBps)
	e.fees.SetBaseMintBps(params.BaseMintBps)
	e.oracle.SetTargetPrice(params.TargetPrice)
	e.oracle.SetPriceK(params.PriceK)
	e.oracle.SetVolumeCeiling(params.VolumeCeiling)
	e.gateway.SetUserDailyCap(params.UserDailyMintCap)
	e.staking.SetDurationBounds(params.MinStakeDuration, params.MaxStakeDuration)
	e.staking.SetMaxRewardBps(params.MaxRewardBps)
	e.gov.SetAnomalyThreshold(params.AnomalyThreshold)
	e.emitter.Emit(events.ParamsUpdated{Name: "engine", Value: fmt.Sprintf("burn=%dbps mint=%dbps reward=%dbps", params.BaseBurnBps, params.BaseMintBps, params.MaxRewardBps)})
	return e.checkpoint()
}

// RescueStrayAsset moves unreserved custodial funds (balance net of pools
// and stake escrow) to the target; governor only. It stays available while
// paused because it exists for emergencies.
func (e *Engine) RescueStrayAsset(caller, to crypto.Address, amount *big.Int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gov.RequireRole(gov.RoleGovernor, caller); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", ledger.ErrInvalidAmount
	}
	free := e.ledger.UnreservedCustodial(e.staking.TotalStaked())
	if amount.Cmp(free) > 0 {
		return "", fmt.Errorf("%w: %s free, %s requested", ErrRescueExceedsUnreserved, free, amount)
	}
	if err := e.ledger.Move(e.ledger.Custodial(), to, amount); err != nil {
		return "", err
	}
	receipt := uuid.NewString()
	e.emitter.Emit(events.RescuePerformed{ReceiptID: receipt, To: to, Amount: new(big.Int).Set(amount)})
	return receipt, e.checkpoint()
}

// --- Read-only accessors (available while paused) ---

// BalanceOf returns the account balance.
func (e *Engine) BalanceOf(addr crypto.Address) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.BalanceOf(addr)
}

// TotalSupply returns the current supply.
func (e *Engine) TotalSupply() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.TotalSupply()
}

// MaxSupply returns the supply ceiling.
func (e *Engine) MaxSupply() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.MaxSupply()
}

// PoolBalance returns the named pool counter.
func (e *Engine) PoolBalance(pool ledger.Pool) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.PoolBalance(pool)
}

// Pools returns all pool counters keyed by name.
func (e *Engine) Pools() map[string]*big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*big.Int, len(ledger.Pools))
	for _, pool := range ledger.Pools {
		out[string(pool)] = e.ledger.PoolBalance(pool)
	}
	return out
}

// StakeOf returns the account's active stake, if any.
func (e *Engine) StakeOf(owner crypto.Address) (*staking.Stake, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.staking.StakeOf(owner)
}

// Partner returns the named partner record, if registered.
func (e *Engine) Partner(name string) (*consumption.Partner, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gateway.Partner(name)
}

// Nonce returns the next expected voucher nonce for the user.
func (e *Engine) Nonce(user crypto.Address) uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gateway.Nonce(user)
}

// OracleSnapshot returns the last accepted market observation.
func (e *Engine) OracleSnapshot() oracle.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.oracle.Snapshot()
}

// CurrentPrice derives the price from the last snapshot.
func (e *Engine) CurrentPrice() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.oracle.CurrentPrice(e.ledger.EffectiveSupply())
}

// EffectiveSupply returns total supply minus the stabilizer pool.
func (e *Engine) EffectiveSupply() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.EffectiveSupply()
}

// Params returns a copy of the active parameter set.
func (e *Engine) Params() gov.Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params.Clone()
}

// Paused reports the pause flag.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gov.Paused()
}

// AnomalyCount returns the circuit breaker's running counter.
func (e *Engine) AnomalyCount() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gov.AnomalyCount()
}

// HasRole reports whether the address holds the role.
func (e *Engine) HasRole(role string, addr crypto.Address) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gov.HasRole(role, addr)
}

// CheckInvariants verifies supply conservation and pool reconciliation.
func (e *Engine) CheckInvariants() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.CheckInvariants()
}
