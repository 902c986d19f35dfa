package events

import (
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

const (
	// TypeTransferApplied is emitted for every completed dynamic-fee transfer.
	TypeTransferApplied = "ledger.transfer"
	// TypePoolFunded is emitted when a named pool receives a credit.
	TypePoolFunded = "ledger.pool.funded"
	// TypePoolDebited is emitted when a named pool pays out.
	TypePoolDebited = "ledger.pool.debited"
	// TypeSupplyChanged is emitted whenever total supply moves.
	TypeSupplyChanged = "ledger.supply"
	// TypeBlacklistUpdated is emitted when an address blacklist entry flips.
	TypeBlacklistUpdated = "ledger.blacklist"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
	// SupplyReasonBurn identifies burn driven supply decreases.
	SupplyReasonBurn = "burn"
)

// TransferApplied captures the burn/mint breakdown of a completed transfer.
type TransferApplied struct {
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
	Burned *big.Int
	Minted *big.Int
}

func (TransferApplied) EventType() string { return TypeTransferApplied }

// PoolFunded records a credit to a named pool.
type PoolFunded struct {
	Pool    string
	Amount  *big.Int
	Balance *big.Int
	Funder  crypto.Address
}

func (PoolFunded) EventType() string { return TypePoolFunded }

// PoolDebited records a payout from a named pool.
type PoolDebited struct {
	Pool    string
	Amount  *big.Int
	Balance *big.Int
	To      crypto.Address
}

func (PoolDebited) EventType() string { return TypePoolDebited }

// SupplyChanged captures a total-supply delta.
type SupplyChanged struct {
	Total  *big.Int
	Delta  *big.Int
	Reason string
}

func (SupplyChanged) EventType() string { return TypeSupplyChanged }

// BlacklistUpdated records a blacklist flag change for an address.
type BlacklistUpdated struct {
	Account     crypto.Address
	Blacklisted bool
}

func (BlacklistUpdated) EventType() string { return TypeBlacklistUpdated }
