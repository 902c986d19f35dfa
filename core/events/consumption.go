package events

import (
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

const (
	// TypeConsumptionMinted is emitted when a partner voucher settles.
	TypeConsumptionMinted = "consumption.minted"
	// TypeCashbackPaid is emitted when a voucher settlement pays cashback.
	TypeCashbackPaid = "consumption.cashback"
	// TypePartnerAdded is emitted when governance registers a partner.
	TypePartnerAdded = "consumption.partner.added"
	// TypePartnerToggled is emitted when a partner is activated or deactivated.
	TypePartnerToggled = "consumption.partner.toggled"
)

// ConsumptionMinted captures a settled consumption voucher.
type ConsumptionMinted struct {
	Partner    string
	User       crypto.Address
	Amount     *big.Int
	MintAmount *big.Int
	Nonce      uint64
	Day        string
}

func (ConsumptionMinted) EventType() string { return TypeConsumptionMinted }

// CashbackPaid records the cashback credited to a consuming user.
type CashbackPaid struct {
	Partner string
	User    crypto.Address
	Amount  *big.Int
}

func (CashbackPaid) EventType() string { return TypeCashbackPaid }

// PartnerAdded records a partner registration.
type PartnerAdded struct {
	Name   string
	Signer crypto.Address
}

func (PartnerAdded) EventType() string { return TypePartnerAdded }

// PartnerToggled records a partner activation flip.
type PartnerToggled struct {
	Name   string
	Active bool
}

func (PartnerToggled) EventType() string { return TypePartnerToggled }
