package events

import (
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

const (
	// TypeStakeCreated is emitted when an account opens a stake.
	TypeStakeCreated = "stake.created"
	// TypeStakeWithdrawn is emitted when a matured stake pays out.
	TypeStakeWithdrawn = "stake.withdrawn"
)

// StakeCreated captures a new escrowed stake position.
type StakeCreated struct {
	Owner      crypto.Address
	Amount     *big.Int
	StartTime  int64
	UnlockTime int64
}

func (StakeCreated) EventType() string { return TypeStakeCreated }

// StakeWithdrawn captures a completed withdrawal. Reward reflects the paid
// amount after any reward-pool capping.
type StakeWithdrawn struct {
	Owner     crypto.Address
	Principal *big.Int
	Reward    *big.Int
	Capped    bool
}

func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }
