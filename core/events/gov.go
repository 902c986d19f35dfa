package events

import (
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

const (
	// TypeOracleUpdated is emitted for every accepted oracle push.
	TypeOracleUpdated = "oracle.updated"
	// TypeAnomalyRecorded is emitted when an oracle push breaches thresholds.
	TypeAnomalyRecorded = "oracle.anomaly"
	// TypeAutoPaused is emitted when the circuit breaker forces a pause.
	TypeAutoPaused = "gov.autopaused"
	// TypePaused is emitted on a governor-initiated pause.
	TypePaused = "gov.paused"
	// TypeUnpaused is emitted when the governor lifts a pause.
	TypeUnpaused = "gov.unpaused"
	// TypeParamsUpdated is emitted when governance tunes engine parameters.
	TypeParamsUpdated = "gov.params"
	// TypeRoleGranted is emitted when the admin grants a role.
	TypeRoleGranted = "gov.role.granted"
	// TypeRoleRevoked is emitted when the admin revokes a role.
	TypeRoleRevoked = "gov.role.revoked"
	// TypeRescuePerformed is emitted for a stray-asset rescue.
	TypeRescuePerformed = "gov.rescue"
)

// OracleUpdated captures an accepted oracle snapshot push.
type OracleUpdated struct {
	TotalVolume      *big.Int
	TotalStaked      *big.Int
	TotalPartnerMint *big.Int
	Anomalous        bool
}

func (OracleUpdated) EventType() string { return TypeOracleUpdated }

// AnomalyRecorded captures an anomalous oracle push and the running count.
type AnomalyRecorded struct {
	Count     uint32
	Threshold uint32
}

func (AnomalyRecorded) EventType() string { return TypeAnomalyRecorded }

// AutoPaused marks a circuit-breaker pause.
type AutoPaused struct {
	AnomalyCount uint32
}

func (AutoPaused) EventType() string { return TypeAutoPaused }

// Paused marks a governor pause.
type Paused struct {
	By crypto.Address
}

func (Paused) EventType() string { return TypePaused }

// Unpaused marks a governor unpause; the anomaly counter resets with it.
type Unpaused struct {
	By crypto.Address
}

func (Unpaused) EventType() string { return TypeUnpaused }

// ParamsUpdated records a parameter change.
type ParamsUpdated struct {
	Name  string
	Value string
}

func (ParamsUpdated) EventType() string { return TypeParamsUpdated }

// RoleGranted records a role grant.
type RoleGranted struct {
	Role    string
	Account crypto.Address
}

func (RoleGranted) EventType() string { return TypeRoleGranted }

// RoleRevoked records a role revocation.
type RoleRevoked struct {
	Role    string
	Account crypto.Address
}

func (RoleRevoked) EventType() string { return TypeRoleRevoked }

// RescuePerformed records an emergency transfer of unreserved custodial funds.
type RescuePerformed struct {
	ReceiptID string
	To        crypto.Address
	Amount    *big.Int
}

func (RescuePerformed) EventType() string { return TypeRescuePerformed }
