package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Johny-1992/TGST/native/consumption"
	"github.com/Johny-1992/TGST/native/gov"
	"github.com/Johny-1992/TGST/native/ledger"
	"github.com/Johny-1992/TGST/native/oracle"
	"github.com/Johny-1992/TGST/native/staking"
	"github.com/Johny-1992/TGST/storage"
)

// checkpointKey is the single slot holding the engine checkpoint.
var checkpointKey = []byte("tgst/state/v1")

type checkpoint struct {
	Ledger      *ledger.State      `json:"ledger"`
	Oracle      *oracle.State      `json:"oracle"`
	Consumption *consumption.State `json:"consumption"`
	Staking     *staking.State     `json:"staking"`
	Gov         *gov.State         `json:"gov"`
}

func (e *Engine) saveCheckpoint() error {
	snap := checkpoint{
		Ledger:      e.ledger.Export(),
		Oracle:      e.oracle.Export(),
		Consumption: e.gateway.Export(),
		Staking:     e.staking.Export(),
		Gov:         e.gov.Export(),
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("core: encode checkpoint: %w", err)
	}
	if err := e.db.Put(checkpointKey, encoded); err != nil {
		return fmt.Errorf("core: persist checkpoint: %w", err)
	}
	return nil
}

// restoreCheckpoint loads a previously persisted state, reporting whether a
// checkpoint existed.
func (e *Engine) restoreCheckpoint() (bool, error) {
	encoded, err := e.db.Get(checkpointKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("core: load checkpoint: %w", err)
	}
	var snap checkpoint
	if err := json.Unmarshal(encoded, &snap); err != nil {
		return false, fmt.Errorf("core: decode checkpoint: %w", err)
	}
	restored, err := ledger.Restore(snap.Ledger)
	if err != nil {
		return false, err
	}
	if err := e.oracle.Restore(snap.Oracle); err != nil {
		return false, err
	}
	if err := e.gateway.Restore(snap.Consumption); err != nil {
		return false, err
	}
	if err := e.staking.Restore(snap.Staking); err != nil {
		return false, err
	}
	if err := e.gov.Restore(snap.Gov); err != nil {
		return false, err
	}
	e.ledger = restored
	// Rebind the components that hold the old ledger pointer.
	e.rebindLedger()
	return true, nil
}

// rebindLedger rebuilds the component wiring after a ledger swap. The
// gateway and staking engine keep their own maps; only the escrow/minter
// reference changes.
func (e *Engine) rebindLedger() {
	e.gateway.Rebind(e.ledger, e.oracle)
	e.staking.Rebind(e.ledger, e.oracle)
}
