package ledger

import (
	"fmt"
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

// State is the serialisable form of the ledger, with big integers rendered
// as decimal strings and addresses as 0x hex.
type State struct {
	Balances    map[string]string `json:"balances"`
	TotalSupply string            `json:"totalSupply"`
	MaxSupply   string            `json:"maxSupply"`
	Custodial   string            `json:"custodial"`
	Blacklist   []string          `json:"blacklist,omitempty"`
	Pools       map[string]string `json:"pools"`
}

// Export captures the full ledger state for checkpointing.
func (l *Ledger) Export() *State {
	state := &State{
		Balances:    make(map[string]string, len(l.balances)),
		TotalSupply: l.totalSupply.String(),
		MaxSupply:   l.maxSupply.String(),
		Custodial:   l.custodial.String(),
		Pools:       make(map[string]string, len(l.pools)),
	}
	for addr, bal := range l.balances {
		if bal.Sign() != 0 {
			state.Balances[addr.String()] = bal.String()
		}
	}
	for addr := range l.blacklist {
		state.Blacklist = append(state.Blacklist, addr.String())
	}
	for pool, bal := range l.pools {
		state.Pools[string(pool)] = bal.String()
	}
	return state
}

func parseAmount(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("ledger: invalid %s value %q", field, s)
	}
	return v, nil
}

// Restore rebuilds a ledger from a checkpointed state.
func Restore(state *State) (*Ledger, error) {
	if state == nil {
		return nil, fmt.Errorf("ledger: nil state")
	}
	custodial, err := crypto.DecodeAddress(state.Custodial)
	if err != nil {
		return nil, fmt.Errorf("ledger: custodial: %w", err)
	}
	maxSupply, err := parseAmount("maxSupply", state.MaxSupply)
	if err != nil {
		return nil, err
	}
	l := New(custodial, maxSupply)
	for addrStr, balStr := range state.Balances {
		addr, err := crypto.DecodeAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("ledger: balance address: %w", err)
		}
		bal, err := parseAmount("balance", balStr)
		if err != nil {
			return nil, err
		}
		l.balances[addr] = bal
	}
	total, err := parseAmount("totalSupply", state.TotalSupply)
	if err != nil {
		return nil, err
	}
	l.totalSupply = total
	for _, addrStr := range state.Blacklist {
		addr, err := crypto.DecodeAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("ledger: blacklist address: %w", err)
		}
		l.blacklist[addr] = true
	}
	for poolStr, balStr := range state.Pools {
		pool, err := ParsePool(poolStr)
		if err != nil {
			return nil, err
		}
		bal, err := parseAmount("pool", balStr)
		if err != nil {
			return nil, err
		}
		l.pools[pool] = bal
	}
	if err := l.CheckInvariants(); err != nil {
		return nil, err
	}
	return l, nil
}
