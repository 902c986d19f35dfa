package consumption

import (
	"fmt"
	"math/big"

	"github.com/Johny-1992/TGST/crypto"
)

// PartnerState is the serialisable form of a partner record.
type PartnerState struct {
	Name         string `json:"name"`
	Signer       string `json:"signer"`
	Active       bool   `json:"active"`
	CashbackBps  uint32 `json:"cashbackBps"`
	RewardBps    uint32 `json:"rewardBps"`
	DailyMintCap string `json:"dailyMintCap"`
	MintedToday  string `json:"mintedToday"`
	LastMintDay  string `json:"lastMintDay,omitempty"`
	TotalMinted  string `json:"totalMinted"`
}

// MeterState is the serialisable per-user daily mint meter.
type MeterState struct {
	Day    string `json:"day"`
	Minted string `json:"minted"`
}

// State is the serialisable form of the gateway.
type State struct {
	Partners   []PartnerState        `json:"partners,omitempty"`
	Nonces     map[string]uint64     `json:"nonces,omitempty"`
	UserMeters map[string]MeterState `json:"userMeters,omitempty"`
}

// Export captures the gateway state for checkpointing. Verifier hooks are
// process-local wiring and are not part of the checkpoint.
func (g *Gateway) Export() *State {
	state := &State{
		Nonces:     make(map[string]uint64, len(g.nonces)),
		UserMeters: make(map[string]MeterState, len(g.userMeters)),
	}
	for _, partner := range g.partners {
		state.Partners = append(state.Partners, PartnerState{
			Name:         partner.Name,
			Signer:       partner.Signer.String(),
			Active:       partner.Active,
			CashbackBps:  partner.CashbackBps,
			RewardBps:    partner.RewardBps,
			DailyMintCap: partner.DailyMintCap.String(),
			MintedToday:  partner.MintedToday.String(),
			LastMintDay:  partner.LastMintDay,
			TotalMinted:  partner.TotalMinted.String(),
		})
	}
	for user, nonce := range g.nonces {
		state.Nonces[user.String()] = nonce
	}
	for user, meter := range g.userMeters {
		state.UserMeters[user.String()] = MeterState{Day: meter.day, Minted: meter.minted.String()}
	}
	return state
}

func parseAmount(field, s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("consumption: invalid %s value %q", field, s)
	}
	return v, nil
}

// Restore rebuilds the gateway maps from a checkpointed state.
func (g *Gateway) Restore(state *State) error {
	if state == nil {
		return fmt.Errorf("consumption: nil state")
	}
	partners := make(map[string]*Partner, len(state.Partners))
	for _, ps := range state.Partners {
		signer, err := crypto.DecodeAddress(ps.Signer)
		if err != nil {
			return fmt.Errorf("consumption: partner %q signer: %w", ps.Name, err)
		}
		dailyCap, err := parseAmount("dailyMintCap", ps.DailyMintCap)
		if err != nil {
			return err
		}
		mintedToday, err := parseAmount("mintedToday", ps.MintedToday)
		if err != nil {
			return err
		}
		totalMinted, err := parseAmount("totalMinted", ps.TotalMinted)
		if err != nil {
			return err
		}
		name := normalizeName(ps.Name)
		partners[name] = &Partner{
			Name:         name,
			Signer:       signer,
			Active:       ps.Active,
			CashbackBps:  ps.CashbackBps,
			RewardBps:    ps.RewardBps,
			DailyMintCap: dailyCap,
			MintedToday:  mintedToday,
			LastMintDay:  ps.LastMintDay,
			TotalMinted:  totalMinted,
		}
	}
	nonces := make(map[crypto.Address]uint64, len(state.Nonces))
	for userStr, nonce := range state.Nonces {
		user, err := crypto.DecodeAddress(userStr)
		if err != nil {
			return fmt.Errorf("consumption: nonce address: %w", err)
		}
		nonces[user] = nonce
	}
	meters := make(map[crypto.Address]*userMeter, len(state.UserMeters))
	for userStr, ms := range state.UserMeters {
		user, err := crypto.DecodeAddress(userStr)
		if err != nil {
			return fmt.Errorf("consumption: meter address: %w", err)
		}
		minted, err := parseAmount("meter", ms.Minted)
		if err != nil {
			return err
		}
		meters[user] = &userMeter{day: ms.Day, minted: minted}
	}
	g.partners = partners
	g.nonces = nonces
	g.userMeters = meters
	return nil
}
