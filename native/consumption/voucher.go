package consumption

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/Johny-1992/TGST/crypto"
)

// VoucherDomainV1 names the structured-data domain for consumption vouchers.
const VoucherDomainV1 = "TGST_CONSUMPTION_V1"

// Domain binds voucher signatures to a specific deployment so a voucher
// signed for one network or contract can never be replayed on another.
type Domain struct {
	Name     string
	Version  string
	ChainID  uint64
	Contract crypto.Address
}

// Separator derives the 32-byte domain separator hashed into every digest.
func (d Domain) Separator() []byte {
	payload := fmt.Sprintf("%s|name=%s|version=%s|chain=%d|contract=%s",
		VoucherDomainV1,
		strings.TrimSpace(d.Name),
		strings.TrimSpace(d.Version),
		d.ChainID,
		d.Contract,
	)
	return crypto.Keccak256([]byte(payload))
}

// Voucher is the partner-signed, single-use, time-bounded message that
// authorises a consumption-linked mint. Amount is the consumed value in
// 1e18-scaled stable units.
type Voucher struct {
	User    crypto.Address
	Amount  *big.Int
	Nonce   uint64
	Expiry  int64
	Partner string
}

type voucherJSON struct {
	User    string `json:"user"`
	Amount  string `json:"amount"`
	Nonce   uint64 `json:"nonce"`
	Expiry  int64  `json:"expiry"`
	Partner string `json:"partner"`
}

// MarshalJSON encodes the voucher into the representation used by RPC clients.
func (v Voucher) MarshalJSON() ([]byte, error) {
	amount := "0"
	if v.Amount != nil {
		amount = v.Amount.String()
	}
	return json.Marshal(voucherJSON{
		User:    v.User.String(),
		Amount:  amount,
		Nonce:   v.Nonce,
		Expiry:  v.Expiry,
		Partner: strings.TrimSpace(v.Partner),
	})
}

// UnmarshalJSON decodes the on-wire representation into the canonical struct.
func (v *Voucher) UnmarshalJSON(data []byte) error {
	if v == nil {
		return fmt.Errorf("voucher: nil receiver")
	}
	var payload voucherJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	user, err := crypto.DecodeAddress(payload.User)
	if err != nil {
		return fmt.Errorf("voucher: user: %w", err)
	}
	amountStr := strings.TrimSpace(payload.Amount)
	if amountStr == "" {
		return fmt.Errorf("voucher: amount required")
	}
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		return fmt.Errorf("voucher: invalid amount %q", payload.Amount)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("voucher: amount must be positive")
	}
	partner := strings.TrimSpace(payload.Partner)
	if partner == "" {
		return fmt.Errorf("voucher: partner required")
	}
	*v = Voucher{
		User:    user,
		Amount:  amount,
		Nonce:   payload.Nonce,
		Expiry:  payload.Expiry,
		Partner: partner,
	}
	return nil
}

// Digest reconstructs the canonical message hash signed by the partner
// backend: keccak256(domainSeparator || keccak256(payload)).
func (v Voucher) Digest(domain Domain) []byte {
	amount := "0"
	if v.Amount != nil {
		amount = v.Amount.String()
	}
	payload := fmt.Sprintf("user=%s|amount=%s|nonce=%d|exp=%d|partner=%s",
		hex.EncodeToString(v.User.Bytes()),
		amount,
		v.Nonce,
		v.Expiry,
		strings.ToLower(strings.TrimSpace(v.Partner)),
	)
	return crypto.Keccak256(domain.Separator(), crypto.Keccak256([]byte(payload)))
}
