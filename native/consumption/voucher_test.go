package consumption

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"
)

func TestVoucherJSONRoundTrip(t *testing.T) {
	original := Voucher{
		User:    addr(1),
		Amount:  big.NewInt(1234),
		Nonce:   7,
		Expiry:  1_900_000_000,
		Partner: "shopx",
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Voucher
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.User != original.User || decoded.Amount.Cmp(original.Amount) != 0 ||
		decoded.Nonce != original.Nonce || decoded.Expiry != original.Expiry ||
		decoded.Partner != original.Partner {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}

func TestVoucherUnmarshalValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad user", `{"user":"nope","amount":"1","nonce":0,"expiry":1,"partner":"p"}`},
		{"empty amount", `{"user":"0x0000000000000000000000000000000000000001","amount":"","nonce":0,"expiry":1,"partner":"p"}`},
		{"non-numeric amount", `{"user":"0x0000000000000000000000000000000000000001","amount":"1.5","nonce":0,"expiry":1,"partner":"p"}`},
		{"zero amount", `{"user":"0x0000000000000000000000000000000000000001","amount":"0","nonce":0,"expiry":1,"partner":"p"}`},
		{"missing partner", `{"user":"0x0000000000000000000000000000000000000001","amount":"1","nonce":0,"expiry":1,"partner":" "}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v Voucher
			if err := json.Unmarshal([]byte(tc.body), &v); err == nil {
				t.Fatal("expected unmarshal error")
			}
		})
	}
}

func TestDigestBindsEveryField(t *testing.T) {
	domain := Domain{Name: "tgst", Version: "1", ChainID: 8845, Contract: addr(0xCC)}
	base := Voucher{User: addr(1), Amount: big.NewInt(100), Nonce: 0, Expiry: 100, Partner: "shopx"}
	baseDigest := base.Digest(domain)

	mutations := []Voucher{
		{User: addr(2), Amount: big.NewInt(100), Nonce: 0, Expiry: 100, Partner: "shopx"},
		{User: addr(1), Amount: big.NewInt(101), Nonce: 0, Expiry: 100, Partner: "shopx"},
		{User: addr(1), Amount: big.NewInt(100), Nonce: 1, Expiry: 100, Partner: "shopx"},
		{User: addr(1), Amount: big.NewInt(100), Nonce: 0, Expiry: 101, Partner: "shopx"},
		{User: addr(1), Amount: big.NewInt(100), Nonce: 0, Expiry: 100, Partner: "other"},
	}
	for i, m := range mutations {
		if bytes.Equal(m.Digest(domain), baseDigest) {
			t.Fatalf("mutation %d did not change the digest", i)
		}
	}

	// Partner names hash case-insensitively, matching registration.
	upper := base
	upper.Partner = "SHOPX"
	if !bytes.Equal(upper.Digest(domain), baseDigest) {
		t.Fatal("partner case changed the digest")
	}
}

func TestDigestBindsDomain(t *testing.T) {
	base := Domain{Name: "tgst", Version: "1", ChainID: 8845, Contract: addr(0xCC)}
	v := Voucher{User: addr(1), Amount: big.NewInt(100), Nonce: 0, Expiry: 100, Partner: "shopx"}
	baseDigest := v.Digest(base)

	mutations := []Domain{
		{Name: "other", Version: "1", ChainID: 8845, Contract: addr(0xCC)},
		{Name: "tgst", Version: "2", ChainID: 8845, Contract: addr(0xCC)},
		{Name: "tgst", Version: "1", ChainID: 1, Contract: addr(0xCC)},
		{Name: "tgst", Version: "1", ChainID: 8845, Contract: addr(0xCD)},
	}
	for i, d := range mutations {
		if bytes.Equal(v.Digest(d), baseDigest) {
			t.Fatalf("domain mutation %d did not change the digest", i)
		}
	}
}
