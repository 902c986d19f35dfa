package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Johny-1992/TGST/core"
	"github.com/Johny-1992/TGST/crypto"
	"github.com/Johny-1992/TGST/native/consumption"
	"github.com/Johny-1992/TGST/native/fees"
	"github.com/Johny-1992/TGST/native/gov"
)

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func unitAmount(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fees.Unit)
}

var (
	custodial = addr(0xCC)
	admin     = addr(0xAD)
	governor  = addr(0x60)
	oracleKey = addr(0x0E)
	treasury  = addr(0x7E)
	alice     = addr(1)
	bob       = addr(2)
)

func testEngine(t *testing.T) *core.Engine {
	t.Helper()
	cfg := core.Config{
		Name:          "tgst",
		Version:       "1",
		ChainID:       8845,
		Contract:      addr(0xC0),
		Custodial:     custodial,
		Admin:         admin,
		Governor:      governor,
		Oracle:        oracleKey,
		MaxSupply:     unitAmount(1_000_000),
		InitialSupply: unitAmount(100_000),
		Treasury:      treasury,
		Params: gov.Params{
			BaseBurnBps:      100,
			BaseMintBps:      50,
			MaxRewardBps:     500,
			TargetPrice:      unitAmount(1),
			PriceK:           big.NewInt(0),
			VolumeCeiling:    unitAmount(1_000_000),
			UserDailyMintCap: big.NewInt(0),
			MinStakeDuration: 7 * 24 * time.Hour,
			MaxStakeDuration: 365 * 24 * time.Hour,
			AnomalyThreshold: 2,
		},
	}
	engine, err := core.NewEngine(cfg)
	require.NoError(t, err)
	_, err = engine.Transfer(treasury, alice, unitAmount(10_000))
	require.NoError(t, err)
	return engine
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	router := NewServer(testEngine(t), nil).Router()
	rec := doJSON(t, router, http.MethodGet, "/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["paused"])
	require.Equal(t, unitAmount(1).String(), body["currentPrice"])
}

func TestTransferEndpoint(t *testing.T) {
	engine := testEngine(t)
	router := NewServer(engine, nil).Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/transfer", map[string]string{
		"from":   alice.String(),
		"to":     bob.String(),
		"amount": unitAmount(1000).String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, unitAmount(10).String(), body["burnAmount"])
	require.Equal(t, 0, engine.BalanceOf(bob).Cmp(unitAmount(990)))
}

func TestTransferEndpointLiquidityError(t *testing.T) {
	router := NewServer(testEngine(t), nil).Router()
	rec := doJSON(t, router, http.MethodPost, "/v1/transfer", map[string]string{
		"from":   bob.String(),
		"to":     alice.String(),
		"amount": unitAmount(1).String(),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "liquidity", body["kind"])
}

func TestConsumptionMintEndpoint(t *testing.T) {
	engine := testEngine(t)
	router := NewServer(engine, nil).Router()

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	_, err = engine.AddPartner(governor, "shopx", key.PubKey().Address(), 0, 0, big.NewInt(0))
	require.NoError(t, err)

	domain := consumption.Domain{Name: "tgst", Version: "1", ChainID: 8845, Contract: addr(0xC0)}
	voucher := consumption.Voucher{
		User:    alice,
		Amount:  unitAmount(100),
		Nonce:   0,
		Expiry:  time.Now().Add(time.Hour).Unix(),
		Partner: "shopx",
	}
	sig, err := key.Sign(voucher.Digest(domain))
	require.NoError(t, err)

	payload := map[string]any{
		"voucher":   voucher,
		"signature": "0x" + hex.EncodeToString(sig),
	}
	rec := doJSON(t, router, http.MethodPost, "/v1/consumption/mint", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, unitAmount(100).String(), body["minted"])

	// Replaying the same voucher maps to 409/replay.
	rec = doJSON(t, router, http.MethodPost, "/v1/consumption/mint", payload)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "replay", body["kind"])

	// The nonce endpoint reflects the consumed voucher.
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/nonce/%s", alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPauseEndpointGatesTransfers(t *testing.T) {
	engine := testEngine(t)
	router := NewServer(engine, nil).Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/pause", map[string]string{"caller": governor.String()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/transfer", map[string]string{
		"from":   alice.String(),
		"to":     bob.String(),
		"amount": unitAmount(1).String(),
	})
	require.Equal(t, http.StatusLocked, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "paused", body["kind"])

	// A non-governor cannot unpause.
	rec = doJSON(t, router, http.MethodPost, "/v1/unpause", map[string]string{"caller": alice.String()})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/unpause", map[string]string{"caller": governor.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, engine.Paused())
}

func TestOracleUpdateEndpointRequiresRole(t *testing.T) {
	router := NewServer(testEngine(t), nil).Router()
	rec := doJSON(t, router, http.MethodPost, "/v1/oracle", map[string]string{
		"caller":           alice.String(),
		"totalVolume":      "1",
		"totalStaked":      "0",
		"totalPartnerMint": "0",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/oracle", map[string]string{
		"caller":           oracleKey.String(),
		"totalVolume":      "1",
		"totalStaked":      "0",
		"totalPartnerMint": "0",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	router := NewServer(testEngine(t), nil).Router()
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/balance/%s", alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, unitAmount(9900).String(), body["balance"])

	rec = doJSON(t, router, http.MethodGet, "/v1/balance/garbage", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStakeEndpoints(t *testing.T) {
	engine := testEngine(t)
	router := NewServer(engine, nil).Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/stake", map[string]string{
		"owner":    alice.String(),
		"amount":   unitAmount(500).String(),
		"duration": "168h",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Immediate unstake maps to 409/state while locked.
	rec = doJSON(t, router, http.MethodPost, "/v1/unstake", map[string]string{"owner": alice.String()})
	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "state", body["kind"])

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/v1/stake/%s", alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
