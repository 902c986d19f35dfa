package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Johny-1992/TGST/core"
	"github.com/Johny-1992/TGST/crypto"
	"github.com/Johny-1992/TGST/native/consumption"
	"github.com/Johny-1992/TGST/native/fees"
	"github.com/Johny-1992/TGST/native/gov"
	"github.com/Johny-1992/TGST/native/ledger"
	"github.com/Johny-1992/TGST/native/staking"
	"github.com/Johny-1992/TGST/observability/metrics"
)

// Server exposes the engine entry points over JSON HTTP. Caller identity
// arrives as an address field on each request; authentication of that
// address is the hosting platform's concern, not the engine's.
type Server struct {
	engine *core.Engine
	logger *slog.Logger
}

// NewServer constructs an RPC server around the engine.
func NewServer(engine *core.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, logger: logger}
}

// Router mounts all routes, including Prometheus metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/status", s.handleStatus)
		v1.Get("/params", s.handleParams)
		v1.Get("/oracle", s.handleOracle)
		v1.Get("/pools", s.handlePools)
		v1.Get("/balance/{address}", s.handleBalance)
		v1.Get("/nonce/{address}", s.handleNonce)
		v1.Get("/stake/{address}", s.handleStake)
		v1.Get("/partner/{name}", s.handlePartner)

		v1.Post("/transfer", s.handleTransfer)
		v1.Post("/consumption/mint", s.handleConsumptionMint)
		v1.Post("/stake", s.handleStakeCreate)
		v1.Post("/unstake", s.handleUnstake)
		v1.Post("/claim", s.handleClaim)
		v1.Post("/pool/fund", s.handleFundPool)
		v1.Post("/partner", s.handleAddPartner)
		v1.Post("/partner/{name}/toggle", s.handleTogglePartner)
		v1.Post("/oracle", s.handleOracleUpdate)
		v1.Post("/pause", s.handlePause)
		v1.Post("/unpause", s.handleUnpause)
		v1.Post("/blacklist", s.handleBlacklist)
		v1.Post("/rescue", s.handleRescue)
	})
	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("rpc: encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps engine sentinels onto HTTP statuses and stable error
// kinds so callers can diagnose rejections programmatically.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	kind := "validation"
	switch {
	case errors.Is(err, gov.ErrPaused):
		status, kind = http.StatusLocked, "paused"
	case errors.Is(err, gov.ErrUnauthorized), errors.Is(err, ledger.ErrBlacklisted):
		status, kind = http.StatusForbidden, "authorization"
	case errors.Is(err, consumption.ErrReplayRejected):
		status, kind = http.StatusConflict, "replay"
	case errors.Is(err, consumption.ErrExpiredVoucher):
		status, kind = http.StatusUnprocessableEntity, "expiry"
	case errors.Is(err, consumption.ErrBadSignature), errors.Is(err, consumption.ErrVerifierRejected):
		status, kind = http.StatusForbidden, "authorization"
	case errors.Is(err, consumption.ErrSupplyExceeded),
		errors.Is(err, consumption.ErrPartnerCapExceeded),
		errors.Is(err, consumption.ErrUserCapExceeded),
		errors.Is(err, ledger.ErrSupplyCap):
		status, kind = http.StatusUnprocessableEntity, "supply"
	case errors.Is(err, ledger.ErrInsufficientBalance), errors.Is(err, ledger.ErrInsufficientPool):
		status, kind = http.StatusUnprocessableEntity, "liquidity"
	case errors.Is(err, fees.ErrBurnRateSaturated):
		status, kind = http.StatusUnprocessableEntity, "fees"
	case errors.Is(err, staking.ErrNoActiveStake),
		errors.Is(err, staking.ErrStakeLocked),
		errors.Is(err, staking.ErrAlreadyStaked):
		status, kind = http.StatusConflict, "state"
	}
	metrics.RPC().Rejection(kind)
	s.writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func parseAddressParam(r *http.Request, name string) (crypto.Address, error) {
	return crypto.DecodeAddress(chi.URLParam(r, name))
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, errors.New("rpc: invalid amount")
	}
	return v, nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeError(w, err)
		return false
	}
	return true
}

// --- Read handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"paused":          s.engine.Paused(),
		"anomalyCount":    s.engine.AnomalyCount(),
		"totalSupply":     s.engine.TotalSupply().String(),
		"maxSupply":       s.engine.MaxSupply().String(),
		"effectiveSupply": s.engine.EffectiveSupply().String(),
		"currentPrice":    s.engine.CurrentPrice().String(),
	})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	p := s.engine.Params()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"baseBurnBps":      p.BaseBurnBps,
		"baseMintBps":      p.BaseMintBps,
		"maxRewardBps":     p.MaxRewardBps,
		"targetPrice":      p.TargetPrice.String(),
		"priceK":           p.PriceK.String(),
		"volumeCeiling":    p.VolumeCeiling.String(),
		"userDailyMintCap": p.UserDailyMintCap.String(),
		"minStakeDuration": p.MinStakeDuration.String(),
		"maxStakeDuration": p.MaxStakeDuration.String(),
		"anomalyThreshold": p.AnomalyThreshold,
	})
}

func (s *Server) handleOracle(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.OracleSnapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"totalVolume":      snap.TotalVolume.String(),
		"totalStaked":      snap.TotalStaked.String(),
		"totalPartnerMint": snap.TotalPartnerMint.String(),
		"timestamp":        snap.Timestamp.Unix(),
	})
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	pools := make(map[string]string)
	for name, bal := range s.engine.Pools() {
		pools[name] = bal.String()
	}
	s.writeJSON(w, http.StatusOK, pools)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddressParam(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"address": addr.String(),
		"balance": s.engine.BalanceOf(addr).String(),
	})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddressParam(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.String(),
		"nonce":   s.engine.Nonce(addr),
	})
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddressParam(r, "address")
	if err != nil {
		s.writeError(w, err)
		return
	}
	stake, ok := s.engine.StakeOf(addr)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "no active stake", Kind: "state"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"amount":     stake.Amount.String(),
		"startTime":  stake.StartTime,
		"unlockTime": stake.UnlockTime,
	})
}

func (s *Server) handlePartner(w http.ResponseWriter, r *http.Request) {
	partner, ok := s.engine.Partner(chi.URLParam(r, "name"))
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown partner", Kind: "validation"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":         partner.Name,
		"signer":       partner.Signer.String(),
		"active":       partner.Active,
		"cashbackBps":  partner.CashbackBps,
		"rewardBps":    partner.RewardBps,
		"dailyMintCap": partner.DailyMintCap.String(),
		"mintedToday":  partner.MintedToday.String(),
		"lastMintDay":  partner.LastMintDay,
		"totalMinted":  partner.TotalMinted.String(),
	})
}

// --- Mutating handlers ---

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	from, err := crypto.DecodeAddress(req.From)
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := crypto.DecodeAddress(req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	quote, err := s.engine.Transfer(from, to, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, quoteBody(quote))
}

func quoteBody(q *fees.Quote) map[string]string {
	return map[string]string{
		"burnBps":    q.BurnBps.String(),
		"mintBps":    q.MintBps.String(),
		"burnAmount": q.BurnAmount.String(),
		"mintAmount": q.MintAmount.String(),
	}
}

type consumptionMintRequest struct {
	Voucher   consumption.Voucher `json:"voucher"`
	Signature string              `json:"signature"`
}

func (s *Server) handleConsumptionMint(w http.ResponseWriter, r *http.Request) {
	var req consumptionMintRequest
	if !s.decode(w, r, &req) {
		return
	}
	sig, err := decodeHex(req.Signature)
	if err != nil {
		s.writeError(w, err)
		return
	}
	minted, err := s.engine.MintOnConsumption(&req.Voucher, sig)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"minted": minted.String()})
}

type stakeRequest struct {
	Owner    string `json:"owner"`
	Amount   string `json:"amount"`
	Duration string `json:"duration"`
}

func (s *Server) handleStakeCreate(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner, err := crypto.DecodeAddress(req.Owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	duration, err := time.ParseDuration(strings.TrimSpace(req.Duration))
	if err != nil {
		s.writeError(w, err)
		return
	}
	stake, err := s.engine.Stake(owner, amount, duration)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"amount":     stake.Amount.String(),
		"startTime":  stake.StartTime,
		"unlockTime": stake.UnlockTime,
	})
}

type ownerRequest struct {
	Owner string `json:"owner"`
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	s.handleWithdraw(w, r, s.engine.Unstake)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	s.handleWithdraw(w, r, s.engine.ClaimRewards)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, op func(crypto.Address) (*big.Int, *big.Int, error)) {
	var req ownerRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner, err := crypto.DecodeAddress(req.Owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	principal, reward, err := op(owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"principal": principal.String(),
		"reward":    reward.String(),
	})
}

type fundPoolRequest struct {
	Caller string `json:"caller"`
	Pool   string `json:"pool"`
	Amount string `json:"amount"`
}

func (s *Server) handleFundPool(w http.ResponseWriter, r *http.Request) {
	var req fundPoolRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pool, err := ledger.ParsePool(req.Pool)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.FundPool(caller, pool, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"pool": string(pool), "balance": s.engine.PoolBalance(pool).String()})
}

type addPartnerRequest struct {
	Caller       string `json:"caller"`
	Name         string `json:"name"`
	Signer       string `json:"signer"`
	CashbackBps  uint32 `json:"cashbackBps"`
	RewardBps    uint32 `json:"rewardBps"`
	DailyMintCap string `json:"dailyMintCap"`
}

func (s *Server) handleAddPartner(w http.ResponseWriter, r *http.Request) {
	var req addPartnerRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	signer, err := crypto.DecodeAddress(req.Signer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dailyCap, err := parseAmount(req.DailyMintCap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	partner, err := s.engine.AddPartner(caller, req.Name, signer, req.CashbackBps, req.RewardBps, dailyCap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"name": partner.Name, "active": partner.Active})
}

type callerRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) handleTogglePartner(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	active, err := s.engine.TogglePartner(caller, chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

type oracleUpdateRequest struct {
	Caller           string `json:"caller"`
	TotalVolume      string `json:"totalVolume"`
	TotalStaked      string `json:"totalStaked"`
	TotalPartnerMint string `json:"totalPartnerMint"`
}

func (s *Server) handleOracleUpdate(w http.ResponseWriter, r *http.Request) {
	var req oracleUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	volume, err := parseAmount(req.TotalVolume)
	if err != nil {
		s.writeError(w, err)
		return
	}
	staked, err := parseAmount(req.TotalStaked)
	if err != nil {
		s.writeError(w, err)
		return
	}
	partnerMint, err := parseAmount(req.TotalPartnerMint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.UpdateOracle(caller, volume, staked, partnerMint); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"paused": s.engine.Paused(), "anomalyCount": s.engine.AnomalyCount()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handlePauseFlip(w, r, s.engine.Pause)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.handlePauseFlip(w, r, s.engine.Unpause)
}

func (s *Server) handlePauseFlip(w http.ResponseWriter, r *http.Request, op func(crypto.Address) error) {
	var req callerRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := op(caller); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"paused": s.engine.Paused()})
}

type blacklistRequest struct {
	Caller      string `json:"caller"`
	Address     string `json:"address"`
	Blacklisted bool   `json:"blacklisted"`
}

func (s *Server) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.SetBlacklisted(caller, addr, req.Blacklisted); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"blacklisted": req.Blacklisted})
}

type rescueRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleRescue(w http.ResponseWriter, r *http.Request) {
	var req rescueRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller, err := crypto.DecodeAddress(req.Caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := crypto.DecodeAddress(req.To)
	if err != nil {
		s.writeError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	receipt, err := s.engine.RescueStrayAsset(caller, to, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"receiptId": receipt})
}

func decodeHex(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if trimmed == "" {
		return nil, errors.New("rpc: empty hex payload")
	}
	return hex.DecodeString(trimmed)
}
