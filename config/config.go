package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Johny-1992/TGST/core"
	"github.com/Johny-1992/TGST/crypto"
	"github.com/Johny-1992/TGST/native/gov"
)

// Config mirrors the TOML file driving the daemon. Amounts and prices are
// decimal strings in 1e18 units; durations use Go syntax ("168h").
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`

	Engine EngineConfig `toml:"Engine"`
}

// EngineConfig holds the ledger engine assembly parameters.
type EngineConfig struct {
	Name    string `toml:"Name"`
	Version string `toml:"Version"`
	ChainID uint64 `toml:"ChainID"`

	ContractAddress  string `toml:"ContractAddress"`
	CustodialAddress string `toml:"CustodialAddress"`
	AdminAddress     string `toml:"AdminAddress"`
	GovernorAddress  string `toml:"GovernorAddress"`
	OracleAddress    string `toml:"OracleAddress"`
	TreasuryAddress  string `toml:"TreasuryAddress"`

	MaxSupply     string `toml:"MaxSupply"`
	InitialSupply string `toml:"InitialSupply"`

	BaseBurnBps      uint64 `toml:"BaseBurnBps"`
	BaseMintBps      uint64 `toml:"BaseMintBps"`
	MaxRewardBps     uint64 `toml:"MaxRewardBps"`
	TargetPrice      string `toml:"TargetPrice"`
	PriceK           string `toml:"PriceK"`
	VolumeCeiling    string `toml:"VolumeCeiling"`
	UserDailyMintCap string `toml:"UserDailyMintCap"`
	MinStakeDuration string `toml:"MinStakeDuration"`
	MaxStakeDuration string `toml:"MaxStakeDuration"`
	AnomalyThreshold uint32 `toml:"AnomalyThreshold"`
}

// Load reads the configuration from the given path, creating a commented
// default file when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "tgst-local"
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	return cfg, nil
}

func parseAmount(field, s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("config: invalid %s value %q", field, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("config: %s must not be negative", field)
	}
	return v, nil
}

func parseAddress(field, s string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return crypto.ZeroAddress, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.ZeroAddress, fmt.Errorf("config: %s: %w", field, err)
	}
	return addr, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	return d, nil
}

// EngineConfig converts the TOML engine section into the core assembly
// config, validating every field.
func (c *Config) EngineConfig() (core.Config, error) {
	e := c.Engine
	out := core.Config{
		Name:    strings.TrimSpace(e.Name),
		Version: strings.TrimSpace(e.Version),
		ChainID: e.ChainID,
	}
	var err error
	if out.Contract, err = parseAddress("ContractAddress", e.ContractAddress); err != nil {
		return core.Config{}, err
	}
	if out.Custodial, err = parseAddress("CustodialAddress", e.CustodialAddress); err != nil {
		return core.Config{}, err
	}
	if out.Admin, err = parseAddress("AdminAddress", e.AdminAddress); err != nil {
		return core.Config{}, err
	}
	if out.Governor, err = parseAddress("GovernorAddress", e.GovernorAddress); err != nil {
		return core.Config{}, err
	}
	if out.Oracle, err = parseAddress("OracleAddress", e.OracleAddress); err != nil {
		return core.Config{}, err
	}
	if out.Treasury, err = parseAddress("TreasuryAddress", e.TreasuryAddress); err != nil {
		return core.Config{}, err
	}
	if out.MaxSupply, err = parseAmount("MaxSupply", e.MaxSupply); err != nil {
		return core.Config{}, err
	}
	if out.InitialSupply, err = parseAmount("InitialSupply", e.InitialSupply); err != nil {
		return core.Config{}, err
	}

	params := gov.Params{
		BaseBurnBps:      e.BaseBurnBps,
		BaseMintBps:      e.BaseMintBps,
		MaxRewardBps:     e.MaxRewardBps,
		AnomalyThreshold: e.AnomalyThreshold,
	}
	if params.TargetPrice, err = parseAmount("TargetPrice", e.TargetPrice); err != nil {
		return core.Config{}, err
	}
	if params.PriceK, err = parseAmount("PriceK", e.PriceK); err != nil {
		return core.Config{}, err
	}
	if params.VolumeCeiling, err = parseAmount("VolumeCeiling", e.VolumeCeiling); err != nil {
		return core.Config{}, err
	}
	if params.UserDailyMintCap, err = parseAmount("UserDailyMintCap", e.UserDailyMintCap); err != nil {
		return core.Config{}, err
	}
	if params.MinStakeDuration, err = parseDuration("MinStakeDuration", e.MinStakeDuration); err != nil {
		return core.Config{}, err
	}
	if params.MaxStakeDuration, err = parseDuration("MaxStakeDuration", e.MaxStakeDuration); err != nil {
		return core.Config{}, err
	}
	out.Params = params
	if err := out.Validate(); err != nil {
		return core.Config{}, err
	}
	return out, nil
}

const defaultConfig = `# TGST ledger engine configuration.
ListenAddress = ":8645"
DataDir = "./data"
NetworkName = "tgst-local"

[Engine]
Name = "TGST"
Version = "1"
ChainID = 8845
# Privileged addresses are deployment configuration; fill in before start.
ContractAddress = ""
CustodialAddress = ""
AdminAddress = ""
GovernorAddress = ""
OracleAddress = ""
TreasuryAddress = ""
# 1e18-scaled decimal strings.
MaxSupply = "1000000000000000000000000000"
InitialSupply = "100000000000000000000000000"
BaseBurnBps = 100
BaseMintBps = 50
MaxRewardBps = 500
TargetPrice = "1000000000000000000"
PriceK = "1000000000000000000"
VolumeCeiling = "100000000000000000000000000"
UserDailyMintCap = "0"
MinStakeDuration = "168h"
MaxStakeDuration = "8760h"
AnomalyThreshold = 2
`

// createDefault writes and returns the default configuration file.
func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return nil, err
	}
	return Load(path)
}
