package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	require.Equal(t, ":8645", cfg.ListenAddress)
	require.Equal(t, "tgst-local", cfg.NetworkName)
	require.Equal(t, uint64(8845), cfg.Engine.ChainID)
	require.Equal(t, uint64(100), cfg.Engine.BaseBurnBps)
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
ListenAddress = ":9000"
DataDir = "/var/lib/tgst"

[Engine]
Name = "TGST"
Version = "1"
ChainID = 8845
CustodialAddress = "0x00000000000000000000000000000000000000cc"
AdminAddress = "0x00000000000000000000000000000000000000ad"
GovernorAddress = "0x0000000000000000000000000000000000000060"
OracleAddress = "0x000000000000000000000000000000000000000e"
TreasuryAddress = "0x000000000000000000000000000000000000007e"
MaxSupply = "1000000000000000000000"
InitialSupply = "100000000000000000000"
BaseBurnBps = 100
BaseMintBps = 50
MaxRewardBps = 500
TargetPrice = "1000000000000000000"
PriceK = "0"
VolumeCeiling = "0"
UserDailyMintCap = "0"
MinStakeDuration = "168h"
MaxStakeDuration = "8760h"
AnomalyThreshold = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, "/var/lib/tgst", cfg.DataDir)
	// Unset optional fields pick up defaults.
	require.Equal(t, "tgst-local", cfg.NetworkName)

	engineCfg, err := cfg.EngineConfig()
	require.NoError(t, err)
	require.Equal(t, uint64(8845), engineCfg.ChainID)
	require.Equal(t, "0x00000000000000000000000000000000000000cc", engineCfg.Custodial.String())
	require.Equal(t, "1000000000000000000000", engineCfg.MaxSupply.String())
	require.Equal(t, 168*time.Hour, engineCfg.Params.MinStakeDuration)
	require.Equal(t, uint32(2), engineCfg.Params.AnomalyThreshold)
}

func TestEngineConfigRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{Engine: EngineConfig{
			Name:             "TGST",
			Version:          "1",
			ChainID:          8845,
			CustodialAddress: "0x00000000000000000000000000000000000000cc",
			AdminAddress:     "0x00000000000000000000000000000000000000ad",
			MaxSupply:        "1000",
			TargetPrice:      "1",
			MinStakeDuration: "168h",
			MaxStakeDuration: "8760h",
			AnomalyThreshold: 2,
		}}
	}

	cfg := base()
	cfg.Engine.CustodialAddress = "not-hex"
	_, err := cfg.EngineConfig()
	require.Error(t, err)

	cfg = base()
	cfg.Engine.MaxSupply = "12x4"
	_, err = cfg.EngineConfig()
	require.Error(t, err)

	cfg = base()
	cfg.Engine.MinStakeDuration = "soon"
	_, err = cfg.EngineConfig()
	require.Error(t, err)

	cfg = base()
	cfg.Engine.AnomalyThreshold = 0
	_, err = cfg.EngineConfig()
	require.Error(t, err)

	// The base config itself converts cleanly.
	cfg = base()
	_, err = cfg.EngineConfig()
	require.NoError(t, err)
}
