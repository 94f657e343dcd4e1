package config

import (
	"os"
)

// Protocol-level defaults (spec.md §4.2/§4.4). Mainnet values.
const (
	defaultMinStakeAmount      = 100 * 100_000_000 // 100 tokens, 8 decimals
	defaultStakeLockSeconds    = 7 * 86400
	defaultStakeRewardRate     = 0.0 // informational; rewards follow the halving schedule, not an APR
	defaultBlockIntervalTarget = 15
	defaultMaxClockSkew        = 120
	defaultListenPort          = 5000
)

// DefaultDataDir returns "./data", the canonical default data directory
// (spec.md §6 CLI surface: --data-dir default "./data").
func DefaultDataDir() string {
	return "./data"
}

// Default returns the default mainnet node configuration.
func Default() *Config {
	return &Config{
		MinStakeAmount:      defaultMinStakeAmount,
		StakeLockSeconds:    defaultStakeLockSeconds,
		StakeRewardRate:     defaultStakeRewardRate,
		BlockIntervalTarget: defaultBlockIntervalTarget,
		MaxClockSkew:        defaultMaxClockSkew,
		DataDir:             DefaultDataDir(),
		ListenPort:          defaultListenPort,
		Testnet:             false,
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default testnet configuration: Testnet set,
// MinStakeAmount lowered to 1 token, StakeLockSeconds to 60 and
// BlockIntervalTarget to 5 seconds. Of these, the block interval and the
// testnet address version change how the node runs; the ledger and the
// validator set enforce token.MinStake and token.StakeLockSeconds whatever
// MinStakeAmount and StakeLockSeconds say, the genesis bootstrap raises
// MinStakeAmount to at least token.MinStake, and the block reward is the
// same as on mainnet.
func DefaultTestnet() *Config {
	cfg := Default()
	cfg.Testnet = true
	cfg.MinStakeAmount = 1 * 100_000_000 // 1 token
	cfg.StakeLockSeconds = 60
	cfg.BlockIntervalTarget = 5
	return cfg
}

// EnsureDataDirs creates the data directory tree and a default config
// file if they don't already exist. Idempotent — safe to call on every
// startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{cfg.DataDir, cfg.LogsDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg); err != nil {
			return err
		}
	}
	return nil
}
