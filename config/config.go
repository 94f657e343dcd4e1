// Package config holds the node's runtime configuration: the narrow set
// of options spec.md §9 names, plus the ambient directory/logging
// settings needed to run the binary.
package config

import (
	"path/filepath"
)

// Config holds a node's complete runtime configuration. Every field here
// is either one of spec.md §9's named options or ambient (logging,
// bootstrap) scaffolding around them — there is no string-keyed config
// bag anywhere in the core.
type Config struct {
	// Consensus/ledger parameters (spec.md §9).
	MinStakeAmount      uint64  `conf:"min_stake_amount"`
	StakeLockSeconds    uint64  `conf:"stake_lock_seconds"`
	StakeRewardRate     float64 `conf:"stake_reward_rate"`
	BlockIntervalTarget uint64  `conf:"block_interval_target"` // seconds
	MaxClockSkew        uint64  `conf:"max_clock_skew"`        // seconds

	// Node/network parameters (spec.md §9).
	DataDir        string   `conf:"data_dir"`
	ListenPort     int      `conf:"listen_port"`
	BootstrapPeers []string `conf:"bootstrap_peers"`
	Testnet        bool     `conf:"testnet"`

	// Ambient: logging, not a consensus-affecting parameter.
	Log LogConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// BlocksDBFile returns the path of the relational blocks/transactions/
// stakes database file (§4.5/§6 persisted layout).
func (c *Config) BlocksDBFile() string {
	return filepath.Join(c.DataDir, "chain.db")
}

// MempoolSnapshotFile returns the path of the pending-transaction pool
// snapshot file.
func (c *Config) MempoolSnapshotFile() string {
	return filepath.Join(c.DataDir, "mempool.json")
}

// IdentityFile returns the path of the per-node identity file (address +
// encrypted private key material).
func (c *Config) IdentityFile() string {
	return filepath.Join(c.DataDir, "identity.json")
}

// ConfigFile returns the path of the node's .conf file.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "grishinium.conf")
}

// LogsDir returns the directory logs are written under when LogConfig.File
// is empty.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}
