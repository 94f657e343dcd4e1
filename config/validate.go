package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.ListenPort < 0 || cfg.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be in range [0, 65535]")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if cfg.MinStakeAmount == 0 {
		return fmt.Errorf("min_stake_amount must be positive")
	}
	if cfg.BlockIntervalTarget == 0 {
		return fmt.Errorf("block_interval_target must be positive")
	}
	if cfg.MaxClockSkew == 0 {
		return fmt.Errorf("max_clock_skew must be positive")
	}
	for i, peer := range cfg.BootstrapPeers {
		if peer == "" {
			return fmt.Errorf("bootstrap_peers[%d] is empty", i)
		}
	}
	return nil
}
