package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments).
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key. Recognized keys are exactly
// spec.md §9's option set plus the ambient logging keys; unknown keys are
// ignored rather than rejected, matching the teacher's forward-compatible
// config-file parsing.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "min_stake_amount":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.MinStakeAmount = n
	case "stake_lock_seconds":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.StakeLockSeconds = n
	case "stake_reward_rate":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		cfg.StakeRewardRate = f
	case "block_interval_target":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.BlockIntervalTarget = n
	case "max_clock_skew":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.MaxClockSkew = n
	case "data_dir":
		cfg.DataDir = value
	case "listen_port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.ListenPort = n
	case "bootstrap_peers":
		cfg.BootstrapPeers = parseStringList(value)
	case "testnet":
		cfg.Testnet = parseBool(value)

	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored.
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, cfg *Config) error {
	content := fmt.Sprintf(`# grishinium node configuration
#
# Values here override the built-in defaults and are in turn overridden
# by command-line flags.

min_stake_amount = %d
stake_lock_seconds = %d
stake_reward_rate = %v
block_interval_target = %d
max_clock_skew = %d

# data_dir = %s
listen_port = %d

# Bootstrap peer URLs (comma-separated)
# bootstrap_peers = http://node1.example.com:5000,http://node2.example.com:5000

testnet = %v

log.level = %s
log.json = %v
`,
		cfg.MinStakeAmount, cfg.StakeLockSeconds, cfg.StakeRewardRate,
		cfg.BlockIntervalTarget, cfg.MaxClockSkew, cfg.DataDir, cfg.ListenPort,
		cfg.Testnet, cfg.Log.Level, cfg.Log.JSON)
	return os.WriteFile(path, []byte(content), 0o644)
}
