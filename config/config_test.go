package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Errorf("Default() should validate: %v", err)
	}
}

func TestDefaultTestnet_LowerStakeFloor(t *testing.T) {
	main := Default()
	testnet := DefaultTestnet()

	if testnet.MinStakeAmount >= main.MinStakeAmount {
		t.Errorf("testnet MinStakeAmount = %d, want less than mainnet %d", testnet.MinStakeAmount, main.MinStakeAmount)
	}
	if testnet.StakeLockSeconds >= main.StakeLockSeconds {
		t.Errorf("testnet StakeLockSeconds = %d, want less than mainnet %d", testnet.StakeLockSeconds, main.StakeLockSeconds)
	}
	if !testnet.Testnet {
		t.Error("DefaultTestnet() should set Testnet = true")
	}
	if err := Validate(testnet); err != nil {
		t.Errorf("DefaultTestnet() should validate: %v", err)
	}
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.ListenPort = 70000
	if err := Validate(cfg); err == nil {
		t.Error("expected error for out-of-range listen_port")
	}
}

func TestValidate_RejectsEmptyDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for empty data_dir")
	}
}

func TestValidate_RejectsEmptyBootstrapPeer(t *testing.T) {
	cfg := Default()
	cfg.BootstrapPeers = []string{""}
	if err := Validate(cfg); err == nil {
		t.Error("expected error for empty bootstrap peer entry")
	}
}

func TestEnsureDataDirs_CreatesTreeAndConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.DataDir = filepath.Join(dir, "node1")

	if err := EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs: %v", err)
	}
	if _, err := os.Stat(cfg.DataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
	if _, err := os.Stat(cfg.LogsDir()); err != nil {
		t.Errorf("logs dir not created: %v", err)
	}
	if _, err := os.Stat(cfg.ConfigFile()); err != nil {
		t.Errorf("default config file not created: %v", err)
	}

	// Idempotent: calling again must not fail or clobber an edited file.
	if err := os.WriteFile(cfg.ConfigFile(), []byte("listen_port = 9999\n"), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	if err := EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs (second call): %v", err)
	}
	values, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["listen_port"] != "9999" {
		t.Error("EnsureDataDirs should not overwrite an existing config file")
	}
}

func TestLoadFile_ParsesKeyValueAndComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grishinium.conf")
	content := "# a comment\nlisten_port = 6000\ntestnet = true\nbootstrap_peers = http://a, http://b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if values["listen_port"] != "6000" {
		t.Errorf("listen_port = %q, want 6000", values["listen_port"])
	}
	if values["testnet"] != "true" {
		t.Errorf("testnet = %q, want true", values["testnet"])
	}
}

func TestLoadFile_MissingFileReturnsEmpty(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("LoadFile on missing file should not error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty map, got %v", values)
	}
}

func TestApplyFileConfig_AppliesRecognizedKeys(t *testing.T) {
	cfg := Default()
	values := map[string]string{
		"listen_port":            "7000",
		"testnet":                "true",
		"bootstrap_peers":        "http://a:5000,http://b:5000",
		"min_stake_amount":       "500000000",
		"block_interval_target":  "20",
		"unknown_key_is_ignored": "whatever",
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.ListenPort != 7000 {
		t.Errorf("ListenPort = %d, want 7000", cfg.ListenPort)
	}
	if !cfg.Testnet {
		t.Error("Testnet should be true")
	}
	if len(cfg.BootstrapPeers) != 2 {
		t.Errorf("BootstrapPeers = %v, want 2 entries", cfg.BootstrapPeers)
	}
	if cfg.MinStakeAmount != 500000000 {
		t.Errorf("MinStakeAmount = %d, want 500000000", cfg.MinStakeAmount)
	}
	if cfg.BlockIntervalTarget != 20 {
		t.Errorf("BlockIntervalTarget = %d, want 20", cfg.BlockIntervalTarget)
	}
}

func TestApplyFlags_PortOnlyWhenSet(t *testing.T) {
	cfg := Default()
	original := cfg.ListenPort

	f := &Flags{Port: 1234, SetPort: false}
	ApplyFlags(cfg, f)
	if cfg.ListenPort != original {
		t.Errorf("ListenPort changed without SetPort: got %d, want %d", cfg.ListenPort, original)
	}

	f.SetPort = true
	ApplyFlags(cfg, f)
	if cfg.ListenPort != 1234 {
		t.Errorf("ListenPort = %d, want 1234", cfg.ListenPort)
	}
}

func TestApplyFlags_PeersAppend(t *testing.T) {
	cfg := Default()
	cfg.BootstrapPeers = []string{"http://existing:5000"}

	f := &Flags{Peers: stringListFlag{"http://new1:5000", "http://new2:5000"}}
	ApplyFlags(cfg, f)

	if len(cfg.BootstrapPeers) != 3 {
		t.Errorf("BootstrapPeers = %v, want 3 entries", cfg.BootstrapPeers)
	}
}
