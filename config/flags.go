package config

import (
	"flag"
	"fmt"
	"os"
)

// Flags holds parsed command-line flags (spec.md §6 CLI surface).
type Flags struct {
	Port    int
	DataDir string
	Testnet bool
	Peers   stringListFlag

	SetPort    bool
	SetTestnet bool
}

// stringListFlag accumulates repeated --peer occurrences.
type stringListFlag []string

func (s *stringListFlag) String() string {
	return fmt.Sprint([]string(*s))
}

func (s *stringListFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// ParseFlags parses command-line flags.
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("grishiniumd", flag.ContinueOnError)

	fs.IntVar(&f.Port, "port", defaultListenPort, "Listen port")
	fs.StringVar(&f.DataDir, "data-dir", "", "Data directory path")
	fs.BoolVar(&f.Testnet, "testnet", false, "Use testnet parameters (testnet addresses, faster block cadence)")
	fs.Var(&f.Peers, "peer", "Bootstrap peer URL (repeatable)")

	fs.Usage = func() { printUsage() }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	f.SetPort = isFlagSet(fs, "port")
	f.SetTestnet = isFlagSet(fs, "testnet")

	return f
}

// ApplyFlags applies command-line flags to a Config, overriding a
// config-file value only when the flag was explicitly set.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.SetPort {
		cfg.ListenPort = f.Port
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.SetTestnet {
		cfg.Testnet = f.Testnet
	}
	if len(f.Peers) > 0 {
		cfg.BootstrapPeers = append(cfg.BootstrapPeers, []string(f.Peers)...)
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `grishiniumd - proof-of-stake replicated ledger node

Usage:
  grishiniumd [options]
  grishiniumd --help

Options:
  --port <u16>       Listen port (default: 5000)
  --data-dir <path>  Data directory (default: ./data)
  --testnet          Use testnet parameters (testnet addresses, faster block cadence)
  --peer <url>       Bootstrap peer URL (repeatable)

Exit codes:
  0  clean shutdown
  1  fatal startup error (storage corrupt, port in use)
  2  runtime panic in the main loop
`
	fmt.Print(usage)
}

// Load loads configuration with the following precedence:
// 1. Default values (testnet-aware)
// 2. Config file
// 3. Command-line flags (highest precedence)
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	cfg := Default()
	if flags.Testnet {
		cfg = DefaultTestnet()
	}
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	fileValues, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)

	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}
