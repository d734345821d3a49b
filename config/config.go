package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"rentchain/core/types"
	"rentchain/crypto"
)

type Config struct {
	ChainID        uint64   `toml:"ChainID"`
	Environment    string   `toml:"Environment"`
	RPCAddress     string   `toml:"RPCAddress"`
	MetricsAddress string   `toml:"MetricsAddress"`
	DataDir        string   `toml:"DataDir"`
	GenesisFile    string   `toml:"GenesisFile"`
	PausedModules  []string `toml:"PausedModules"`

	Log       Log       `toml:"log"`
	Programs  Programs  `toml:"programs"`
	RPC       RPC       `toml:"rpc"`
	Indexer   Indexer   `toml:"indexer"`
	Telemetry Telemetry `toml:"telemetry"`
}

// ProgramIDs are the parsed component identities.
type ProgramIDs struct {
	Directory types.Address
	Tracker   types.Address
	Custody   types.Address
}

// DefaultProgramID returns the identity a fresh configuration assigns to the
// named component.
func DefaultProgramID(name string) types.Address {
	var addr types.Address
	copy(addr[:], ethcrypto.Keccak256([]byte("rentchain/program/" + name))[12:])
	return addr
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration createDefault persists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ChainID == 0 {
		c.ChainID = 1
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.RPCAddress == "" {
		c.RPCAddress = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./rent-data"
	}
	if c.PausedModules == nil {
		c.PausedModules = []string{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File != "" && c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Programs.Directory == "" {
		c.Programs.Directory = crypto.MustEncodeAddress(DefaultProgramID("registry"))
	}
	if c.Programs.Tracker == "" {
		c.Programs.Tracker = crypto.MustEncodeAddress(DefaultProgramID("rental"))
	}
	if c.Programs.Custody == "" {
		c.Programs.Custody = crypto.MustEncodeAddress(DefaultProgramID("escrow"))
	}
	if c.RPC.JWTIssuer == "" {
		c.RPC.JWTIssuer = "rentchain"
	}
	if c.RPC.RateLimitPerSecond == 0 {
		c.RPC.RateLimitPerSecond = 20
	}
	if c.RPC.RateLimitBurst == 0 {
		c.RPC.RateLimitBurst = 40
	}
	if c.RPC.ReadHeaderTimeout == 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.RPC.ReadTimeout == 0 {
		c.RPC.ReadTimeout = 15
	}
	if c.RPC.WriteTimeout == 0 {
		c.RPC.WriteTimeout = 15
	}
	if c.RPC.IdleTimeout == 0 {
		c.RPC.IdleTimeout = 60
	}
	if c.RPC.MaxRequestBodyBytes == 0 {
		c.RPC.MaxRequestBodyBytes = 1 << 20
	}
	if c.RPC.TrustedProxies == nil {
		c.RPC.TrustedProxies = []string{}
	}
	if c.Indexer.DSN == "" {
		c.Indexer.DSN = filepath.Join(c.DataDir, "events.db")
	}
}

// ProgramIDs parses the configured component identities.
func (c *Config) ProgramIDs() (ProgramIDs, error) {
	var ids ProgramIDs
	var err error
	if ids.Directory, err = crypto.ParseAddress(c.Programs.Directory); err != nil {
		return ids, fmt.Errorf("programs.Directory: %w", err)
	}
	if ids.Tracker, err = crypto.ParseAddress(c.Programs.Tracker); err != nil {
		return ids, fmt.Errorf("programs.Tracker: %w", err)
	}
	if ids.Custody, err = crypto.ParseAddress(c.Programs.Custody); err != nil {
		return ids, fmt.Errorf("programs.Custody: %w", err)
	}
	return ids, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
