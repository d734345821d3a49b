// core/genesis/spec.go
package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rentchain/core/types"
	"rentchain/crypto"
)

type GenesisSpec struct {
	GenesisTime string            `yaml:"genesisTime"`
	ChainID     *uint64           `yaml:"chainId,omitempty"`
	Alloc       map[string]string `yaml:"alloc"` // addr -> amount

	genesisTimestamp time.Time
	allocations      []Allocation
}

// Allocation is one validated genesis balance.
type Allocation struct {
	Address types.Address
	Amount  *big.Int
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML (or JSON) genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) GenesisTimestamp() time.Time { return s.genesisTimestamp }

func (s *GenesisSpec) ChainIDValue() (uint64, bool) {
	if s.ChainID != nil {
		return *s.ChainID, true
	}
	return 0, false
}

// Allocations returns the balances ordered by address.
func (s *GenesisSpec) Allocations() []Allocation {
	out := make([]Allocation, len(s.allocations))
	for i, a := range s.allocations {
		out[i] = Allocation{Address: a.Address, Amount: new(big.Int).Set(a.Amount)}
	}
	return out
}

func (s *GenesisSpec) validate() error {
	parsedTime, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = parsedTime

	seen := make(map[types.Address]string, len(s.Alloc))
	allocations := make([]Allocation, 0, len(s.Alloc))
	for rawAddr, rawAmount := range s.Alloc {
		addr, err := crypto.ParseAddress(rawAddr)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		if prev, dup := seen[addr]; dup {
			return fmt.Errorf("alloc %q duplicates %q", rawAddr, prev)
		}
		seen[addr] = rawAddr
		amount, err := parseAmountString(rawAmount)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		if amount.Sign() == 0 {
			continue
		}
		allocations = append(allocations, Allocation{Address: addr, Amount: amount})
	}
	sort.Slice(allocations, func(i, j int) bool {
		return bytes.Compare(allocations[i].Address[:], allocations[j].Address[:]) < 0
	})
	s.allocations = allocations
	return nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
