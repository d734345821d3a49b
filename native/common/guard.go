package common

import (
	"errors"
	"fmt"
	"strings"
)

var ErrModulePaused = errors.New("module paused")

// Module names accepted by the pause guard.
const (
	ModuleRegistry = "registry"
	ModuleRental   = "rental"
	ModuleEscrow   = "escrow"
)

type PauseView interface {
	IsPaused(module string) bool
}

// Pauses is a fixed set of paused modules, usually loaded from configuration.
type Pauses map[string]bool

// NewPauses builds a pause set from module names. Unknown names are rejected
// so that a typo in configuration does not silently leave a module running.
func NewPauses(modules ...string) (Pauses, error) {
	out := make(Pauses, len(modules))
	for _, raw := range modules {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case ModuleRegistry, ModuleRental, ModuleEscrow:
			out[name] = true
		default:
			return nil, fmt.Errorf("unknown module %q", raw)
		}
	}
	return out, nil
}

// IsPaused implements PauseView.
func (p Pauses) IsPaused(module string) bool { return p[module] }

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}
