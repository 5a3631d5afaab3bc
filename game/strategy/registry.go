package strategy

import (
	"encoding"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

// ErrUnknownStrategy is returned when a name is not registered
var ErrUnknownStrategy = errors.New("unknown strategy")

// Options parameterize a controller at construction time
type Options struct {
	Seed   int64           `json:"seed,omitempty"`
	Script []engine.Action `json:"script,omitempty"`
	Loop   bool            `json:"loop,omitempty"`
}

// Info describes a registered strategy
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type entry struct {
	info Info
	new  func(Options) engine.Controller
}

var registry = map[string]entry{
	"idle": {
		Info{"idle", "never acts"},
		func(Options) engine.Controller { return engine.Idle },
	},
	"scripted": {
		Info{"scripted", "replays a fixed list of actions, then idles (or loops)"},
		func(o Options) engine.Controller { return NewScripted(o.Script, o.Loop) },
	},
	"manual": {
		Info{"manual", "plays actions queued by an external caller, idles when the queue is empty"},
		func(Options) engine.Controller { return NewManual() },
	},
	"random": {
		Info{"random", "picks a uniformly random action from a seeded source"},
		func(o Options) engine.Controller { return NewRandom(o.Seed) },
	},
	"sniper": {
		Info{"sniper", "turns toward the opponent and fires along clear lines"},
		func(Options) engine.Controller { return NewSniper() },
	},
	"evasive": {
		Info{"evasive", "steps out of incoming shell paths, otherwise plays sniper"},
		func(Options) engine.Controller { return NewEvasive() },
	},
	"hunter": {
		Info{"hunter", "dodges, then path-finds to a firing position and shoots"},
		func(Options) engine.Controller { return NewHunter() },
	},
}

// New builds a fresh controller by strategy name
func New(name string, opts Options) (engine.Controller, error) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return e.new(opts), nil
}

// Names lists the registered strategy names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List describes every registered strategy in sorted order
func List() []Info {
	infos := make([]Info, 0, len(registry))
	for _, name := range Names() {
		infos = append(infos, registry[name].info)
	}
	return infos
}

// Exists reports whether name is registered
func Exists(name string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// SaveState returns the progress of a controller that keeps any, nil otherwise
func SaveState(c engine.Controller) ([]byte, error) {
	m, ok := c.(encoding.BinaryMarshaler)
	if !ok {
		return nil, nil
	}
	return m.MarshalBinary()
}

// RestoreState applies progress saved by SaveState to a fresh controller
func RestoreState(c engine.Controller, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	u, ok := c.(encoding.BinaryUnmarshaler)
	if !ok {
		return fmt.Errorf("controller %T keeps no state", c)
	}
	return u.UnmarshalBinary(data)
}
