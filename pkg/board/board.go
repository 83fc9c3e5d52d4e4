package board

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigcntrl/lampagent/pkg/powerup"
)

//go:embed boards/*.yaml
var boardFS embed.FS

// Board errors.
var (
	// ErrUnknownVariant indicates no variant matches the name or hostname.
	ErrUnknownVariant = errors.New("board unknown")

	// ErrNoSuchPin indicates a header/pin pair outside the wiring table.
	ErrNoSuchPin = errors.New("no such header pin")

	// ErrInvalidVariant indicates an inconsistent wiring table.
	ErrInvalidVariant = errors.New("invalid board variant")
)

// Variant describes one interface board revision.
type Variant struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	HostnameSuffix string   `yaml:"hostname_suffix"`
	Channels       []int    `yaml:"channels"`
	Headers        []Header `yaml:"headers"`
	PowerUp        []Group  `yaml:"power_up"`
	Flicker        []int    `yaml:"flicker"`
}

// Header is one connector: the index of its first pin in Channels and its
// number of signal pins.
type Header struct {
	Name  string `yaml:"name"`
	Start int    `yaml:"start"`
	Pins  int    `yaml:"pins"`
}

// Group is one power-up step.
type Group struct {
	Channels []int `yaml:"channels"`
	DelayMS  int   `yaml:"delay_ms"`
}

// HasChannel reports whether ch is wired on this variant.
func (v *Variant) HasChannel(ch int) bool {
	return slices.Contains(v.Channels, ch)
}

// HeaderChannel translates a 1-based header and pin into a channel.
func (v *Variant) HeaderChannel(header, pin int) (int, error) {
	if header < 1 || header > len(v.Headers) {
		return 0, fmt.Errorf("header %d pin %d: %w", header, pin, ErrNoSuchPin)
	}
	h := v.Headers[header-1]
	if pin < 1 || pin > h.Pins {
		return 0, fmt.Errorf("header %d pin %d: %w", header, pin, ErrNoSuchPin)
	}
	return v.Channels[h.Start+pin-1], nil
}

// PowerUpPlan returns the power-up groups with their delays.
func (v *Variant) PowerUpPlan() powerup.Plan {
	plan := make(powerup.Plan, 0, len(v.PowerUp))
	for _, g := range v.PowerUp {
		plan = append(plan, powerup.Group{
			Channels: slices.Clone(g.Channels),
			Delay:    time.Duration(g.DelayMS) * time.Millisecond,
		})
	}
	return plan
}

// Validate checks that every referenced channel is wired and every header
// fits inside the channel list.
func (v *Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVariant)
	}
	if len(v.Channels) == 0 {
		return fmt.Errorf("%w: %s has no channels", ErrInvalidVariant, v.Name)
	}
	seen := make(map[int]bool, len(v.Channels))
	for _, ch := range v.Channels {
		if seen[ch] {
			return fmt.Errorf("%w: %s wires channel %d twice", ErrInvalidVariant, v.Name, ch)
		}
		seen[ch] = true
	}
	for i, h := range v.Headers {
		if h.Start < 0 || h.Pins < 1 || h.Start+h.Pins > len(v.Channels) {
			return fmt.Errorf("%w: %s header %d out of range", ErrInvalidVariant, v.Name, i+1)
		}
	}
	for i, g := range v.PowerUp {
		if g.DelayMS < 0 {
			return fmt.Errorf("%w: %s power-up group %d has negative delay", ErrInvalidVariant, v.Name, i)
		}
		for _, ch := range g.Channels {
			if !seen[ch] {
				return fmt.Errorf("%w: %s power-up group %d uses unwired channel %d", ErrInvalidVariant, v.Name, i, ch)
			}
		}
	}
	for _, ch := range v.Flicker {
		if !seen[ch] {
			return fmt.Errorf("%w: %s flickers unwired channel %d", ErrInvalidVariant, v.Name, ch)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Variant)
)

// Load loads an embedded variant by name (e.g. "nth").
func Load(name string) (*Variant, error) {
	cacheMu.RLock()
	if v, ok := cache[name]; ok {
		cacheMu.RUnlock()
		return v, nil
	}
	cacheMu.RUnlock()

	data, err := boardFS.ReadFile("boards/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("variant %q: %w", name, ErrUnknownVariant)
	}

	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing variant %q: %w", name, err)
	}

	cacheMu.Lock()
	cache[name] = v
	cacheMu.Unlock()

	return v, nil
}

// Parse decodes and validates a variant from YAML.
func Parse(data []byte) (*Variant, error) {
	var v Variant
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// LoadFile loads a variant from a YAML file outside the embedded set.
func LoadFile(path string) (*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Available returns the names of all embedded variants, sorted.
func Available() ([]string, error) {
	entries, err := boardFS.ReadDir("boards")
	if err != nil {
		return nil, fmt.Errorf("reading boards directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve picks the variant whose hostname suffix matches hostname.
func Resolve(hostname string) (*Variant, error) {
	names, err := Available()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		v, err := Load(name)
		if err != nil {
			return nil, err
		}
		if v.HostnameSuffix != "" && strings.HasSuffix(hostname, v.HostnameSuffix) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("hostname %q: %w", hostname, ErrUnknownVariant)
}
