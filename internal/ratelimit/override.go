package ratelimit

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Override adjusts one tier from the config file. Zero fields keep the
// built-in value.
type Override struct {
	Window   time.Duration `mapstructure:"window"`
	Max      int           `mapstructure:"max"`
	Disabled bool          `mapstructure:"disabled"`
}

// DecodeOverrides turns the raw config section (tier name → settings map)
// into typed overrides. Window accepts duration strings like "15m" or "1h".
// Unknown setting keys are rejected to catch config typos.
func DecodeOverrides(raw map[string]map[string]any) (map[string]Override, error) {
	overrides := make(map[string]Override, len(raw))
	for name, settings := range raw {
		var ov Override
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
			ErrorUnused: true,
			Result:      &ov,
		})
		if err != nil {
			return nil, fmt.Errorf("ratelimit: decoder for tier %q: %w", name, err)
		}
		if err := decoder.Decode(settings); err != nil {
			return nil, fmt.Errorf("ratelimit: tier %q: %w", name, err)
		}
		if ov.Window < 0 || ov.Max < 0 {
			return nil, fmt.Errorf("ratelimit: tier %q: window and max must not be negative", name)
		}
		overrides[name] = ov
	}
	return overrides, nil
}

// ApplyOverrides returns a copy of tiers with overrides applied by name.
// Overriding an unknown tier is an error, as is changing window/max of a
// composite tier (only Disabled applies there).
func ApplyOverrides(tiers []Tier, overrides map[string]Override) ([]Tier, error) {
	byName := make(map[string]int, len(tiers))
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		// Copy the window slice so overrides never touch the package vars.
		t.Windows = append([]Window(nil), t.Windows...)
		out[i] = t
		byName[t.Name] = i
	}

	for name, ov := range overrides {
		i, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("ratelimit: override for unknown tier %q", name)
		}
		tier := &out[i]
		if ov.Window > 0 || ov.Max > 0 {
			if len(tier.Windows) != 1 {
				return nil, fmt.Errorf("ratelimit: tier %q is composite; only 'disabled' may be overridden", name)
			}
			if ov.Window > 0 {
				tier.Windows[0].Span = ov.Window
			}
			if ov.Max > 0 {
				tier.Windows[0].Max = ov.Max
			}
		}
		tier.Disabled = ov.Disabled
	}
	return out, nil
}
