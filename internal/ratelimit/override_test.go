package ratelimit

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeOverrides(t *testing.T) {
	raw := map[string]map[string]any{
		"login":  {"window": "30m", "max": 10},
		"health": {"disabled": true},
	}
	overrides, err := DecodeOverrides(raw)
	if err != nil {
		t.Fatalf("DecodeOverrides: %v", err)
	}
	if ov := overrides["login"]; ov.Window != 30*time.Minute || ov.Max != 10 {
		t.Errorf("login override = %+v", ov)
	}
	if !overrides["health"].Disabled {
		t.Error("health override not disabled")
	}
}

func TestDecodeOverridesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]map[string]any
	}{
		{"unknown key", map[string]map[string]any{"login": {"windw": "30m"}}},
		{"bad duration", map[string]map[string]any{"login": {"window": "half an hour"}}},
		{"negative max", map[string]map[string]any{"login": {"max": -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOverrides(tt.raw); err == nil {
				t.Error("DecodeOverrides accepted bad input")
			}
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	overrides := map[string]Override{
		"login":    {Window: 30 * time.Minute, Max: 10},
		"critical": {Disabled: true},
	}
	tiers, err := ApplyOverrides(DefaultTiers(), overrides)
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}

	var login, critical Tier
	for _, tier := range tiers {
		switch tier.Name {
		case "login":
			login = tier
		case "critical":
			critical = tier
		}
	}
	if login.Windows[0].Span != 30*time.Minute || login.Windows[0].Max != 10 {
		t.Errorf("login tier = %+v", login.Windows)
	}
	if !login.SkipSuccessful {
		t.Error("override clobbered the counting policy")
	}
	if !critical.Disabled {
		t.Error("critical tier not disabled")
	}

	// Package defaults stay untouched.
	if TierLogin.Windows[0].Span != 15*time.Minute {
		t.Errorf("TierLogin mutated: %+v", TierLogin.Windows)
	}
}

func TestApplyOverridesRejectsBadTargets(t *testing.T) {
	if _, err := ApplyOverrides(DefaultTiers(), map[string]Override{"nope": {Max: 1}}); err == nil {
		t.Error("unknown tier accepted")
	}
	_, err := ApplyOverrides(DefaultTiers(), map[string]Override{"critical": {Max: 50}})
	if err == nil || !strings.Contains(err.Error(), "composite") {
		t.Errorf("composite window override = %v, want composite error", err)
	}
}
