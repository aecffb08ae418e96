// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"fmt"
	"strings"
)

// ============================================================================
// TIER TYPE
// ============================================================================

// Tier is the compute/cost/privacy class a model belongs to.
// Ordered by cost: LocalFast < LocalHeavy < Cloud.
type Tier int

const (
	// TierLocalFast is a small local model (free, low latency).
	TierLocalFast Tier = iota
	// TierLocalHeavy is a large local model (free, slower).
	TierLocalHeavy
	// TierCloud is a paid remote model.
	TierCloud
)

// AllTiers lists every tier in default priority order.
var AllTiers = []Tier{TierLocalFast, TierLocalHeavy, TierCloud}

// String returns the canonical identifier used in config files and JSON.
func (t Tier) String() string {
	switch t {
	case TierLocalFast:
		return "local-fast"
	case TierLocalHeavy:
		return "local-heavy"
	case TierCloud:
		return "cloud"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared tiers.
func (t Tier) Valid() bool {
	return t >= TierLocalFast && t <= TierCloud
}

// IsLocal returns true for tiers that never leave the machine.
func (t Tier) IsLocal() bool {
	return t == TierLocalFast || t == TierLocalHeavy
}

// Order returns the numeric order of the tier for comparison.
// Lower values mean cheaper/faster tiers.
func (t Tier) Order() int {
	return int(t)
}

// Lower returns the tiers strictly below t, nearest first.
// Cloud -> [LocalHeavy, LocalFast], LocalHeavy -> [LocalFast].
func (t Tier) Lower() []Tier {
	var out []Tier
	for o := t - 1; o >= TierLocalFast; o-- {
		out = append(out, o)
	}
	return out
}

// tierAliases maps user-facing names to canonical tiers.
var tierAliases = map[string]Tier{
	"local-fast":  TierLocalFast,
	"local_fast":  TierLocalFast,
	"fast":        TierLocalFast,
	"local":       TierLocalFast,
	"small":       TierLocalFast,
	"local-heavy": TierLocalHeavy,
	"local_heavy": TierLocalHeavy,
	"heavy":       TierLocalHeavy,
	"large":       TierLocalHeavy,
	"big":         TierLocalHeavy,
	"cloud":       TierCloud,
	"remote":      TierCloud,
	"premium":     TierCloud,
	"api":         TierCloud,
}

// ParseTier converts a tier name or alias to a Tier. Case-insensitive.
func ParseTier(s string) (Tier, error) {
	if t, ok := tierAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown tier %q (valid: local-fast, local-heavy, cloud)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ============================================================================
// PRIVACY CLASS
// ============================================================================

// Privacy describes where a model processes data.
type Privacy int

const (
	// PrivacyLocal means prompts never leave the host.
	PrivacyLocal Privacy = iota
	// PrivacyRemote means prompts are sent to a third party.
	PrivacyRemote
)

func (p Privacy) String() string {
	if p == PrivacyLocal {
		return "local"
	}
	return "remote"
}

// MarshalText implements encoding.TextMarshaler.
func (p Privacy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Privacy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "local":
		*p = PrivacyLocal
	case "remote":
		*p = PrivacyRemote
	default:
		return fmt.Errorf("unknown privacy class %q (valid: local, remote)", string(text))
	}
	return nil
}
