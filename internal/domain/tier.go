package domain

import (
	"fmt"
	"strings"
)

// Tier is a customer value tier. The numeric value is its rank.
type Tier int

const (
	TierNew Tier = iota
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
)

var tierNames = [...]string{"New", "Bronze", "Silver", "Gold", "Platinum"}

// AllTiers lists every tier in rank order.
func AllTiers() []Tier {
	return []Tier{TierNew, TierBronze, TierSilver, TierGold, TierPlatinum}
}

func (t Tier) String() string {
	if t.Valid() {
		return tierNames[t]
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// Rank returns the position of the tier in the total order.
func (t Tier) Rank() int {
	return int(t)
}

// Valid reports whether t is a member of the enumeration.
func (t Tier) Valid() bool {
	return t >= TierNew && t <= TierPlatinum
}

// Next returns the tier one rank above t, saturating at Platinum.
func (t Tier) Next() Tier {
	if t >= TierPlatinum {
		return TierPlatinum
	}
	return t + 1
}

// Prev returns the tier one rank below t, saturating at New.
func (t Tier) Prev() Tier {
	if t <= TierNew {
		return TierNew
	}
	return t - 1
}

// ParseTier converts a label such as "gold" or "Gold" into a Tier.
func ParseTier(label string) (Tier, error) {
	label = strings.TrimSpace(label)
	for i, name := range tierNames {
		if strings.EqualFold(name, label) {
			return Tier(i), nil
		}
	}
	return TierNew, fmt.Errorf("unknown tier %q", label)
}

// MarshalText encodes the tier as its label.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier label.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
