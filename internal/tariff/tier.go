// Package tariff holds the fixed subscription policy: the tier catalogue and
// its rank order, training modes of the base tier, prices, proration quotes
// and the checkout payload codec. Everything here is pure and clock-injected.
package tariff

import (
	"strings"
	"time"
)

// Tier is the stored subscription code. The zero value is "no tier".
type Tier string

const (
	None    Tier = ""
	Base    Tier = "base"
	Optimal Tier = "optimal"
	Maximum Tier = "maximum"
)

// Period is the validity of every purchase.
const Period = 30 * 24 * time.Hour

// PeriodDays is Period expressed in days.
const PeriodDays = 30

// legacyOptimalName was the display name of the optimal tier before it was renamed.
const legacyOptimalName = "Выгодный"

var tierNames = map[Tier]string{
	Base:    "Базовый",
	Optimal: "Оптимальный",
	Maximum: "Максимум",
}

// Tiers lists purchasable tiers in ascending rank.
var Tiers = []Tier{Base, Optimal, Maximum}

func (t Tier) Rank() int {
	switch t {
	case Base:
		return 1
	case Optimal:
		return 2
	case Maximum:
		return 3
	default:
		return 0
	}
}

func (t Tier) Valid() bool { return t.Rank() > 0 }

// Name is the user-facing tier name.
func (t Tier) Name() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "Без тарифа"
}

// RequiresMode reports whether purchase needs a training mode selection.
func (t Tier) RequiresMode() bool { return t == Base }

// HasCuratorChat reports whether the tier includes a chat with a human curator.
func (t Tier) HasCuratorChat() bool { return t == Optimal || t == Maximum }

// ParseTier accepts codes, display names (including the legacy optimal name)
// and loose substrings. Unknown input yields None.
func ParseTier(value string) Tier {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return None
	}
	switch {
	case raw == string(Base) || strings.Contains(raw, "баз"):
		return Base
	case raw == string(Optimal) || strings.Contains(raw, "оптим") || raw == strings.ToLower(legacyOptimalName):
		return Optimal
	case raw == string(Maximum) || strings.Contains(raw, "макс"):
		return Maximum
	}
	return None
}

// Mode is the training mode sub-selection of the base tier.
type Mode string

const (
	ModeNone     Mode = ""
	ModeGym      Mode = "gym"
	ModeCrossfit Mode = "crossfit"
)

var modeNames = map[Mode]string{
	ModeGym:      "Зал",
	ModeCrossfit: "Кроссфит",
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) Name() string { return modeNames[m] }

// ParseMode returns ModeNone for anything that is not a recognized mode.
func ParseMode(value string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(value)))
	if m.Valid() {
		return m
	}
	return ModeNone
}

// Prices maps tiers to whole currency units.
type Prices map[Tier]int

func DefaultPrices() Prices {
	return Prices{Base: 1000, Optimal: 5000, Maximum: 15000}
}

func (p Prices) Of(t Tier) int { return p[t] }
