// Package tiers holds the static donation tier catalog and the parser that
// turns a tier's display amount into minor currency units.
package tiers

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"wisdom-empire/internal/models"
)

//go:embed tiers.yaml
var catalogYAML []byte

// ErrInvalidAmount is returned when a tier amount cannot be parsed into a
// positive number of cents.
var ErrInvalidAmount = errors.New("invalid tier amount")

var catalog = mustLoad(catalogYAML)

func mustLoad(raw []byte) []models.Tier {
	tiers, err := Load(raw)
	if err != nil {
		panic(fmt.Sprintf("tiers: embedded catalog: %v", err))
	}
	return tiers
}

// Load decodes a YAML tier list and checks every amount parses.
func Load(raw []byte) ([]models.Tier, error) {
	var tiers []models.Tier
	if err := yaml.Unmarshal(raw, &tiers); err != nil {
		return nil, fmt.Errorf("decode tiers: %w", err)
	}
	seen := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		if t.Name == "" {
			return nil, errors.New("tier without a name")
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate tier %q", t.Name)
		}
		seen[t.Name] = true
		if _, err := ParseAmountCents(t.Amount); err != nil {
			return nil, fmt.Errorf("tier %q: %w", t.Name, err)
		}
	}
	return tiers, nil
}

// All returns a copy of the catalog in display order.
func All() []models.Tier {
	out := make([]models.Tier, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a tier by name.
func Lookup(name string) (models.Tier, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return models.Tier{}, false
}

// ParseAmountCents converts a display amount such as "$40/month" or "$100+"
// into cents. A leading currency symbol, a "/month" suffix and a trailing "+"
// are stripped and the remaining digits are read as whole major units.
func ParseAmountCents(display string) (int64, error) {
	s := strings.TrimSpace(display)
	if r, size := utf8.DecodeRuneInString(s); size > 0 && !unicode.IsDigit(r) {
		s = s[size:]
	}
	s = strings.TrimSuffix(s, "/month")
	s = strings.TrimSuffix(s, "+")

	if s == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
		}
	}
	units, err := strconv.ParseInt(s, 10, 64)
	if err != nil || units <= 0 || units > math.MaxInt64/100 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, display)
	}
	return units * 100, nil
}
