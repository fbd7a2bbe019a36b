package prefs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultColor is the trail color until the user picks one.
const DefaultColor = "#FF3B3B"

// ErrInvalidColor is returned for anything that is not #RRGGBB.
var ErrInvalidColor = errors.New("invalid color")

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var presets = []string{"#FF3B3B", "#1E90FF", "#2ECC71", "#F39C12", "#9B59B6", "#ECF0F1", "#34495E"}

// Presets returns the offered palette.
func Presets() []string {
	return append([]string(nil), presets...)
}

// NormalizeColor validates a #RRGGBB color and returns it upper-cased.
func NormalizeColor(s string) (string, error) {
	if !hexColor.MatchString(s) {
		return "", fmt.Errorf("%w: %q, want #RRGGBB", ErrInvalidColor, s)
	}
	return strings.ToUpper(s), nil
}

// IsPreset reports whether color is one of the presets.
func IsPreset(color string) bool {
	for _, p := range presets {
		if strings.EqualFold(p, color) {
			return true
		}
	}
	return false
}
