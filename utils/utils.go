// File: utils/utils.go
package utils

import "strings"

// SanitizeName normalizes a client-supplied display name: whitespace is
// trimmed, the result is truncated to MaxNameLength runes, and C0 control
// characters plus DEL are stripped. An empty result becomes "Player".
func SanitizeName(raw string) string {
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) > MaxNameLength {
		runes = runes[:MaxNameLength]
	}
	var b strings.Builder
	for _, r := range runes {
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "" {
		return "Player"
	}
	return name
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
