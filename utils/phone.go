package utils

import "strings"

// NormalizePhone converts a phone number to the canonical form used as the
// per-tenant dedup key: digits only, no leading zeros from international
// prefixes. "+55 (11) 91234-5678", "5511912345678" and "00551191234-5678"
// all normalize to the same value.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "00")
	return digits
}
