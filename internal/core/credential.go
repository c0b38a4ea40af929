package core

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IsBlankCredential reports whether the credential is empty or all-whitespace.
// Blank credentials must never reach the network.
func IsBlankCredential(credential string) bool {
	return strings.TrimSpace(credential) == ""
}

// Fingerprint returns a short stable identifier for a credential, used as the
// cache/history key so the credential itself is never stored or logged.
func Fingerprint(credential string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(credential))
}

// MaskCredential elides the middle of a credential for display, keeping the
// first three and last two characters. Short keys keep only their first and
// last character.
func MaskCredential(credential string) string {
	if credential == "" {
		return ""
	}
	if len(credential) <= 6 {
		if len(credential) <= 2 {
			return strings.Repeat("*", len(credential))
		}
		return credential[:1] + strings.Repeat("*", len(credential)-2) + credential[len(credential)-1:]
	}
	return credential[:3] + "…" + credential[len(credential)-2:]
}
