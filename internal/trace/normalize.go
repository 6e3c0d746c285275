package trace

import "golang.org/x/text/unicode/norm"

// NormalizeName canonicalizes an event or session name to Unicode NFC
// so that names which render identically compare equal regardless of
// which byte sequence the producing SDK emitted.
func NormalizeName(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
