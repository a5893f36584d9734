// Package identity canonicalizes phone-number style identifiers so that the
// same counterpart reached over different transports ("whatsapp:+1 555…",
// "(555) 123-4567", "tel:5551234567") maps to one conversation key.
package identity

import (
	"strings"
	"unicode"
)

// KeyLength is the number of trailing digits that form a conversation key.
// Matching on the national-number suffix lets "+1 555 123 4567" and
// "5551234567" collapse into one key.
const KeyLength = 10

// transport schemes stripped before digit extraction.
var schemes = []string{"whatsapp:", "sms:", "mms:", "tel:", "client:", "sip:"}

// Identity is a normalized identifier.
type Identity struct {
	// Raw is the input with surrounding whitespace and scheme removed.
	Raw string
	// Digits holds every decimal digit of Raw, in order.
	Digits string
	// Key is the last KeyLength digits, or empty when Digits is too short.
	Key string
}

// Valid reports whether the identity has a usable conversation key.
func (i Identity) Valid() bool { return i.Key != "" }

// Normalize parses raw into an Identity. It never fails; inputs without
// enough digits produce an Identity with an empty Key.
func Normalize(raw string) Identity {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, p := range schemes {
		if strings.HasPrefix(lower, p) {
			s = s[len(p):]
			break
		}
	}
	// sip:+15551234567@edge.example.com
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	s = strings.TrimSpace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	id := Identity{Raw: s, Digits: digits}
	if len(digits) >= KeyLength {
		id.Key = digits[len(digits)-KeyLength:]
	}
	return id
}

// Key returns the conversation key of raw, or "" when it has none.
func Key(raw string) string {
	return Normalize(raw).Key
}

// Same reports whether a and b refer to the same counterpart. Identifiers
// without a key never match, not even each other.
func Same(a, b string) bool {
	ka, kb := Key(a), Key(b)
	return ka != "" && ka == kb
}
