package services

import (
	"strings"
	"unicode"
)

// NormalizeChatID turns a raw contact string into the chatId format the
// Green API expects. Inputs that already carry an "@" domain marker
// (e.g. "123@c.us", "123@g.us") are returned as-is; anything else is reduced
// to its digits and suffixed with "@c.us".
//
// Both the send path and the webhook path resolve conversations through this
// function, so inbound and outbound traffic agree on contact identity.
func NormalizeChatID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidIdentifier
	}

	if strings.Contains(raw, "@") {
		return raw, nil
	}

	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return "", ErrInvalidIdentifier
	}

	return digits.String() + "@c.us", nil
}
