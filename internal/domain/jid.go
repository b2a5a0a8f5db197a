package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidJID is returned when a platform address does not match the
// expected "<digits>@<domain>" shape.
var ErrInvalidJID = errors.New("invalid jid")

// ParseJID extracts the numeric sender identity from a platform address of
// the form "<digits>@<domain>" (e.g. "5511999@s.whatsapp.net" → "5511999").
//
// It returns ErrInvalidJID (wrapped with the offending value) when the '@'
// delimiter is absent, the prefix is empty, or the prefix contains
// non-digit characters.
func ParseJID(jid string) (string, error) {
	at := strings.IndexByte(jid, '@')
	if at < 0 {
		return "", fmt.Errorf("%w: missing '@' in %q", ErrInvalidJID, jid)
	}
	prefix := jid[:at]
	if prefix == "" {
		return "", fmt.Errorf("%w: empty number in %q", ErrInvalidJID, jid)
	}
	for i := 0; i < len(prefix); i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return "", fmt.Errorf("%w: non-numeric prefix in %q", ErrInvalidJID, jid)
		}
	}
	return prefix, nil
}
