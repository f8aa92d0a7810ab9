package service

import (
	"strconv"
	"strings"
)

// VoterSession carries the per-request voter identity through the voting and
// view paths. It is built once at the transport boundary and passed
// explicitly; nothing in the core reads ambient per-browser state.
type VoterSession struct {
	Fingerprint string
}

// Fingerprint derives the vote-dedup key from whatever stable browser
// attributes the caller can provide (user agent, language, screen metrics,
// client address). It is the same shift-and-add hash the web client uses, so
// a client-computed fingerprint and a server-derived one agree on format.
// Collisions are acceptable; this is best-effort dedup, not a security
// boundary.
func Fingerprint(parts ...string) string {
	joined := strings.Join(parts, "")

	var hash int32
	for _, c := range joined {
		hash = (hash << 5) - hash + int32(c)
	}

	v := int64(hash)
	if v < 0 {
		v = -v
	}
	return "user_" + strconv.FormatInt(v, 36)
}
