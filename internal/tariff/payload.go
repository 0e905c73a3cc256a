package tariff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	payloadPrefix = "tariff"
	payloadSep    = ":"
	noMode        = "-"
)

// Payload is the opaque checkout token round-tripped by the payment provider.
// The nonce only keeps payloads distinct; it is not a security token.
type Payload struct {
	Tier   Tier
	Mode   Mode
	UserID int64
	Nonce  string
}

// NewPayload builds a payload with a fresh nonce.
func NewPayload(tier Tier, mode Mode, userID int64) Payload {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return Payload{Tier: tier, Mode: mode, UserID: userID, Nonce: nonce}
}

// Encode renders tariff:<tier>:<mode|->:<user>:<nonce>, well under Telegram's 128 byte limit.
func (p Payload) Encode() string {
	mode := string(p.Mode)
	if mode == "" {
		mode = noMode
	}
	return strings.Join([]string{
		payloadPrefix,
		string(p.Tier),
		mode,
		strconv.FormatInt(p.UserID, 10),
		p.Nonce,
	}, payloadSep)
}

// DecodePayload parses raw. A malformed payload or unknown tier falls back to
// the base tier and reports an error alongside the fallback so the caller can
// log it; the returned Payload is always usable.
func DecodePayload(raw string) (Payload, error) {
	parts := strings.Split(strings.TrimSpace(raw), payloadSep)
	if len(parts) != 5 || parts[0] != payloadPrefix {
		return Payload{Tier: Base}, fmt.Errorf("malformed checkout payload %q", raw)
	}

	p := Payload{Tier: ParseTier(parts[1]), Mode: ParseMode(parts[2]), Nonce: parts[4]}
	uid, uidErr := strconv.ParseInt(parts[3], 10, 64)
	if uidErr == nil {
		p.UserID = uid
	}
	if !p.Tier.Valid() {
		p.Tier = Base
		return p, fmt.Errorf("unknown tier %q in checkout payload", parts[1])
	}
	if uidErr != nil {
		return p, fmt.Errorf("invalid user id in checkout payload: %w", uidErr)
	}
	return p, nil
}
