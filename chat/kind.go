package chat

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// PairKind is the closed set of supported conversation pairings.
type PairKind uint8

const (
	// KindAllyPairing is an entrepreneur chatting with an assigned ally.
	KindAllyPairing PairKind = iota + 1
	// KindPeerPairing is an entrepreneur chatting with another entrepreneur.
	KindPeerPairing
)

// ParseKind maps the wire representation to a PairKind.
func ParseKind(s string) (PairKind, error) {
	switch s {
	case "ally":
		return KindAllyPairing, nil
	case "peer":
		return KindPeerPairing, nil
	default:
		return 0, ErrInvalidKind
	}
}

func (k PairKind) String() string {
	switch k {
	case KindAllyPairing:
		return "ally"
	case KindPeerPairing:
		return "peer"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the supported pairings.
func (k PairKind) Valid() bool {
	return k == KindAllyPairing || k == KindPeerPairing
}

// NormalizePair orders two participant IDs bytewise so the pair is
// unordered: NormalizePair(a, b) == NormalizePair(b, a).
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// PairKey builds the unique conversation key for a kind and an unordered
// participant pair. The key is what the uniqueness constraint hangs on.
func PairKey(kind PairKind, a, b uuid.UUID) string {
	lo, hi := NormalizePair(a, b)
	return kind.String() + ":" + lo.String() + ":" + hi.String()
}
