package event

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// toggleDomainKey is the ASCII domain name zero-padded to the 32 bytes
// BLAKE3 keyed mode requires.
var toggleDomainKey = [32]byte{
	'p', 'e', 'r', 'm', 'a', 'h', 'u', 'b', '.', 'e', 'v', 'e', 'n', 't', '.',
	't', 'o', 'g', 'g', 'l', 'e', '.', 'v', '1',
}

// ToggleKey identifies the single active slot a toggle event occupies:
// (from, kind, e, p). Two events with equal keys toggle each other.
func (e Event) ToggleKey() string {
	data, err := MarshalCanonical([]any{e.From, e.Kind, e.E, e.P})
	if err != nil {
		// Strings only; cannot fail.
		panic("event: toggle key encoding failed: " + err.Error())
	}
	return hex.EncodeToString(keyedHash(toggleDomainKey, data))
}

func keyedHash(key [32]byte, data []byte) []byte {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("event: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	return hasher.Sum(nil)
}
