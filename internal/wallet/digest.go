package wallet

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/dpshade/permahub/internal/transport"
)

// signatureDomainKey is the ASCII domain name zero-padded to the 32 bytes
// BLAKE3 keyed mode requires.
var signatureDomainKey = [32]byte{
	'p', 'e', 'r', 'm', 'a', 'h', 'u', 'b', '.', 'm', 'e', 's', 's', 'a', 'g',
	'e', '.', 's', 'i', 'g', '.', 'v', '1',
}

// encMode is Core Deterministic Encoding (RFC 8949 §4.2): the same
// message always encodes to the same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wallet: CBOR encoder initialization failed: " + err.Error())
	}
}

// signedFields is every Message field except Signature.
type signedFields struct {
	ID     string `cbor:"1,keyasint"`
	Target string `cbor:"2,keyasint"`
	From   string `cbor:"3,keyasint"`
	Action string `cbor:"4,keyasint"`
	Data   []byte `cbor:"5,keyasint,omitempty"`
}

// Digest returns the 32-byte value a message signature covers.
func Digest(m transport.Message) ([]byte, error) {
	payload, err := encMode.Marshal(signedFields{
		ID:     m.ID,
		Target: m.Target,
		From:   m.From,
		Action: m.Action,
		Data:   m.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("wallet: encoding signing payload: %w", err)
	}

	hasher, err := blake3.NewKeyed(signatureDomainKey[:])
	if err != nil {
		return nil, fmt.Errorf("wallet: BLAKE3 keyed hash initialization: %w", err)
	}
	hasher.Write(payload)
	return hasher.Sum(nil), nil
}
