// Package wallet holds a party's Ed25519 identity and signs transport
// messages.
//
// An identity is the unpadded base64url encoding of the public key. A
// signature covers a BLAKE3 keyed digest of the message's CBOR Core
// Deterministic encoding with the Signature field left out, so any
// field change invalidates it.
package wallet
