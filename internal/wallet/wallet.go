package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dpshade/permahub/internal/transport"
)

// Errors returned by Verify and ParseIdentity.
var (
	ErrInvalidSignature = errors.New("wallet: invalid signature")
	ErrMissingSignature = errors.New("wallet: message is not signed")
	ErrBadIdentity      = errors.New("wallet: identity is not an Ed25519 public key")
)

var b64 = base64.RawURLEncoding

// Wallet is an Ed25519 keypair.
type Wallet struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// Generate creates a wallet from a random seed.
func Generate() (*Wallet, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating Ed25519 keypair: %w", err)
	}
	return &Wallet{public: public, private: private}, nil
}

// FromSeed derives a wallet from a 32-byte seed.
func FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: seed has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	private := ed25519.NewKeyFromSeed(seed)
	return &Wallet{public: private.Public().(ed25519.PublicKey), private: private}, nil
}

// ID returns the wallet's identity.
func (w *Wallet) ID() string {
	return b64.EncodeToString(w.public)
}

// Sign sets m.From to the wallet identity when empty and fills
// m.Signature. Signing a message from another identity is an error.
func (w *Wallet) Sign(m *transport.Message) error {
	if m.From == "" {
		m.From = w.ID()
	}
	if m.From != w.ID() {
		return fmt.Errorf("wallet: cannot sign message from %s", m.From)
	}
	digest, err := Digest(*m)
	if err != nil {
		return err
	}
	m.Signature = b64.EncodeToString(ed25519.Sign(w.private, digest))
	return nil
}

// ParseIdentity decodes an identity into a public key.
func ParseIdentity(id string) (ed25519.PublicKey, error) {
	raw, err := b64.DecodeString(id)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %q", ErrBadIdentity, id)
	}
	return ed25519.PublicKey(raw), nil
}

// Verify checks that m was signed by the identity in m.From.
func Verify(m transport.Message) error {
	if m.Signature == "" {
		return ErrMissingSignature
	}
	public, err := ParseIdentity(m.From)
	if err != nil {
		return err
	}
	sig, err := b64.DecodeString(m.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	digest, err := Digest(m)
	if err != nil {
		return err
	}
	if !ed25519.Verify(public, digest, sig) {
		return ErrInvalidSignature
	}
	return nil
}
