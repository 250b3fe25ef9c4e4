package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// keyFile is the on-disk form of a wallet.
type keyFile struct {
	ID   string `json:"id"`
	Seed string `json:"seed"`
}

// Save writes the wallet to path with 0600 permissions, creating parent
// directories as needed.
func (w *Wallet) Save(path string) error {
	data, err := json.MarshalIndent(keyFile{ID: w.ID(), Seed: b64.EncodeToString(w.private.Seed())}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding key file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

// Load reads a wallet written by Save. The stored id must match the
// key derived from the seed.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", path, err)
	}
	seed, err := b64.DecodeString(kf.Seed)
	if err != nil {
		return nil, fmt.Errorf("decoding seed in %s: %w", path, err)
	}
	w, err := FromSeed(seed)
	if err != nil {
		return nil, err
	}
	if kf.ID != "" && kf.ID != w.ID() {
		return nil, fmt.Errorf("key file %s: id %s does not match seed", path, kf.ID)
	}
	return w, nil
}

// LoadOrGenerate loads the wallet at path, or generates and saves a new
// one if the file does not exist. Reports whether it was generated.
func LoadOrGenerate(path string) (*Wallet, bool, error) {
	w, err := Load(path)
	if err == nil {
		return w, false, nil
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
		return nil, false, err
	}

	w, err = Generate()
	if err != nil {
		return nil, false, err
	}
	if err := w.Save(path); err != nil {
		return nil, false, err
	}
	return w, true, nil
}
