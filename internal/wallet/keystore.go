package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
)

// KeyStore keeps a single secp256k1 signing key on disk.
// The address is stored in plaintext so watch-only operations need no
// passphrase; the private key is encrypted with the user's passphrase using
// age's scrypt-based passphrase encryption.
type KeyStore struct {
	addressPath string
	keyPath     string
	workFactor  int // scrypt log2 work factor; 0 keeps age's default
}

// NewKeyStore creates a KeyStore from configuration.
func NewKeyStore(cfg config.WalletConfig) *KeyStore {
	return &KeyStore{
		addressPath: cfg.AddressPath,
		keyPath:     cfg.KeyPath,
	}
}

// Setup generates a new key, stores it, and returns its address.
// It refuses to overwrite an existing key.
func (k *KeyStore) Setup(passphrase string) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return k.store(key, passphrase)
}

// Import stores an existing hex-encoded private key and returns its address.
func (k *KeyStore) Import(hexKey, passphrase string) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return "", fmt.Errorf("parsing private key: %w", err)
	}
	return k.store(key, passphrase)
}

// Address returns the stored address without unlocking the key.
func (k *KeyStore) Address() (string, error) {
	data, err := os.ReadFile(k.addressPath)
	if err != nil {
		return "", fmt.Errorf("reading address file: %w", err)
	}

	addr := strings.TrimSpace(string(data))
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("address file contains an invalid address: %q", addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

// Unlock decrypts the private key with the passphrase and returns a signing identity.
// Returns an error if the passphrase is incorrect or the key does not match the stored address.
func (k *KeyStore) Unlock(passphrase string) (learner.Identity, error) {
	encrypted, err := os.ReadFile(k.keyPath)
	if err != nil {
		return learner.Identity{}, fmt.Errorf("reading key file: %w", err)
	}

	scryptIdentity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return learner.Identity{}, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(encrypted), scryptIdentity)
	if err != nil {
		return learner.Identity{}, fmt.Errorf("decrypting key: %w", err)
	}

	hexKey, err := io.ReadAll(r)
	if err != nil {
		return learner.Identity{}, fmt.Errorf("reading decrypted key: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimSpace(string(hexKey)))
	if err != nil {
		return learner.Identity{}, fmt.Errorf("parsing decrypted key: %w", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	stored, err := k.Address()
	if err != nil {
		return learner.Identity{}, err
	}
	if !learner.SameAddress(addr, stored) {
		return learner.Identity{}, fmt.Errorf("key does not match stored address %s", stored)
	}

	return learner.Identity{Address: addr, Key: key}, nil
}

// IsConfigured returns true if both the address and key files exist.
func (k *KeyStore) IsConfigured() bool {
	if _, err := os.Stat(k.addressPath); err != nil {
		return false
	}
	if _, err := os.Stat(k.keyPath); err != nil {
		return false
	}
	return true
}

// store writes the address and the encrypted key.
func (k *KeyStore) store(key *ecdsa.PrivateKey, passphrase string) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	if _, err := os.Stat(k.keyPath); err == nil {
		return "", fmt.Errorf("key file already exists at %s", k.keyPath)
	}

	if err := os.MkdirAll(filepath.Dir(k.addressPath), 0700); err != nil {
		return "", fmt.Errorf("creating address directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(k.keyPath), 0700); err != nil {
		return "", fmt.Errorf("creating key directory: %w", err)
	}

	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if err := os.WriteFile(k.addressPath, []byte(addr+"\n"), 0644); err != nil {
		return "", fmt.Errorf("writing address file: %w", err)
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if k.workFactor > 0 {
		recipient.SetWorkFactor(k.workFactor)
	}

	f, err := os.OpenFile(k.keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating key file: %w", err)
	}
	defer f.Close()

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, hex.EncodeToString(crypto.FromECDSA(key))+"\n"); err != nil {
		return "", fmt.Errorf("writing encrypted key: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encrypted key: %w", err)
	}

	return addr, nil
}
