package storage

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyLength   = 32
	nonceLength = 24
)

// ErrDecryptionFailed is returned when a blob's authentication tag does not
// verify, i.e. the ciphertext was tampered with or written under another key.
var ErrDecryptionFailed = errors.New("blob decryption failed")

// EncryptedStore wraps another Store with NaCl secretbox
// (XSalsa20-Poly1305): blobs are sealed on Put and opened on Get. The wire
// format is a random 24-byte nonce followed by the sealed box.
//
// LegacyPlaintextFallback returns the raw stored bytes when opening fails;
// it exists only for blobs written before encryption was introduced and
// should stay off everywhere else.
type EncryptedStore struct {
	inner                   Store
	key                     [keyLength]byte
	LegacyPlaintextFallback bool
}

// NewEncryptedStore wraps inner with the given 32-byte key, provided as
// base64 (std or raw-std) or hex.
func NewEncryptedStore(inner Store, encodedKey string) (*EncryptedStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner store is required")
	}

	key, err := ParseKey(encodedKey)
	if err != nil {
		return nil, err
	}

	return &EncryptedStore{inner: inner, key: key}, nil
}

// ParseKey decodes a 32-byte symmetric key from base64 or hex.
func ParseKey(encodedKey string) ([keyLength]byte, error) {
	var key [keyLength]byte
	if encodedKey == "" {
		return key, fmt.Errorf("encryption key is required")
	}

	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(encodedKey)
	}
	if err != nil {
		raw, err = hex.DecodeString(encodedKey)
	}
	if err != nil {
		return key, fmt.Errorf("encryption key is neither valid base64 nor hex")
	}

	if len(raw) != keyLength {
		return key, fmt.Errorf("encryption key must be %d bytes, got %d", keyLength, len(raw))
	}

	copy(key[:], raw)
	return key, nil
}

func (s *EncryptedStore) Put(ctx context.Context, key string, data []byte) error {
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], data, &nonce, &s.key)
	return s.inner.Put(ctx, key, sealed)
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if len(sealed) > nonceLength {
		var nonce [nonceLength]byte
		copy(nonce[:], sealed[:nonceLength])

		if opened, ok := secretbox.Open(nil, sealed[nonceLength:], &nonce, &s.key); ok {
			return opened, nil
		}
	}

	if s.LegacyPlaintextFallback {
		return sealed, nil
	}
	return nil, fmt.Errorf("opening blob %s: %w", key, ErrDecryptionFailed)
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

var _ Store = (*EncryptedStore)(nil)
