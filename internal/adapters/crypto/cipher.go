// Package crypto encrypts the CareLog document at rest with
// XChaCha20-Poly1305 and manages the key file.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/carelog-g8/carelog/internal/core/ports"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// DocumentCipher produces base64 text tokens of nonce || sealed payload.
type DocumentCipher struct {
	key []byte
}

var _ ports.Cipher = (*DocumentCipher)(nil)

func NewDocumentCipher(key []byte) (*DocumentCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &DocumentCipher{key: append([]byte{}, key...)}, nil
}

func (c *DocumentCipher) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	out := make([]byte, base64.URLEncoding.EncodedLen(len(sealed)))
	base64.URLEncoding.Encode(out, sealed)
	return out, nil
}

func (c *DocumentCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, base64.URLEncoding.DecodedLen(len(ciphertext)))
	n, err := base64.URLEncoding.Decode(raw, []byte(strings.TrimSpace(string(ciphertext))))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	raw = raw[:n]
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return plaintext, nil
}

// GenerateKey returns a new random key encoded the way key files store it.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// WriteKeyFile writes a fresh key to path and refuses to overwrite an
// existing one.
func WriteKeyFile(path string) error {
	encoded, err := GenerateKey()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(encoded); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := base64.URLEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode key file %s: %w", path, err)
	}
	return key, nil
}

// LoadOrCreateKey reads the key at path, generating one on first run.
func LoadOrCreateKey(path string, log *zap.Logger) ([]byte, error) {
	key, err := ReadKeyFile(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	log.Warn("crypto: encryption key not found, generating a new one", zap.String("path", path))
	if err := WriteKeyFile(path); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}
	return ReadKeyFile(path)
}
