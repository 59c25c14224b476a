package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fortnite-lobbybot-svc/src/internal/adapter"
	"fortnite-lobbybot-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// Service encrypts and decrypts stored device-auth credentials.
// Ciphertext layout: base64(nonce || AES-256-GCM sealed JSON).
type Service interface {
	Encrypt(creds adapter.Credentials) (string, error)
	Decrypt(blob string) (adapter.Credentials, error)
}

type service struct {
	aead cipher.AEAD
}

// New builds a vault from a base64-encoded 32-byte key.
func New(encodedKey string) (Service, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key encoding: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &service{aead: aead}, nil
}

func (s *service) Encrypt(creds adapter.Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *service) Decrypt(blob string) (adapter.Credentials, error) {
	var creds adapter.Credentials

	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		logrus.WithError(err).Error("Failed to decode credential blob")
		return creds, models.ErrCredentialDecrypt
	}
	if len(sealed) < s.aead.NonceSize() {
		return creds, models.ErrCredentialDecrypt
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		logrus.Error("Failed to decrypt credentials: invalid ciphertext")
		return creds, models.ErrCredentialDecrypt
	}

	if err := json.Unmarshal(plaintext, &creds); err != nil {
		logrus.WithError(err).Error("Failed to parse decrypted credentials")
		return creds, models.ErrCredentialDecrypt
	}

	return creds, nil
}
