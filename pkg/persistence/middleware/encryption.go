package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/ports"
)

// EnvelopeField holds the ciphertext inside an encrypted payload.
const EnvelopeField = "__encrypted__"

// KeySize is the AES-256 key length.
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte

	// AcceptPlaintext loads payloads that carry no envelope as they are, so encryption can be
	// switched on for stores that already hold sessions. They are encrypted on their next save.
	AcceptPlaintext bool
}

type encryptionMiddleware struct {
	ports.SessionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts payloads with AES-GCM before
// they reach the store. The store still signs what it writes.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != KeySize {
		return nil, fmt.Errorf("%w: active encryption key must be %d bytes", domain.ErrConfiguration, KeySize)
	}
	for i, k := range config.FallbackKeys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("%w: fallback encryption key %d must be %d bytes", domain.ErrConfiguration, i, KeySize)
		}
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{SessionStore: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, key string, payload domain.Payload, ttl time.Duration, mustCreate bool) error {
	plainText, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	envelope := domain.Payload{EnvelopeField: base64.StdEncoding.EncodeToString(ciphertext)}
	return m.SessionStore.Save(ctx, key, envelope, ttl, mustCreate)
}

func (m *encryptionMiddleware) Load(ctx context.Context, key string) (domain.Payload, error) {
	envelope, err := m.SessionStore.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelope[EnvelopeField].(string)
	if !ok {
		if m.config.AcceptPlaintext {
			return envelope, nil
		}
		return nil, fmt.Errorf("%w: missing encrypted envelope", domain.ErrCorruptPayload)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: envelope is not base64: %v", domain.ErrCorruptPayload, err)
	}

	// Try Active, then Fallback
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptPayload, err)
	}

	var payload domain.Payload
	if err := json.Unmarshal(plainText, &payload); err != nil {
		return nil, fmt.Errorf("%w: decrypted payload is not JSON: %v", domain.ErrCorruptPayload, err)
	}
	if payload == nil {
		payload = domain.Payload{}
	}
	return payload, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
