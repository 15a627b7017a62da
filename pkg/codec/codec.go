/*
Package codec encodes session payloads into tamper-evident byte strings.

The stored layout is

	base64( hex(tag) ":" serialized )

where tag is an HMAC-SHA256 over the serialized payload, keyed by a digest of a
process-wide secret. Decode always verifies the tag before deserializing.
*/
package codec

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// salt namespaces the derived key so the secret can be shared with other signers.
const salt = "sessionmux.codec.SessionCodec"

// Codec encodes and decodes payloads. It is immutable and safe for concurrent use.
type Codec struct {
	keys       [][]byte // active key first, then fallbacks
	serializer Serializer
}

// Option configures the Codec.
type Option func(*Codec)

// WithSerializer sets the payload serializer (default JSON).
func WithSerializer(s Serializer) Option {
	return func(c *Codec) {
		c.serializer = s
	}
}

// WithFallbackSecrets accepts payloads signed with retired secrets.
// This enables zero-downtime secret rotation; new payloads are always signed with the active secret.
func WithFallbackSecrets(secrets ...[]byte) Option {
	return func(c *Codec) {
		for _, s := range secrets {
			if len(s) > 0 {
				c.keys = append(c.keys, deriveKey(s))
			}
		}
	}
}

// New creates a codec bound to secret.
func New(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: codec secret is empty", domain.ErrConfiguration)
	}
	c := &Codec{
		keys:       [][]byte{deriveKey(secret)},
		serializer: JSON(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Serializer returns the configured serializer.
func (c *Codec) Serializer() Serializer {
	return c.serializer
}

// Encode serializes and signs a payload.
func (c *Codec) Encode(p domain.Payload) ([]byte, error) {
	serialized, err := c.serializer.Serialize(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	sig := tag(c.keys[0], serialized)
	raw := make([]byte, 0, len(sig)+1+len(serialized))
	raw = append(raw, sig...)
	raw = append(raw, ':')
	raw = append(raw, serialized...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// Decode verifies and deserializes an encoded payload.
// Any malformation or tag mismatch is reported as domain.ErrCorruptPayload.
func (c *Codec) Decode(encoded []byte) (domain.Payload, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(raw, encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", domain.ErrCorruptPayload, err)
	}
	raw = raw[:n]

	sep := bytes.IndexByte(raw, ':')
	if sep < 0 {
		return nil, fmt.Errorf("%w: missing tag separator", domain.ErrCorruptPayload)
	}
	got, serialized := raw[:sep], raw[sep+1:]

	if !c.verify(got, serialized) {
		return nil, fmt.Errorf("%w: integrity tag mismatch", domain.ErrCorruptPayload)
	}

	p, err := c.serializer.Deserialize(serialized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptPayload, err)
	}
	return p, nil
}

func (c *Codec) verify(got, serialized []byte) bool {
	for _, key := range c.keys {
		if hmac.Equal(got, tag(key, serialized)) {
			return true
		}
	}
	return false
}

func deriveKey(secret []byte) []byte {
	sum := sha256.Sum256(append([]byte(salt), secret...))
	return sum[:]
}

func tag(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	sum := mac.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}
