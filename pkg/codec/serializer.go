package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/aretw0/sessionmux/pkg/domain"
)

// Serializer turns a payload into bytes and back.
// Implementations must be deterministic so the integrity tag is stable.
type Serializer interface {
	Name() string
	Serialize(p domain.Payload) ([]byte, error)
	Deserialize(b []byte) (domain.Payload, error)
}

func init() {
	// Nested containers travel inside interface values.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// JSON encodes payloads with encoding/json. Map keys are sorted, numbers decode as float64.
func JSON() Serializer {
	return jsonSerializer{}
}

// Gob encodes payloads with encoding/gob. Custom value types must be gob.Register'ed.
func Gob() Serializer {
	return gobSerializer{}
}

// SerializerByName resolves "json" or "gob".
func SerializerByName(name string) (Serializer, error) {
	switch name {
	case "", "json":
		return JSON(), nil
	case "gob":
		return Gob(), nil
	default:
		return nil, fmt.Errorf("%w: unknown serializer %q (json, gob)", domain.ErrConfiguration, name)
	}
}

type jsonSerializer struct{}

func (jsonSerializer) Name() string { return "json" }

func (jsonSerializer) Serialize(p domain.Payload) ([]byte, error) {
	if p == nil {
		p = domain.Payload{}
	}
	return json.Marshal(p)
}

func (jsonSerializer) Deserialize(b []byte) (domain.Payload, error) {
	p := domain.Payload{}
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = domain.Payload{}
	}
	return p, nil
}

type gobSerializer struct{}

func (gobSerializer) Name() string { return "gob" }

func (gobSerializer) Serialize(p domain.Payload) ([]byte, error) {
	if p == nil {
		p = domain.Payload{}
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializer) Deserialize(b []byte) (domain.Payload, error) {
	p := domain.Payload{}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}
