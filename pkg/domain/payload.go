package domain

// Payload is the logical key/value mapping of a session.
type Payload map[string]any

// Clone returns a shallow copy of the payload. A nil payload clones to an empty one.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
