package middleware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aretw0/sessionmux/pkg/domain"
	"github.com/aretw0/sessionmux/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-only view that masks the values of payload fields whose
// name matches one of the patterns. Saves through it are rejected so masks never get persisted.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{SessionStore: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (domain.Payload, error) {
	payload, err := m.SessionStore.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	// Deep clone before masking.
	masked := domain.Payload(deepCopyMap(payload))
	maskMap(masked, m.patterns)
	return masked, nil
}

func (m *piiMiddleware) Save(ctx context.Context, key string, payload domain.Payload, ttl time.Duration, mustCreate bool) error {
	return fmt.Errorf("store %q is a redacted view: saving is not allowed", m.Name())
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v // shallow copy of value
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				break
			}
		}

		// Recurse if map
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
