package testutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// VolatileFields are dropped at every depth before golden comparison.
var VolatileFields = []string{"generatedAt", "scanDuration", "duration", "durationMs", "updatedAt", "createdAt"}

// MarshalNormalized encodes got as indented JSON with volatile fields
// removed, map keys sorted and the fixture root replaced by "<fixture>".
// Slice order is preserved.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, got any) []byte {
	t.Helper()

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	root := ""
	if fixture != nil {
		root = fixture.Root
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(normalizeValue(generic, root)); err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return buf.Bytes()
}

func normalizeValue(v any, root string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if isVolatileField(k) {
				continue
			}
			out[k] = normalizeValue(item, root)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item, root)
		}
		return out
	case string:
		if root != "" {
			val = strings.ReplaceAll(val, root, "<fixture>")
		}
		return strings.ReplaceAll(val, "\\", "/")
	default:
		return v
	}
}

func isVolatileField(name string) bool {
	for _, f := range VolatileFields {
		if f == name {
			return true
		}
	}
	return false
}
