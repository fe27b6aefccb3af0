package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	minWidth = 1
	maxWidth = 12
)

// parseBool treats a bare attribute, an empty string and "true" as true.
func parseBool(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, "true")
}

func parseFloat(value string) (*float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseInt(value string) (*int, error) {
	v := strings.TrimSpace(value)
	if n, err := strconv.Atoi(v); err == nil {
		return &n, nil
	}
	// Accept integral floats such as "4.0"
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return nil, fmt.Errorf("not an integer: %q", value)
	}
	n := int(f)
	return &n, nil
}

func clampWidth(n int) int {
	if n < minWidth {
		return minWidth
	}
	if n > maxWidth {
		return maxWidth
	}
	return n
}

// parseOptions reads either a JSON array (strings or {value,label} objects)
// or a comma separated list where each item is "value" or "value:Label".
func parseOptions(raw string) ([]Option, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "[") {
		var items []interface{}
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("invalid JSON options: %w", err)
		}
		opts := make([]Option, 0, len(items))
		for i, item := range items {
			switch v := item.(type) {
			case string:
				opts = append(opts, Option{Value: v, Label: v})
			case float64, bool:
				s := fmt.Sprint(v)
				opts = append(opts, Option{Value: s, Label: s})
			case map[string]interface{}:
				value, ok := v["value"]
				if !ok {
					return nil, fmt.Errorf("option %d has no value", i)
				}
				o := Option{Value: fmt.Sprint(value)}
				if label, ok := v["label"]; ok {
					o.Label = fmt.Sprint(label)
				} else {
					o.Label = o.Value
				}
				opts = append(opts, o)
			default:
				return nil, fmt.Errorf("option %d has unsupported type", i)
			}
		}
		return opts, nil
	}

	var opts []Option
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		value, label, found := strings.Cut(part, ":")
		value = strings.TrimSpace(value)
		if !found {
			opts = append(opts, Option{Value: value, Label: value})
			continue
		}
		label = strings.TrimSpace(label)
		if label == "" {
			label = value
		}
		opts = append(opts, Option{Value: value, Label: label})
	}
	return opts, nil
}

// TitleCase turns a path segment into a display label: "heroTitle",
// "hero-title" and "hero_title" all become "Hero Title".
func TitleCase(segment string) string {
	words := splitWords(segment)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitWords(s string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			// fooBar, h1Title, URLPath
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
