// Package fieldpath parses, builds and matches dotted content field paths.
//
// A path has the form page.section.field[.more]. The segment at index 2 may be
// the repeater placeholder "$", in which case the remaining segments name the
// field inside one item of the repeatable group:
//
//	home.hero.title          page=home section=hero field=title
//	home.features.$.title    page=home section=features field=$ repeaterField=title
//
// Every other package validates paths through this one.
package fieldpath

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// Separator joins path segments
	Separator = "."
	// Placeholder marks one item of a repeatable group
	Placeholder = "$"
	// Wildcard matches exactly one segment in Match patterns
	Wildcard = "*"

	// MinSegments is the minimum number of segments in a valid path
	MinSegments = 3
	// PlaceholderIndex is the only segment index the placeholder may occupy
	PlaceholderIndex = 2
)

// GrammarError reports a path that violates the grammar.
type GrammarError struct {
	Path   string
	Reason string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("invalid field path %q: %s", e.Path, e.Reason)
}

// ParsedPath is an immutable, validated path.
type ParsedPath struct {
	Page          string `json:"page"`
	Section       string `json:"section"`
	Field         string `json:"field"`
	IsRepeater    bool   `json:"isRepeater"`
	RepeaterField string `json:"repeaterField,omitempty"`
	Full          string `json:"full"`
}

// Segments returns all segments of the path.
func (p ParsedPath) Segments() []string {
	return strings.Split(p.Full, Separator)
}

// LeafName returns the last segment that is not the placeholder. For the item
// container path "page.section.$" this is the section.
func (p ParsedPath) LeafName() string {
	segs := p.Segments()
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] != Placeholder {
			return segs[i]
		}
	}
	return ""
}

// FieldKey is the name used for ordering within a section: the inner field
// for repeater paths, the field otherwise.
func (p ParsedPath) FieldKey() string {
	if p.IsRepeater {
		return p.RepeaterField
	}
	return p.Field
}

// IsItemContainer reports whether the path names a repeater item itself
// rather than a field inside it.
func (p ParsedPath) IsItemContainer() bool {
	return p.IsRepeater && p.RepeaterField == ""
}

// Parse validates path and splits it into its parts.
func Parse(path string) (ParsedPath, error) {
	if strings.TrimSpace(path) == "" {
		return ParsedPath{}, &GrammarError{Path: path, Reason: "path is empty"}
	}

	segs := strings.Split(path, Separator)
	if err := checkSegments(path, segs); err != nil {
		return ParsedPath{}, err
	}

	p := ParsedPath{
		Page:    segs[0],
		Section: segs[1],
		Full:    path,
	}
	if segs[PlaceholderIndex] == Placeholder {
		p.IsRepeater = true
		p.Field = Placeholder
		p.RepeaterField = strings.Join(segs[PlaceholderIndex+1:], Separator)
	} else {
		p.Field = strings.Join(segs[PlaceholderIndex:], Separator)
	}
	return p, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(path string) ParsedPath {
	p, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return p
}

// Build joins segments into a path after applying the grammar rules.
func Build(segments ...string) (string, error) {
	path := strings.Join(segments, Separator)
	if len(segments) == 0 {
		return "", &GrammarError{Path: path, Reason: "path is empty"}
	}
	for _, s := range segments {
		if strings.Contains(s, Separator) {
			return "", &GrammarError{Path: path, Reason: fmt.Sprintf("segment %q contains a separator", s)}
		}
	}
	if err := checkSegments(path, segments); err != nil {
		return "", err
	}
	return path, nil
}

// Validate returns a *GrammarError when path is not valid.
func Validate(path string) error {
	_, err := Parse(path)
	return err
}

// IsValid reports whether path satisfies the grammar.
func IsValid(path string) bool {
	return Validate(path) == nil
}

func checkSegments(path string, segs []string) error {
	if len(segs) < MinSegments {
		return &GrammarError{
			Path:   path,
			Reason: fmt.Sprintf("expected at least %d segments, got %d", MinSegments, len(segs)),
		}
	}

	placeholders := 0
	for i, s := range segs {
		if s == Placeholder {
			placeholders++
			if placeholders > 1 {
				return &GrammarError{Path: path, Reason: "more than one repeater placeholder"}
			}
			if i != PlaceholderIndex {
				return &GrammarError{
					Path:   path,
					Reason: fmt.Sprintf("repeater placeholder must be segment %d, found at %d", PlaceholderIndex+1, i+1),
				}
			}
			continue
		}
		if strings.TrimSpace(s) == "" {
			return &GrammarError{Path: path, Reason: fmt.Sprintf("segment %d is empty", i+1)}
		}
	}
	return nil
}

// Match reports whether path matches pattern. A "*" pattern segment matches
// any single segment; segment counts must be equal.
func Match(path, pattern string) bool {
	ps := strings.Split(path, Separator)
	qs := strings.Split(pattern, Separator)
	if len(ps) != len(qs) {
		return false
	}
	for i := range qs {
		if qs[i] != Wildcard && qs[i] != ps[i] {
			return false
		}
	}
	return true
}

// SortPaths returns a sorted copy ordered by page, section, then field (the
// repeater inner field when applicable). Invalid paths sort last.
func SortPaths(paths []string) []string {
	type keyed struct {
		raw    string
		parsed ParsedPath
		ok     bool
	}

	items := make([]keyed, len(paths))
	for i, p := range paths {
		parsed, err := Parse(p)
		items[i] = keyed{raw: p, parsed: parsed, ok: err == nil}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return a.raw < b.raw
		}
		if a.parsed.Page != b.parsed.Page {
			return a.parsed.Page < b.parsed.Page
		}
		if a.parsed.Section != b.parsed.Section {
			return a.parsed.Section < b.parsed.Section
		}
		if ka, kb := a.parsed.FieldKey(), b.parsed.FieldKey(); ka != kb {
			return ka < kb
		}
		return a.raw < b.raw
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.raw
	}
	return out
}

// Groups is an insertion-ordered map from a group key to paths.
type Groups struct {
	keys  []string
	items map[string][]string
}

func newGroups() *Groups {
	return &Groups{items: make(map[string][]string)}
}

func (g *Groups) add(key, path string) {
	if _, ok := g.items[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.items[key] = append(g.items[key], path)
}

// Keys returns group keys in first-seen order.
func (g *Groups) Keys() []string {
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// Get returns the paths of one group.
func (g *Groups) Get(key string) []string {
	return g.items[key]
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.keys)
}

// GroupByPage groups valid paths by page.
func GroupByPage(paths []string) *Groups {
	g := newGroups()
	for _, p := range paths {
		parsed, err := Parse(p)
		if err != nil {
			continue
		}
		g.add(parsed.Page, p)
	}
	return g
}

// GroupBySection groups valid paths by "page.section".
func GroupBySection(paths []string) *Groups {
	g := newGroups()
	for _, p := range paths {
		parsed, err := Parse(p)
		if err != nil {
			continue
		}
		g.add(parsed.Page+Separator+parsed.Section, p)
	}
	return g
}
