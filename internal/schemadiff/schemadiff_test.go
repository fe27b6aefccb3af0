package schemadiff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmark/internal/markers"
	"contentmark/internal/schema"
)

func generate(t *testing.T, dets ...markers.DetectedField) *schema.ProjectSchema {
	t.Helper()
	s, warnings := schema.Generate(dets, schema.Options{
		Sort: true,
		Now:  func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.Empty(t, warnings)
	return s
}

func field(path string, kv ...string) markers.DetectedField {
	attrs := make(map[string]*string)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		attrs[kv[i]] = &v
	}
	return markers.DetectedField{Path: path, File: "src/Home.tsx", Line: 1, Column: 1, Element: "h1", Attributes: attrs}
}

func TestDiff_NilPrevious(t *testing.T) {
	next := generate(t, field("home.hero.title"), field("home.hero.subtitle"))

	d := Diff(nil, next)
	assert.Len(t, d.Added, 2)
	assert.Empty(t, d.Removed)
	assert.Empty(t, d.Modified)
	assert.True(t, d.HasChanges)
	assert.Equal(t, "home.hero.subtitle", d.Added[0].Path, "added list is sorted by path")
}

func TestDiff_Identical(t *testing.T) {
	s := generate(t, field("home.hero.title"), field("home.features.$.title"))

	d := Diff(s, s)
	assert.False(t, d.HasChanges)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
	assert.Empty(t, d.Modified)
	assert.Equal(t, "no changes", d.Summary())
}

func TestDiff_LabelOnly(t *testing.T) {
	a := generate(t, field("home.hero.title", "label", "Title"), field("home.hero.body"))
	b := generate(t, field("home.hero.title", "label", "Headline"), field("home.hero.body"))

	d := Diff(a, b)
	require.Len(t, d.Modified, 1)
	assert.Equal(t, "home.hero.title", d.Modified[0].Path)
	assert.Equal(t, []string{"label"}, d.Modified[0].Changes)
	assert.Equal(t, "Title", d.Modified[0].Before.Label)
	assert.Equal(t, "Headline", d.Modified[0].After.Label)
	assert.Empty(t, d.Added)
	assert.Empty(t, d.Removed)
	assert.True(t, d.HasChanges)
}

func TestDiff_AddRemoveModify(t *testing.T) {
	a := generate(t,
		field("home.hero.title"),
		field("home.hero.old"),
		field("home.hero.count", "type", "number", "min", "1", "tone", "warm"),
	)
	b := generate(t,
		field("home.hero.title"),
		field("home.hero.new"),
		field("home.hero.count", "type", "range", "min", "2", "size", "lg"),
	)

	d := Diff(a, b)
	require.Len(t, d.Added, 1)
	assert.Equal(t, "home.hero.new", d.Added[0].Path)
	require.Len(t, d.Removed, 1)
	assert.Equal(t, "home.hero.old", d.Removed[0].Path)
	require.Len(t, d.Modified, 1)
	assert.Equal(t, []string{"type", "min", "extra.size", "extra.tone"}, d.Modified[0].Changes)
	assert.Equal(t, "1 added, 1 removed, 1 modified", d.Summary())
	assert.Equal(t, []string{"home.hero.count", "home.hero.new", "home.hero.old"}, d.Paths())
}

func TestDiff_IgnoresSourceLocationAndOrder(t *testing.T) {
	a := generate(t, field("home.hero.title"), field("about.team.name"))

	moved := field("home.hero.title")
	moved.File = "src/Other.tsx"
	moved.Line = 40
	b, _ := schema.Generate([]markers.DetectedField{field("about.team.name"), moved}, schema.Options{})

	d := Diff(a, b)
	assert.False(t, d.HasChanges)
}

func TestChanges_NilVersusEmptyOptions(t *testing.T) {
	before := schema.FieldSchema{Path: "a.b.c"}
	after := schema.FieldSchema{Path: "a.b.c", Options: []schema.Option{}}
	assert.Empty(t, Changes(before, after))
}
