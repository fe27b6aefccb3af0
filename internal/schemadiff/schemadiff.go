// Package schemadiff compares two schema snapshots field by field.
package schemadiff

import (
	"fmt"
	"reflect"
	"sort"

	"contentmark/internal/schema"
)

// Modification is a field present in both snapshots with differing attributes.
type Modification struct {
	Path    string             `json:"path"`
	Before  schema.FieldSchema `json:"before"`
	After   schema.FieldSchema `json:"after"`
	Changes []string           `json:"changes"`
}

// SchemaDiff is the delta between two snapshots. Lists are sorted by path.
type SchemaDiff struct {
	Added      []schema.FieldSchema `json:"added"`
	Removed    []schema.FieldSchema `json:"removed"`
	Modified   []Modification       `json:"modified"`
	HasChanges bool                 `json:"hasChanges"`
}

// Diff compares prev and next keyed strictly by full path. A nil prev means
// every field in next is added. Source locations are not compared.
func Diff(prev, next *schema.ProjectSchema) *SchemaDiff {
	d := &SchemaDiff{
		Added:    []schema.FieldSchema{},
		Removed:  []schema.FieldSchema{},
		Modified: []Modification{},
	}

	before := prev.FieldIndex()
	after := next.FieldIndex()

	for path, a := range after {
		b, ok := before[path]
		if !ok {
			d.Added = append(d.Added, a)
			continue
		}
		if changes := Changes(b, a); len(changes) > 0 {
			d.Modified = append(d.Modified, Modification{
				Path:    path,
				Before:  b,
				After:   a,
				Changes: changes,
			})
		}
	}
	for path, b := range before {
		if _, ok := after[path]; !ok {
			d.Removed = append(d.Removed, b)
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Path < d.Added[j].Path })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].Path < d.Removed[j].Path })
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].Path < d.Modified[j].Path })

	d.HasChanges = len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
	return d
}

// Changes lists the attribute names that differ between two versions of a
// field, using the attribute's JSON name and "extra.<name>" for pass-through
// attributes.
func Changes(before, after schema.FieldSchema) []string {
	var changes []string
	add := func(name string, differs bool) {
		if differs {
			changes = append(changes, name)
		}
	}

	add("type", before.Type != after.Type)
	add("label", before.Label != after.Label)
	add("placeholder", before.Placeholder != after.Placeholder)
	add("required", before.Required != after.Required)
	add("validation", before.Validation != after.Validation)
	add("options", !optionsEqual(before.Options, after.Options))
	add("condition", before.Condition != after.Condition)
	add("default", before.Default != after.Default)
	add("help", before.Help != after.Help)
	add("min", !floatEqual(before.Min, after.Min))
	add("max", !floatEqual(before.Max, after.Max))
	add("step", !floatEqual(before.Step, after.Step))
	add("accept", before.Accept != after.Accept)
	add("multiple", before.Multiple != after.Multiple)
	add("rows", !intEqual(before.Rows, after.Rows))
	add("width", !intEqual(before.Width, after.Width))
	add("readonly", before.Readonly != after.Readonly)
	add("hidden", before.Hidden != after.Hidden)

	keys := make(map[string]struct{})
	for k := range before.Extra {
		keys[k] = struct{}{}
	}
	for k := range after.Extra {
		keys[k] = struct{}{}
	}
	extra := make([]string, 0, len(keys))
	for k := range keys {
		bv, bok := before.Extra[k]
		av, aok := after.Extra[k]
		if bok != aok || bv != av {
			extra = append(extra, "extra."+k)
		}
	}
	sort.Strings(extra)

	return append(changes, extra...)
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optionsEqual(a, b []schema.Option) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Summary returns a one-line description such as "2 added, 1 removed, 0 modified".
func (d *SchemaDiff) Summary() string {
	if d == nil || !d.HasChanges {
		return "no changes"
	}
	return fmt.Sprintf("%d added, %d removed, %d modified", len(d.Added), len(d.Removed), len(d.Modified))
}

// Paths returns the paths touched by the diff, sorted.
func (d *SchemaDiff) Paths() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Added)+len(d.Removed)+len(d.Modified))
	for _, f := range d.Added {
		out = append(out, f.Path)
	}
	for _, f := range d.Removed {
		out = append(out, f.Path)
	}
	for _, m := range d.Modified {
		out = append(out, m.Path)
	}
	sort.Strings(out)
	return out
}
