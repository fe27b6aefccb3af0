package output

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/fieldpath"
	"contentmark/internal/schema"
)

const typesHeader = "// Code generated by contentmark. DO NOT EDIT.\n"

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// TypeWriter writes TypeScript declarations for a snapshot.
type TypeWriter struct {
	path string
}

// NewTypeWriter returns a writer targeting path.
func NewTypeWriter(path string) *TypeWriter {
	return &TypeWriter{path: path}
}

// Path returns the declaration file location.
func (w *TypeWriter) Path() string {
	return w.path
}

// Write renders snap and replaces the declaration file.
func (w *TypeWriter) Write(ctx context.Context, snap *schema.ProjectSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteFileAtomic(w.path, RenderTypes(snap), 0o644); err != nil {
		return cmerrors.New(cmerrors.OutputFailed, "failed to write type declarations", err)
	}
	return nil
}

// tsNode is an object literal type under construction. Keys keep insertion
// order.
type tsNode struct {
	keys     []string
	children map[string]*tsNode
	leaves   map[string]string
	optional map[string]bool
}

func newNode() *tsNode {
	return &tsNode{
		children: make(map[string]*tsNode),
		leaves:   make(map[string]string),
		optional: make(map[string]bool),
	}
}

func (n *tsNode) insert(key []string, tsType string, optional bool) {
	if len(key) == 1 {
		if _, ok := n.leaves[key[0]]; !ok {
			if _, isChild := n.children[key[0]]; !isChild {
				n.keys = append(n.keys, key[0])
			}
		}
		n.leaves[key[0]] = tsType
		n.optional[key[0]] = optional
		return
	}
	child, ok := n.children[key[0]]
	if !ok {
		child = newNode()
		n.children[key[0]] = child
		if _, isLeaf := n.leaves[key[0]]; !isLeaf {
			n.keys = append(n.keys, key[0])
		}
	}
	child.insert(key[1:], tsType, optional)
}

func (n *tsNode) render(b *strings.Builder, indent string) {
	b.WriteString("{\n")
	for _, k := range n.keys {
		b.WriteString(indent + "  " + tsKey(k))
		if child, ok := n.children[k]; ok {
			b.WriteString(": ")
			child.render(b, indent+"  ")
		} else {
			if n.optional[k] {
				b.WriteString("?")
			}
			b.WriteString(": " + n.leaves[k])
		}
		b.WriteString(";\n")
	}
	b.WriteString(indent + "}")
}

// RenderTypes returns a declaration file with one interface per page and a
// SiteContent interface keyed by page slug.
func RenderTypes(snap *schema.ProjectSchema) []byte {
	var b strings.Builder
	b.WriteString(typesHeader)

	if snap == nil {
		b.WriteString("\nexport interface SiteContent {}\n")
		return []byte(b.String())
	}

	names := make([]string, len(snap.Pages))
	for i, page := range snap.Pages {
		names[i] = InterfaceName(page.Slug)
		b.WriteString("\nexport interface " + names[i] + " ")
		pageNode(page).render(&b, "")
		b.WriteString("\n")
	}

	b.WriteString("\nexport interface SiteContent {\n")
	for i, page := range snap.Pages {
		b.WriteString("  " + tsKey(page.Slug) + ": " + names[i] + ";\n")
	}
	b.WriteString("}\n")
	return []byte(b.String())
}

func pageNode(page schema.PageSchema) *tsNode {
	root := newNode()
	for _, sec := range page.Sections {
		plain := newNode()
		items := newNode()
		hasItems := false

		for _, f := range sec.Fields {
			parsed, err := fieldpath.Parse(f.Path)
			if err != nil || parsed.IsItemContainer() {
				continue
			}
			key := strings.Split(parsed.FieldKey(), fieldpath.Separator)
			if parsed.IsRepeater {
				items.insert(key, TSType(f), !f.Required)
				hasItems = true
				continue
			}
			plain.insert(key, TSType(f), !f.Required)
		}

		var rendered strings.Builder
		switch {
		case hasItems && len(plain.keys) == 0:
			rendered.WriteString("Array<")
			items.render(&rendered, "  ")
			rendered.WriteString(">")
		case hasItems:
			var arr strings.Builder
			arr.WriteString("Array<")
			items.render(&arr, "    ")
			arr.WriteString(">")
			plain.insert([]string{"items"}, arr.String(), false)
			plain.render(&rendered, "  ")
		case sec.IsRepeater:
			rendered.WriteString("Array<Record<string, never>>")
		default:
			plain.render(&rendered, "  ")
		}
		root.keys = append(root.keys, sec.Slug)
		root.leaves[sec.Slug] = rendered.String()
	}
	return root
}

// TSType maps a field to a TypeScript type.
func TSType(f schema.FieldSchema) string {
	literals := optionUnion(f.Options)
	switch f.Type {
	case schema.TypeNumber, schema.TypeRange, schema.TypeRating:
		return "number"
	case schema.TypeToggle, schema.TypeBoolean:
		return "boolean"
	case schema.TypeCheckbox:
		if literals != "" {
			return "Array<" + literals + ">"
		}
		return "boolean"
	case schema.TypeSelect, schema.TypeRadio:
		if literals != "" {
			return literals
		}
		return "string"
	case schema.TypeMultiselect:
		if literals != "" {
			return "Array<" + literals + ">"
		}
		return "string[]"
	case schema.TypeTags, schema.TypeGallery:
		return "string[]"
	case schema.TypeJSON:
		return "unknown"
	case schema.TypeLocation:
		return "{ lat: number; lng: number }"
	case schema.TypeLink, schema.TypeButton:
		return "{ label: string; href: string }"
	case schema.TypeImage, schema.TypeFile, schema.TypeVideo, schema.TypeAudio, schema.TypeReference, schema.TypeRelation:
		if f.Multiple {
			return "string[]"
		}
		return "string"
	}
	return "string"
}

func optionUnion(opts []schema.Option) string {
	if len(opts) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(opts))
	values := make([]string, 0, len(opts))
	for _, o := range opts {
		if _, dup := seen[o.Value]; dup {
			continue
		}
		seen[o.Value] = struct{}{}
		values = append(values, quote(o.Value))
	}
	return strings.Join(values, " | ")
}

func tsKey(k string) string {
	if identPattern.MatchString(k) {
		return k
	}
	return quote(k)
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return string(b)
}

// InterfaceName turns a page slug into a PascalCase interface name.
func InterfaceName(slug string) string {
	name := strings.ReplaceAll(schema.TitleCase(slug), " ", "")
	if !identPattern.MatchString(name) {
		name = "Page" + sanitizeIdent(name)
	}
	return name + "Content"
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

