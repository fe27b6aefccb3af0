package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentmark/internal/schema"
)

func TestRenderTypes(t *testing.T) {
	out := string(RenderTypes(fixtureSchema(t, fixtureTime)))

	want := `// Code generated by contentmark. DO NOT EDIT.

export interface HomeContent {
  hero: {
    title: string;
    count?: number;
    theme?: "light" | "dark";
  };
  features: Array<{
    title: string;
    cta: {
      href?: string;
    };
  }>;
}

export interface AboutUsContent {
  team: {
    bio?: string;
  };
}

export interface SiteContent {
  home: HomeContent;
  "about-us": AboutUsContent;
}
`
	assert.Equal(t, want, out)
}

func TestRenderTypesNil(t *testing.T) {
	out := string(RenderTypes(nil))
	assert.True(t, strings.HasPrefix(out, typesHeader))
	assert.Contains(t, out, "export interface SiteContent {}")
}

func TestRenderTypesMixedRepeater(t *testing.T) {
	snap := &schema.ProjectSchema{
		Pages: []schema.PageSchema{{
			Slug: "blog",
			Sections: []schema.SectionSchema{{
				Slug:       "posts",
				IsRepeater: true,
				Fields: []schema.FieldSchema{
					{Path: "blog.posts.heading", Type: schema.TypeText, Required: true},
					{Path: "blog.posts.$.title", Type: schema.TypeText, Required: true},
				},
			}},
		}},
	}

	out := string(RenderTypes(snap))
	assert.Contains(t, out, "  posts: {\n    heading: string;\n    items: Array<{\n      title: string;\n    }>;\n  };\n")
}

func TestTSType(t *testing.T) {
	opts := []schema.Option{{Value: "a", Label: "A"}, {Value: "b", Label: "B"}, {Value: "a", Label: "dup"}}

	tests := []struct {
		name  string
		field schema.FieldSchema
		want  string
	}{
		{"text", schema.FieldSchema{Type: schema.TypeText}, "string"},
		{"number", schema.FieldSchema{Type: schema.TypeNumber}, "number"},
		{"rating", schema.FieldSchema{Type: schema.TypeRating}, "number"},
		{"toggle", schema.FieldSchema{Type: schema.TypeToggle}, "boolean"},
		{"checkbox", schema.FieldSchema{Type: schema.TypeCheckbox}, "boolean"},
		{"checkbox options", schema.FieldSchema{Type: schema.TypeCheckbox, Options: opts}, `Array<"a" | "b">`},
		{"select", schema.FieldSchema{Type: schema.TypeSelect}, "string"},
		{"select options", schema.FieldSchema{Type: schema.TypeSelect, Options: opts}, `"a" | "b"`},
		{"multiselect", schema.FieldSchema{Type: schema.TypeMultiselect}, "string[]"},
		{"tags", schema.FieldSchema{Type: schema.TypeTags}, "string[]"},
		{"json", schema.FieldSchema{Type: schema.TypeJSON}, "unknown"},
		{"location", schema.FieldSchema{Type: schema.TypeLocation}, "{ lat: number; lng: number }"},
		{"link", schema.FieldSchema{Type: schema.TypeLink}, "{ label: string; href: string }"},
		{"image", schema.FieldSchema{Type: schema.TypeImage}, "string"},
		{"image multiple", schema.FieldSchema{Type: schema.TypeImage, Multiple: true}, "string[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TSType(tt.field))
		})
	}
}

func TestInterfaceName(t *testing.T) {
	tests := map[string]string{
		"home":      "HomeContent",
		"about-us":  "AboutUsContent",
		"blog_post": "BlogPostContent",
		"404":       "Page404Content",
	}
	for slug, want := range tests {
		assert.Equal(t, want, InterfaceName(slug), slug)
	}
}

func TestTypeWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types", "content.d.ts")
	w := NewTypeWriter(path)

	require.NoError(t, w.Write(context.Background(), fixtureSchema(t, fixtureTime)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "export interface HomeContent {")
	assert.Equal(t, path, w.Path())
}
