//go:build cgo

package markers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmerrors "contentmark/internal/errors"
)

const heroTSX = `import React from "react";

export function Hero() {
  return (
    <section data-cms="home.hero.section" data-cms-type="json">
      <h1 data-cms="home.hero.title" data-cms-label="Headline" data-cms-required>
        Welcome to {"our"} site
      </h1>
      <img data-cms="home.hero.image" data-cms-type='image' data-cms-width={6} />
      <p data-cms="home.hero.subtitle" data-cms-rows={4} data-cms-hint={` + "`Shown below`" + `}>Sub</p>
      <Hero.Title data-cms="home.hero.badge" data-cms-hidden={true} />
    </section>
  );
}
`

func extract(t *testing.T, src string, lang Language) *FileResult {
	t.Helper()
	e := NewExtractor("")
	r, err := e.ExtractSource(context.Background(), "src/Hero.tsx", []byte(src), lang)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}

func byPath(fields []DetectedField) map[string]DetectedField {
	m := make(map[string]DetectedField, len(fields))
	for _, f := range fields {
		m[f.Path] = f
	}
	return m
}

func TestExtractSource_TSX(t *testing.T) {
	r := extract(t, heroTSX, LangTSX)

	assert.Empty(t, r.Errors)
	assert.Equal(t, "src/Hero.tsx", r.File)
	assert.Equal(t, HashContent([]byte(heroTSX)), r.Hash)
	require.Len(t, r.Fields, 5)

	fields := byPath(r.Fields)

	title := fields["home.hero.title"]
	assert.Equal(t, "h1", title.Element)
	assert.Equal(t, 6, title.Line)
	assert.Equal(t, 7, title.Column)
	assert.Equal(t, "Welcome to our site", title.TextContent)
	label, ok := title.Attr("label")
	assert.True(t, ok)
	assert.Equal(t, "Headline", label)
	required, ok := title.Attr("required")
	assert.True(t, ok, "bare attribute is present")
	assert.Equal(t, "", required)
	assert.Nil(t, title.Attributes["required"])

	img := fields["home.hero.image"]
	assert.Equal(t, "img", img.Element)
	assert.Equal(t, "", img.TextContent)
	typ, _ := img.Attr("type")
	assert.Equal(t, "image", typ)
	width, _ := img.Attr("width")
	assert.Equal(t, "6", width)

	sub := fields["home.hero.subtitle"]
	rows, _ := sub.Attr("rows")
	assert.Equal(t, "4", rows)
	hint, ok := sub.Attr("hint")
	assert.True(t, ok, "unknown family attributes pass through")
	assert.Equal(t, "Shown below", hint)
	assert.Equal(t, "Sub", sub.TextContent)

	badge := fields["home.hero.badge"]
	assert.Equal(t, "Hero.Title", badge.Element)
	hidden, _ := badge.Attr("hidden")
	assert.Equal(t, "true", hidden)
}

func TestExtractSource_JSX(t *testing.T) {
	src := `export const About = () => (
  <div>
    <h2 data-cms={'about.team.heading'}>Our team</h2>
    <ul>
      <li data-cms="about.team.$.name" data-cms-type="text">Ada</li>
    </ul>
  </div>
);
`
	r := extract(t, src, LangJavaScript)
	assert.Empty(t, r.Errors)
	require.Len(t, r.Fields, 2)
	assert.Equal(t, "about.team.heading", r.Fields[0].Path)
	assert.Equal(t, "Our team", r.Fields[0].TextContent)
	assert.Equal(t, "about.team.$.name", r.Fields[1].Path)
}

func TestExtractSource_NonLiteralValues(t *testing.T) {
	src := `export function Page({ key, kind }) {
  return (
    <main>
      <h1 data-cms={key}>Dynamic</h1>
      <h2 data-cms>Bare</h2>
      <p data-cms="home.body.text" data-cms-type={kind}>Body</p>
      <p data-cms="home.body.ok">Fine</p>
    </main>
  );
}
`
	r := extract(t, src, LangTSX)

	require.Len(t, r.Fields, 1, "only the literal marker survives")
	assert.Equal(t, "home.body.ok", r.Fields[0].Path)

	require.Len(t, r.Errors, 3)
	for _, e := range r.Errors {
		assert.Equal(t, cmerrors.KindParse, e.Kind)
		assert.Equal(t, "src/Hero.tsx", e.File)
		assert.Positive(t, e.Line)
	}
	assert.Equal(t, 4, r.Errors[0].Line)
	assert.Equal(t, 5, r.Errors[1].Line)
	assert.Equal(t, "home.body.text", r.Errors[2].Path)
}

func TestExtractSource_NestedElementPositions(t *testing.T) {
	src := "export function Home() {\n" +
		"  return (\n" +
		"    <main>\n" +
		"      <h1 data-cms=\"home.hero.title\">Welcome</h1>\n" +
		"\t\t<img data-cms=\"home.hero.image\" />\n" +
		"      <ul>\n" +
		"        <li>\n" +
		"          <span data-cms=\"home.features.$.title\">A</span>\n" +
		"        </li>\n" +
		"      </ul>\n" +
		"    </main>\n" +
		"  );\n" +
		"}\n"

	for _, lang := range []Language{LangTSX, LangJavaScript} {
		t.Run(string(lang), func(t *testing.T) {
			r := extract(t, src, lang)
			require.Empty(t, r.Errors)
			fields := byPath(r.Fields)

			cases := []struct {
				path         string
				line, column int
			}{
				{"home.hero.title", 4, 7},
				{"home.hero.image", 5, 3},
				{"home.features.$.title", 8, 11},
			}
			for _, tc := range cases {
				f, ok := fields[tc.path]
				require.True(t, ok, tc.path)
				assert.Equal(t, tc.line, f.Line, tc.path)
				assert.Equal(t, tc.column, f.Column, tc.path)
			}
		})
	}
}

func TestExtractSource_CustomAttribute(t *testing.T) {
	src := `const A = () => <div data-content="home.hero.title" data-content-type="richtext" data-cms="ignored.a.b" />;`

	e := NewExtractor("data-content")
	r, err := e.ExtractSource(context.Background(), "A.tsx", []byte(src), LangTSX)
	require.NoError(t, err)
	require.Len(t, r.Fields, 1)
	assert.Equal(t, "home.hero.title", r.Fields[0].Path)
	typ, _ := r.Fields[0].Attr("type")
	assert.Equal(t, "richtext", typ)
}

func TestExtractSource_SyntaxError(t *testing.T) {
	src := `export const X = () => <div data-cms="home.hero.title">Hi</div>;
const broken = (;
`
	r := extract(t, src, LangTSX)
	require.NotEmpty(t, r.Errors)
	assert.Equal(t, cmerrors.KindParse, r.Errors[0].Kind)
	assert.Equal(t, "syntax error", r.Errors[0].Message)
}

func TestExtractFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pages"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pages", "Hero.tsx"), []byte(heroTSX), 0644))

	r, err := NewExtractor("").ExtractFile(context.Background(), root, "pages/Hero.tsx")
	require.NoError(t, err)
	assert.Equal(t, "pages/Hero.tsx", r.File)
	assert.Len(t, r.Fields, 5)

	_, err = NewExtractor("").ExtractFile(context.Background(), root, "pages/missing.tsx")
	assert.Error(t, err)
}

func TestPool_ExtractFiles(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	write("a/Home.tsx", heroTSX)
	write("b/About.jsx", `export const About = () => <h1 data-cms="about.intro.title">About</h1>;`)
	write("c/Plain.tsx", `export const Plain = () => <div>nothing</div>;`)

	files := []string{"a/Home.tsx", "b/About.jsx", "c/Plain.tsx", "d/Gone.tsx"}
	pool := NewPool(PoolOptions{Concurrency: 2})

	results, err := pool.ExtractFiles(context.Background(), root, files)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, f := range files {
		assert.Equal(t, f, results[i].File, "results keep input order")
	}
	assert.Len(t, results[0].Fields, 5)
	assert.Len(t, results[1].Fields, 1)
	assert.False(t, results[2].HasMarkers())
	require.Len(t, results[3].Errors, 1)
	assert.Equal(t, cmerrors.KindIO, results[3].Errors[0].Kind)

	assert.Len(t, Detections(results), 6)
	assert.Len(t, Errors(results), 1)
	assert.Equal(t, Stats{Files: 4, Parsed: 4, Cached: 0}, pool.LastStats())
	assert.Equal(t, 3, pool.Cache().Len())

	// Second pass reuses unchanged files
	write("b/About.jsx", `export const About = () => <h1 data-cms="about.intro.heading">About</h1>;`)
	results, err = pool.ExtractFiles(context.Background(), root, files[:3])
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Parsed: 1, Cached: 2}, pool.LastStats())
	assert.Equal(t, "about.intro.heading", results[1].Fields[0].Path)

	// Invalidation forces a re-parse
	assert.True(t, pool.Invalidate("a/Home.tsx"))
	_, err = pool.ExtractFiles(context.Background(), root, files[:3])
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Parsed: 1, Cached: 2}, pool.LastStats())
}

func TestPool_ContextCancelled(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "A.tsx"), []byte(heroTSX), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPool(PoolOptions{}).ExtractFiles(ctx, root, []string{"A.tsx"})
	assert.ErrorIs(t, err, context.Canceled)
}
