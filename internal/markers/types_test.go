package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageForFile(t *testing.T) {
	tests := []struct {
		name string
		lang Language
		ok   bool
	}{
		{"Home.tsx", LangTSX, true},
		{"lib/util.ts", LangTypeScript, true},
		{"lib/util.MTS", LangTypeScript, true},
		{"About.jsx", LangJavaScript, true},
		{"legacy.js", LangJavaScript, true},
		{"style.css", "", false},
	}
	for _, tt := range tests {
		lang, ok := LanguageForFile(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.lang, lang, tt.name)
	}
}

func TestDetectedFieldAttr(t *testing.T) {
	d := DetectedField{Attributes: map[string]*string{
		"label":    strPtr("Title"),
		"required": nil,
	}}

	v, ok := d.Attr("label")
	assert.True(t, ok)
	assert.Equal(t, "Title", v)

	v, ok = d.Attr("required")
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok = d.Attr("help")
	assert.False(t, ok)
}

func TestIsKnownAttribute(t *testing.T) {
	assert.True(t, IsKnownAttribute("validation"))
	assert.False(t, IsKnownAttribute("hint"))
	assert.Len(t, KnownAttributes, 18)
}

func TestLiteralHelpers(t *testing.T) {
	assert.Equal(t, "a b", stripQuotes(`"a b"`))
	assert.Equal(t, "x", stripQuotes("`x`"))
	assert.Equal(t, `"x'`, stripQuotes(`"x'`))
	assert.Equal(t, "it's\nok", unescapeJS(`it\'s\nok`))
	assert.Equal(t, "plain", unescapeJS("plain"))
}
