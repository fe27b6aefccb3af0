package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"contentmark/internal/markers"
	"contentmark/internal/schema"
)

func attrs(kv ...string) map[string]*string {
	m := make(map[string]*string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		m[kv[i]] = &v
	}
	return m
}

// fixtureSchema builds a small schema with a plain section, a repeater and
// a page slug that needs quoting.
func fixtureSchema(t *testing.T, at time.Time) *schema.ProjectSchema {
	t.Helper()
	dets := []markers.DetectedField{
		{Path: "home.hero.title", File: "src/Home.tsx", Line: 3, Column: 5, Element: "h1",
			Attributes: attrs("required", "true", "label", "Headline <b>"), TextContent: "Welcome"},
		{Path: "home.hero.count", File: "src/Home.tsx", Line: 4, Column: 5, Element: "span",
			Attributes: attrs("type", "number", "min", "0", "max", "10.5")},
		{Path: "home.hero.theme", File: "src/Home.tsx", Line: 5, Column: 5, Element: "div",
			Attributes: attrs("type", "select", "options", "light:Light,dark:Dark", "x-color", "blue")},
		{Path: "home.features.$", File: "src/Features.tsx", Line: 2, Column: 3, Element: "ul",
			Attributes: attrs("min", "1", "max", "6")},
		{Path: "home.features.$.title", File: "src/Features.tsx", Line: 3, Column: 7, Element: "h3",
			Attributes: attrs("required", "")},
		{Path: "home.features.$.cta.href", File: "src/Features.tsx", Line: 4, Column: 7, Element: "a",
			Attributes: attrs("type", "url")},
		{Path: "about-us.team.bio", File: "src/About.tsx", Line: 9, Column: 1, Element: "p",
			Attributes: attrs("type", "textarea", "rows", "4", "width", "20")},
	}
	s, warnings := schema.Generate(dets, schema.Options{
		Sort:             false,
		SrcDir:           "src",
		FilesScanned:     4,
		FilesWithMarkers: 3,
		Now:              func() time.Time { return at },
	})
	require.Empty(t, warnings)
	return s
}

var fixtureTime = time.Date(2026, 10, 16, 9, 30, 0, 125_000_000, time.UTC)
