// Package markers finds annotated JSX/TSX elements in source files and turns
// them into raw field detections.
package markers

import (
	"errors"
	"path/filepath"
	"strings"

	cmerrors "contentmark/internal/errors"
)

// ErrNoCGO is returned when marker extraction is unavailable due to missing CGO.
var ErrNoCGO = errors.New("marker extraction requires CGO (tree-sitter)")

// DefaultAttribute is the marker attribute carrying the field path.
const DefaultAttribute = "data-cms"

// Language identifies the grammar used for a file.
type Language string

const (
	LangTSX        Language = "tsx"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
)

// LanguageFromExtension maps a file extension (with dot) to a grammar.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".tsx":
		return LangTSX, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".jsx", ".js", ".mjs", ".cjs":
		return LangJavaScript, true
	default:
		return "", false
	}
}

// LanguageForFile picks the grammar from the file name.
func LanguageForFile(name string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(name))
}

// KnownAttributes are the recognised members of the marker attribute family.
// Anything else in the family passes through as an opaque string.
var KnownAttributes = []string{
	"type", "label", "placeholder", "required", "validation", "options",
	"condition", "default", "help", "min", "max", "step", "accept",
	"multiple", "rows", "width", "readonly", "hidden",
}

// IsKnownAttribute reports whether name is a recognised family member.
func IsKnownAttribute(name string) bool {
	for _, k := range KnownAttributes {
		if k == name {
			return true
		}
	}
	return false
}

// DetectedField is one annotated element. A nil attribute value means the
// attribute was present without a value.
type DetectedField struct {
	Path        string             `json:"path"`
	Attributes  map[string]*string `json:"attributes"`
	File        string             `json:"file"`
	Line        int                `json:"line"`
	Column      int                `json:"column"`
	Element     string             `json:"element"`
	TextContent string             `json:"textContent,omitempty"`
}

// Attr returns the attribute value and whether the attribute is present.
func (d DetectedField) Attr(name string) (value string, present bool) {
	v, ok := d.Attributes[name]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return *v, true
}

// FileResult holds everything extracted from one file.
type FileResult struct {
	File   string                `json:"file"`
	Fields []DetectedField       `json:"fields"`
	Errors []*cmerrors.ScanError `json:"errors,omitempty"`
	Hash   string                `json:"hash"`
}

// HasMarkers reports whether the file produced at least one detection.
func (r *FileResult) HasMarkers() bool {
	return r != nil && len(r.Fields) > 0
}

func strPtr(s string) *string {
	return &s
}
