//go:build cgo

package markers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	cmerrors "contentmark/internal/errors"
)

// Extractor finds marker elements with tree-sitter. An Extractor owns its
// parser and must not be shared between goroutines.
type Extractor struct {
	attribute string
	parser    *sitter.Parser
}

// NewExtractor creates an extractor for the given marker attribute.
// An empty attribute selects DefaultAttribute.
func NewExtractor(attribute string) *Extractor {
	if attribute == "" {
		attribute = DefaultAttribute
	}
	return &Extractor{
		attribute: attribute,
		parser:    sitter.NewParser(),
	}
}

// IsAvailable reports whether tree-sitter is compiled in.
func IsAvailable() bool {
	return true
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// ExtractSource parses src and returns its detections. Marker problems are
// collected into the result; the error return is reserved for parser failures.
func (e *Extractor) ExtractSource(ctx context.Context, file string, src []byte, lang Language) (*FileResult, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	e.parser.SetLanguage(tsLang)
	tree, err := e.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()

	result := &FileResult{
		File:   file,
		Fields: []DetectedField{},
		Hash:   HashContent(src),
	}

	if root.HasError() {
		if n := firstErrorNode(root); n != nil {
			line, col := position(src, n)
			result.Errors = append(result.Errors, cmerrors.Parse(file, line, col, "syntax error"))
		}
	}

	w := &walker{
		attribute: e.attribute,
		family:    e.attribute + "-",
		file:      file,
		src:       src,
		result:    result,
	}
	w.walk(root)

	return result, nil
}

type walker struct {
	attribute string
	family    string
	file      string
	src       []byte
	result    *FileResult
}

func (w *walker) walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "jsx_opening_element":
		w.visitElement(node, node.Parent())
	case "jsx_self_closing_element":
		w.visitElement(node, nil)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i))
	}
}

// visitElement inspects one tag. body is the enclosing jsx_element for
// opening tags and nil for self-closing ones.
func (w *walker) visitElement(tag, body *sitter.Node) {
	var (
		path       *string
		hasPath    bool
		attrs      = map[string]*string{}
		problems   []string
		pathIssues bool
	)

	for i := 0; i < int(tag.NamedChildCount()); i++ {
		child := tag.NamedChild(i)
		if child.Type() != "jsx_attribute" || child.NamedChildCount() == 0 {
			continue
		}

		name := child.NamedChild(0).Content(w.src)
		var valueNode *sitter.Node
		if child.NamedChildCount() > 1 {
			valueNode = child.NamedChild(1)
		}

		switch {
		case name == w.attribute:
			hasPath = true
			if valueNode == nil {
				pathIssues = true
				problems = append(problems, fmt.Sprintf("%s has no value", w.attribute))
				continue
			}
			v, ok := w.literal(valueNode)
			if !ok {
				pathIssues = true
				problems = append(problems, fmt.Sprintf("%s must be a string literal", w.attribute))
				continue
			}
			path = &v

		case strings.HasPrefix(name, w.family) && len(name) > len(w.family):
			key := name[len(w.family):]
			if valueNode == nil {
				attrs[key] = nil
				continue
			}
			v, ok := w.literal(valueNode)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s must be a literal value", name))
				continue
			}
			attrs[key] = strPtr(v)
		}
	}

	if !hasPath {
		return
	}

	line, col := position(w.src, tag)
	if len(problems) > 0 {
		msg := strings.Join(problems, "; ")
		se := cmerrors.Parse(w.file, line, col, msg)
		if !pathIssues && path != nil {
			se.Path = *path
		}
		w.result.Errors = append(w.result.Errors, se)
		return
	}

	field := DetectedField{
		Path:       *path,
		Attributes: attrs,
		File:       w.file,
		Line:       line,
		Column:     col,
		Element:    w.elementName(tag),
	}
	if body != nil && body.Type() == "jsx_element" {
		field.TextContent = w.textContent(body)
	}
	w.result.Fields = append(w.result.Fields, field)
}

func (w *walker) elementName(tag *sitter.Node) string {
	if n := tag.ChildByFieldName("name"); n != nil {
		return n.Content(w.src)
	}
	return ""
}

// literal resolves an attribute value node to a static string.
func (w *walker) literal(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string":
		// JSX attribute strings carry no escape sequences
		return stripQuotes(n.Content(w.src)), true
	case "jsx_expression":
		if n.NamedChildCount() != 1 {
			return "", false
		}
		return w.expressionLiteral(n.NamedChild(0))
	default:
		return "", false
	}
}

func (w *walker) expressionLiteral(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string":
		return unescapeJS(stripQuotes(n.Content(w.src))), true
	case "template_string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
		return unescapeJS(stripQuotes(n.Content(w.src))), true
	case "number", "true", "false":
		return n.Content(w.src), true
	case "unary_expression":
		text := strings.ReplaceAll(n.Content(w.src), " ", "")
		if _, err := strconv.ParseFloat(text, 64); err == nil {
			return text, true
		}
		return "", false
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return w.expressionLiteral(n.NamedChild(0))
		}
		return "", false
	default:
		return "", false
	}
}

// textContent joins the direct text children of an element, including
// string literal expressions like {"Welcome"}.
func (w *walker) textContent(body *sitter.Node) string {
	var parts []string
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "jsx_text":
			parts = append(parts, child.Content(w.src))
		case "jsx_expression":
			if child.NamedChildCount() != 1 {
				continue
			}
			inner := child.NamedChild(0)
			if inner.Type() != "string" && inner.Type() != "template_string" {
				continue
			}
			if v, ok := w.expressionLiteral(inner); ok {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			if found := firstErrorNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}

// position reports the 1-based line and column of the first non-blank byte
// of n. Nested JSX elements start at the whitespace before their tag, so
// StartPoint alone points at the end of the previous line.
func position(src []byte, n *sitter.Node) (line, column int) {
	start := int(n.StartByte())
	if start > len(src) {
		start = len(src)
	}
	for start < len(src) && isBlank(src[start]) {
		start++
	}
	line = 1 + bytes.Count(src[:start], []byte{'\n'})
	column = start - (bytes.LastIndexByte(src[:start], '\n') + 1) + 1
	return line, column
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
