package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/fieldpath"
	"contentmark/internal/markers"
	"contentmark/internal/version"
)

// TimeFormat is the layout of ProjectSchema.GeneratedAt.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options configures Generate.
type Options struct {
	// Sort orders pages and sections by slug and fields by path. Without it
	// everything keeps first-seen order.
	Sort bool

	SrcDir           string
	FilesScanned     int
	FilesWithMarkers int

	// StartedAt is when the scan began; ScanDuration is measured from it.
	StartedAt time.Time
	// Now defaults to time.Now.
	Now func() time.Time
}

type resolved struct {
	parsed    fieldpath.ParsedPath
	detection markers.DetectedField
	field     FieldSchema
}

// Generate builds a schema from the detections of one scan. Detections with
// invalid paths, duplicate paths or unparsable attribute values produce
// validation warnings instead of failing.
func Generate(detections []markers.DetectedField, opts Options) (*ProjectSchema, []*cmerrors.ScanError) {
	var warnings []*cmerrors.ScanError

	byPath := make(map[string]*resolved, len(detections))
	var order []string

	for _, d := range detections {
		parsed, err := fieldpath.Parse(d.Path)
		if err != nil {
			reason := err.Error()
			var ge *fieldpath.GrammarError
			if errors.As(err, &ge) {
				reason = "invalid field path: " + ge.Reason
			}
			warnings = append(warnings, cmerrors.Validation(d.File, d.Line, d.Column, d.Path, reason))
			continue
		}

		if first, dup := byPath[d.Path]; dup {
			warnings = append(warnings, cmerrors.Validation(d.File, d.Line, d.Column, d.Path,
				fmt.Sprintf("duplicate field path, first defined at %s:%d", first.detection.File, first.detection.Line)))
			continue
		}

		field, fieldWarnings := resolveField(d, parsed)
		warnings = append(warnings, fieldWarnings...)

		byPath[d.Path] = &resolved{parsed: parsed, detection: d, field: field}
		order = append(order, d.Path)
	}

	pageGroups := fieldpath.GroupByPage(order)
	sectionGroups := fieldpath.GroupBySection(order)

	// section keys per page, first-seen order
	sectionsOf := make(map[string][]string)
	for _, key := range sectionGroups.Keys() {
		page, _, _ := strings.Cut(key, fieldpath.Separator)
		sectionsOf[page] = append(sectionsOf[page], key)
	}

	pages := make([]PageSchema, 0, pageGroups.Len())
	totalFields := 0

	for _, pageSlug := range pageGroups.Keys() {
		page := PageSchema{
			Slug:     pageSlug,
			Name:     TitleCase(pageSlug),
			Sections: []SectionSchema{},
		}
		files := make(map[string]struct{})

		for _, sectionKey := range sectionsOf[pageSlug] {
			sectionPaths := sectionGroups.Get(sectionKey)
			if opts.Sort {
				sectionPaths = fieldpath.SortPaths(sectionPaths)
			}

			items := make([]*resolved, 0, len(sectionPaths))
			for _, p := range sectionPaths {
				r := byPath[p]
				items = append(items, r)
				if r.detection.File != "" {
					files[r.detection.File] = struct{}{}
				}
			}

			page.Sections = append(page.Sections, buildSection(items))
		}

		if opts.Sort {
			sort.SliceStable(page.Sections, func(i, j int) bool {
				return page.Sections[i].Slug < page.Sections[j].Slug
			})
		}
		for i := range page.Sections {
			page.Sections[i].Order = i
			page.FieldCount += len(page.Sections[i].Fields)
		}

		page.SourceFiles = make([]string, 0, len(files))
		for f := range files {
			page.SourceFiles = append(page.SourceFiles, f)
		}
		sort.Strings(page.SourceFiles)

		totalFields += page.FieldCount
		pages = append(pages, page)
	}

	if opts.Sort {
		sort.SliceStable(pages, func(i, j int) bool {
			return pages[i].Slug < pages[j].Slug
		})
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	finished := now()
	var duration int64
	if !opts.StartedAt.IsZero() {
		duration = finished.Sub(opts.StartedAt).Milliseconds()
	}

	return &ProjectSchema{
		Version:     version.SchemaFormat,
		GeneratedAt: finished.UTC().Format(TimeFormat),
		Pages:       pages,
		PageCount:   len(pages),
		TotalFields: totalFields,
		Meta: Meta{
			SrcDir:           opts.SrcDir,
			FilesScanned:     opts.FilesScanned,
			FilesWithMarkers: opts.FilesWithMarkers,
			ScanDuration:     duration,
		},
	}, warnings
}

func buildSection(items []*resolved) SectionSchema {
	first := items[0].parsed
	sec := SectionSchema{
		Slug:   first.Section,
		Name:   TitleCase(first.Section),
		Fields: make([]FieldSchema, 0, len(items)),
	}

	var container *FieldSchema
	var itemFields []string
	for _, r := range items {
		sec.Fields = append(sec.Fields, r.field)
		if !r.parsed.IsRepeater {
			continue
		}
		sec.IsRepeater = true
		if r.parsed.IsItemContainer() {
			f := r.field
			container = &f
			continue
		}
		itemFields = append(itemFields, r.parsed.RepeaterField)
	}

	if sec.IsRepeater {
		cfg := &RepeaterConfig{ItemFields: itemFields}
		if cfg.ItemFields == nil {
			cfg.ItemFields = []string{}
		}
		if container != nil {
			cfg.MinItems = floatToInt(container.Min)
			cfg.MaxItems = floatToInt(container.Max)
		}
		sec.RepeaterConfig = cfg
	}
	return sec
}

func floatToInt(f *float64) *int {
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// resolveField applies type resolution, coercion and defaults to one detection.
func resolveField(d markers.DetectedField, parsed fieldpath.ParsedPath) (FieldSchema, []*cmerrors.ScanError) {
	var warnings []*cmerrors.ScanError
	warn := func(format string, args ...interface{}) {
		warnings = append(warnings, cmerrors.Validation(d.File, d.Line, d.Column, d.Path, fmt.Sprintf(format, args...)))
	}

	f := FieldSchema{
		Path: d.Path,
		Name: parsed.LeafName(),
		Type: DefaultType,
		Source: Source{
			File:    d.File,
			Line:    d.Line,
			Column:  d.Column,
			Element: d.Element,
		},
	}

	if t, ok := d.Attr("type"); ok && t != "" {
		if IsFieldType(t) {
			f.Type = FieldType(t)
		} else {
			warn("unknown field type %q, using %s", t, DefaultType)
		}
	}

	if v, ok := d.Attr("label"); ok && strings.TrimSpace(v) != "" {
		f.Label = v
	} else {
		f.Label = TitleCase(parsed.LeafName())
	}

	f.Placeholder, _ = d.Attr("placeholder")
	f.Validation, _ = d.Attr("validation")
	f.Condition, _ = d.Attr("condition")
	f.Help, _ = d.Attr("help")
	f.Accept, _ = d.Attr("accept")

	if v, ok := d.Attr("default"); ok && v != "" {
		f.Default = v
	} else {
		f.Default = d.TextContent
	}

	for name, dst := range map[string]*bool{
		"required": &f.Required,
		"multiple": &f.Multiple,
		"readonly": &f.Readonly,
		"hidden":   &f.Hidden,
	} {
		if v, ok := d.Attr(name); ok {
			*dst = parseBool(v)
		}
	}

	for name, dst := range map[string]**float64{
		"min":  &f.Min,
		"max":  &f.Max,
		"step": &f.Step,
	} {
		if v, ok := d.Attr(name); ok {
			n, err := parseFloat(v)
			if err != nil {
				warn("invalid %s value %q", name, v)
				continue
			}
			*dst = n
		}
	}

	if v, ok := d.Attr("rows"); ok {
		if n, err := parseInt(v); err != nil {
			warn("invalid rows value %q", v)
		} else {
			f.Rows = n
		}
	}

	if v, ok := d.Attr("width"); ok {
		if n, err := parseInt(v); err != nil {
			warn("invalid width value %q", v)
		} else {
			w := clampWidth(*n)
			f.Width = &w
		}
	}

	if v, ok := d.Attr("options"); ok {
		opts, err := parseOptions(v)
		if err != nil {
			warn("%v", err)
		} else {
			f.Options = opts
		}
	}

	for name, v := range d.Attributes {
		if markers.IsKnownAttribute(name) {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]string)
		}
		if v == nil {
			f.Extra[name] = ""
		} else {
			f.Extra[name] = *v
		}
	}

	sortWarnings(warnings)
	return f, warnings
}

// sortWarnings orders warnings by message since attribute maps iterate in random order.
func sortWarnings(ws []*cmerrors.ScanError) {
	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].Message < ws[j].Message
	})
}
