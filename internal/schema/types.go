// Package schema turns raw marker detections into a Page → Section → Field
// tree. A ProjectSchema is an immutable snapshot: nothing mutates it after
// Generate returns.
package schema

// Option is one choice of a select-like field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Source locates the element a field was detected on.
type Source struct {
	File    string `json:"file" yaml:"file"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Element string `json:"element,omitempty" yaml:"element,omitempty"`
}

// FieldSchema is a detection resolved into a typed entry.
type FieldSchema struct {
	Path string    `json:"path" yaml:"path"`
	Name string    `json:"name" yaml:"name"`
	Type FieldType `json:"type" yaml:"type"`

	Label       string   `json:"label" yaml:"label"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Validation  string   `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options     []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Condition   string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	Help        string   `json:"help,omitempty" yaml:"help,omitempty"`
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step        *float64 `json:"step,omitempty" yaml:"step,omitempty"`
	Accept      string   `json:"accept,omitempty" yaml:"accept,omitempty"`
	Multiple    bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Rows        *int     `json:"rows,omitempty" yaml:"rows,omitempty"`
	Width       *int     `json:"width,omitempty" yaml:"width,omitempty"`
	Readonly    bool     `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Hidden      bool     `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// Extra holds marker family attributes outside the recognised set.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`

	Source Source `json:"source" yaml:"source"`
}

// RepeaterConfig describes a repeatable section.
type RepeaterConfig struct {
	ItemFields []string `json:"itemFields" yaml:"itemFields"`
	MinItems   *int     `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems   *int     `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
}

// SectionSchema groups the fields of one page section.
type SectionSchema struct {
	Slug           string          `json:"slug" yaml:"slug"`
	Name           string          `json:"name" yaml:"name"`
	Fields         []FieldSchema   `json:"fields" yaml:"fields"`
	IsRepeater     bool            `json:"isRepeater" yaml:"isRepeater"`
	RepeaterConfig *RepeaterConfig `json:"repeaterConfig,omitempty" yaml:"repeaterConfig,omitempty"`
	Order          int             `json:"order" yaml:"order"`
}

// PageSchema groups the sections of one page.
type PageSchema struct {
	Slug        string          `json:"slug" yaml:"slug"`
	Name        string          `json:"name" yaml:"name"`
	Sections    []SectionSchema `json:"sections" yaml:"sections"`
	FieldCount  int             `json:"fieldCount" yaml:"fieldCount"`
	SourceFiles []string        `json:"sourceFiles" yaml:"sourceFiles"`
}

// Meta records how a snapshot was produced.
type Meta struct {
	SrcDir           string `json:"srcDir" yaml:"srcDir"`
	FilesScanned     int    `json:"filesScanned" yaml:"filesScanned"`
	FilesWithMarkers int    `json:"filesWithMarkers" yaml:"filesWithMarkers"`
	ScanDuration     int64  `json:"scanDuration" yaml:"scanDuration"` // milliseconds
}

// ProjectSchema is the aggregate root produced by one scan.
type ProjectSchema struct {
	Version     string       `json:"version" yaml:"version"`
	GeneratedAt string       `json:"generatedAt" yaml:"generatedAt"`
	Pages       []PageSchema `json:"pages" yaml:"pages"`
	PageCount   int          `json:"pageCount" yaml:"pageCount"`
	TotalFields int          `json:"totalFields" yaml:"totalFields"`
	Meta        Meta         `json:"meta" yaml:"meta"`
}

// Fields returns every field in tree order.
func (s *ProjectSchema) Fields() []FieldSchema {
	if s == nil {
		return nil
	}
	out := make([]FieldSchema, 0, s.TotalFields)
	for _, p := range s.Pages {
		for _, sec := range p.Sections {
			out = append(out, sec.Fields...)
		}
	}
	return out
}

// FieldIndex maps full path to field.
func (s *ProjectSchema) FieldIndex() map[string]FieldSchema {
	fields := s.Fields()
	idx := make(map[string]FieldSchema, len(fields))
	for _, f := range fields {
		idx[f.Path] = f
	}
	return idx
}

// Page returns the page with the given slug.
func (s *ProjectSchema) Page(slug string) (*PageSchema, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Pages {
		if s.Pages[i].Slug == slug {
			return &s.Pages[i], true
		}
	}
	return nil, false
}

// Section returns the section with the given slug.
func (p *PageSchema) Section(slug string) (*SectionSchema, bool) {
	for i := range p.Sections {
		if p.Sections[i].Slug == slug {
			return &p.Sections[i], true
		}
	}
	return nil, false
}
