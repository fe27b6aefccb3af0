package schema

// FieldType is one of the closed set of field type tags.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeRichtext    FieldType = "richtext"
	TypeMarkdown    FieldType = "markdown"
	TypeNumber      FieldType = "number"
	TypeRange       FieldType = "range"
	TypeEmail       FieldType = "email"
	TypeURL         FieldType = "url"
	TypeTel         FieldType = "tel"
	TypePassword    FieldType = "password"
	TypeDate        FieldType = "date"
	TypeDatetime    FieldType = "datetime"
	TypeTime        FieldType = "time"
	TypeColor       FieldType = "color"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeRadio       FieldType = "radio"
	TypeCheckbox    FieldType = "checkbox"
	TypeToggle      FieldType = "toggle"
	TypeBoolean     FieldType = "boolean"
	TypeImage       FieldType = "image"
	TypeGallery     FieldType = "gallery"
	TypeFile        FieldType = "file"
	TypeVideo       FieldType = "video"
	TypeAudio       FieldType = "audio"
	TypeIcon        FieldType = "icon"
	TypeLink        FieldType = "link"
	TypeButton      FieldType = "button"
	TypeJSON        FieldType = "json"
	TypeCode        FieldType = "code"
	TypeSlug        FieldType = "slug"
	TypeTags        FieldType = "tags"
	TypeReference   FieldType = "reference"
	TypeRelation    FieldType = "relation"
	TypeLocation    FieldType = "location"
	TypeRating      FieldType = "rating"
	TypeHidden      FieldType = "hidden"
	TypeRepeater    FieldType = "repeater"
)

// DefaultType is used when the type attribute is absent or unknown.
const DefaultType = TypeText

// FieldTypes lists every known tag.
var FieldTypes = []FieldType{
	TypeText, TypeTextarea, TypeRichtext, TypeMarkdown,
	TypeNumber, TypeRange,
	TypeEmail, TypeURL, TypeTel, TypePassword,
	TypeDate, TypeDatetime, TypeTime,
	TypeColor,
	TypeSelect, TypeMultiselect, TypeRadio, TypeCheckbox, TypeToggle, TypeBoolean,
	TypeImage, TypeGallery, TypeFile, TypeVideo, TypeAudio, TypeIcon,
	TypeLink, TypeButton,
	TypeJSON, TypeCode, TypeSlug, TypeTags,
	TypeReference, TypeRelation, TypeLocation, TypeRating,
	TypeHidden, TypeRepeater,
}

var knownTypes = func() map[FieldType]struct{} {
	m := make(map[FieldType]struct{}, len(FieldTypes))
	for _, t := range FieldTypes {
		m[t] = struct{}{}
	}
	return m
}()

// IsFieldType reports whether s is a known tag.
func IsFieldType(s string) bool {
	_, ok := knownTypes[FieldType(s)]
	return ok
}

// ResolveType returns the tag for s, or DefaultType when s is not known.
func ResolveType(s string) FieldType {
	if IsFieldType(s) {
		return FieldType(s)
	}
	return DefaultType
}

// HasOptions reports whether fields of this type take an option list.
func (t FieldType) HasOptions() bool {
	switch t {
	case TypeSelect, TypeMultiselect, TypeRadio, TypeCheckbox:
		return true
	}
	return false
}
