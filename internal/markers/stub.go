//go:build !cgo

package markers

import "context"

// Extractor is a stub for non-CGO builds.
type Extractor struct {
	attribute string
}

// NewExtractor creates a stub extractor.
func NewExtractor(attribute string) *Extractor {
	if attribute == "" {
		attribute = DefaultAttribute
	}
	return &Extractor{attribute: attribute}
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// ExtractSource always fails with ErrNoCGO.
func (e *Extractor) ExtractSource(ctx context.Context, file string, src []byte, lang Language) (*FileResult, error) {
	return nil, ErrNoCGO
}
