package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestScanError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *ScanError
		wantParts []string
	}{
		{
			name:      "parse with full location",
			err:       Parse("src/Home.tsx", 12, 5, "marker path must be a string literal"),
			wantParts: []string{"[parse]", "src/Home.tsx:12:5", "string literal"},
		},
		{
			name:      "validation with path",
			err:       Validation("src/Home.tsx", 3, 0, "home.title", "path needs at least 3 segments"),
			wantParts: []string{"[validation]", "src/Home.tsx:3", `"home.title"`},
		},
		{
			name:      "io with cause",
			err:       IO("src/Gone.tsx", errors.New("permission denied")),
			wantParts: []string{"[io]", "src/Gone.tsx", "permission denied"},
		},
		{
			name:      "no location",
			err:       NewScanError(KindParse, "bad", nil),
			wantParts: []string{"[parse] bad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestScanError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := IO("a.tsx", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if Parse("a.tsx", 1, 1, "x").Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestScanError_Location(t *testing.T) {
	tests := []struct {
		file   string
		line   int
		column int
		want   string
	}{
		{"", 1, 1, ""},
		{"a.tsx", 0, 0, "a.tsx"},
		{"a.tsx", 4, 0, "a.tsx:4"},
		{"a.tsx", 4, 2, "a.tsx:4:2"},
	}

	for _, tt := range tests {
		e := NewScanError(KindParse, "m", nil).At(tt.file, tt.line, tt.column)
		if got := e.Location(); got != tt.want {
			t.Errorf("Location() = %q, want %q", got, tt.want)
		}
	}
}

func TestError(t *testing.T) {
	cause := errors.New("disk full")
	err := New(OutputFailed, "write schema", cause).WithDetails(map[string]string{"file": "schema.json"})

	if !strings.Contains(err.Error(), "OUTPUT_FAILED") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}

	noCause := New(InternalError, "boom", nil)
	if noCause.Error() != "[INTERNAL_ERROR] boom" {
		t.Errorf("Error() = %q", noCause.Error())
	}
}

func TestCountByKind(t *testing.T) {
	errs := []*ScanError{
		Parse("a", 1, 1, "x"),
		Parse("b", 1, 1, "y"),
		Validation("c", 1, 1, "p", "z"),
		nil,
	}

	counts := CountByKind(errs)
	if counts[KindParse] != 2 {
		t.Errorf("parse = %d, want 2", counts[KindParse])
	}
	if counts[KindValidation] != 1 {
		t.Errorf("validation = %d, want 1", counts[KindValidation])
	}
	if counts[KindIO] != 0 {
		t.Errorf("io = %d, want 0", counts[KindIO])
	}
}
