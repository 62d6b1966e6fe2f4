package errors

import (
	"fmt"
	"testing"
)

func errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }

func TestValidateThemeName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"default", false},
		{"dark-mode", false},
		{"", true},
		{"../etc", true},
		{"a/b", true},
		{"a\\b", true},
		{"a\x00b", true},
		{"a\nb", true},
	}

	for _, tt := range tests {
		err := ValidateThemeName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateThemeName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidInput) {
			t.Errorf("ValidateThemeName(%q) code = %v, want %v", tt.name, GetCode(err), ErrCodeInvalidInput)
		}
	}
}

func TestValidatePrefix(t *testing.T) {
	tests := []struct {
		prefix  string
		wantErr bool
	}{
		{"/", false},
		{"/blog", false},
		{"https://example.org/notes", false},
		{"http://localhost:8080", false},
		{"", true},
		{"blog", true},
		{"/a/../b", true},
		{"/with space", true},
		{"ftp://example.org", true},
	}

	for _, tt := range tests {
		err := ValidatePrefix(tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
		}
	}
}
