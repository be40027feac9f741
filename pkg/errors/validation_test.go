package errors

import (
	"path/filepath"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "skel.NDskl.a", false},
		{"nested", "runs/0001/skel.NDskl.a", false},
		{"absolute", "/data/skel.NDskl.a", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 5000)), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDistinctPaths(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "skel.a")

	if err := ValidateDistinctPaths(in, filepath.Join(dir, "skel.ndsklc")); err != nil {
		t.Errorf("distinct paths should pass: %v", err)
	}

	err := ValidateDistinctPaths(in, filepath.Join(dir, ".", "skel.a"))
	if !Is(err, ErrCodeInvalidPath) {
		t.Errorf("same path error = %v, want %s", err, ErrCodeInvalidPath)
	}

	if err := ValidateDistinctPaths("", "out"); err == nil {
		t.Error("empty input should fail")
	}
}
