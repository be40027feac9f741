package errors

import (
	"path/filepath"
	"unicode"
)

// maxPathLength bounds user-supplied file paths.
const maxPathLength = 4096

// ValidatePath validates a user-supplied file path for safety.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - No null bytes or control characters
//   - Maximum length of 4096 bytes
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateDistinctPaths checks that the conversion input and output paths
// are both valid and do not name the same file.
func ValidateDistinctPaths(input, output string) error {
	if err := ValidatePath(input); err != nil {
		return err
	}
	if err := ValidatePath(output); err != nil {
		return err
	}
	in, err := filepath.Abs(input)
	if err != nil {
		return Wrap(ErrCodeInvalidPath, err, "resolve %s", input)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return Wrap(ErrCodeInvalidPath, err, "resolve %s", output)
	}
	if filepath.Clean(in) == filepath.Clean(out) {
		return New(ErrCodeInvalidPath, "output %q would overwrite the input", output)
	}
	return nil
}
