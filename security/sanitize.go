package security

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
	multipleSpaces  = regexp.MustCompile(`\s+`)
)

// maxFilenameLength caps sanitized names so derived paths stay well under
// filesystem limits
const maxFilenameLength = 100

// SanitizeFilename reduces a user-supplied filename to a safe form usable
// for display and for deriving output names. The stored file never uses
// this name directly.
func SanitizeFilename(name string) string {
	// Basename only; a declared filename carrying directories is hostile.
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}

	base = multipleSpaces.ReplaceAllString(base, "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")
	base = strings.Trim(base, ".")

	if len(base) > maxFilenameLength {
		base = base[:maxFilenameLength]
	}
	if base == "" {
		base = "untitled_track"
	}
	return base
}
