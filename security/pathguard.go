package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Raw-string patterns that indicate a traversal or encoding attack. These
// are checked on the original string because canonicalization silently
// normalizes them away.
var rawAttackPatterns = []string{
	"..",
	"~",
	"\x00",
	"%00",
	"%2e%2e",
	"%2f",
	"%5c",
}

// Characters never allowed in a managed path
const forbiddenPathChars = `<>"|*?`

// ValidatePath reports whether path may be accessed under allowedRoot.
// The canonical absolute form must sit at or below the root, and the raw
// string must be free of traversal sequences, NUL bytes, their
// percent-encodings and the forbidden character set. A failed validation
// is an access denial, never a panic.
func ValidatePath(path, allowedRoot string) bool {
	if strings.TrimSpace(path) == "" || strings.TrimSpace(allowedRoot) == "" {
		return false
	}

	lower := strings.ToLower(path)
	for _, pattern := range rawAttackPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	if strings.ContainsAny(path, forbiddenPathChars) {
		return false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	root := filepath.Clean(allowedRoot)
	return abs == root || strings.HasPrefix(abs, root+string(filepath.Separator))
}

// CanonicalizeRoot resolves a configured root directory to its absolute
// form. A root containing traversal sequences is a configuration error;
// callers are expected to treat it as fatal at startup.
func CanonicalizeRoot(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("root directory is empty")
	}
	if strings.Contains(path, "..") || strings.Contains(path, "~") {
		return "", fmt.Errorf("root directory %q contains traversal sequences", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve root directory %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
