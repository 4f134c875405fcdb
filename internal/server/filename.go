package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// safeFilename strips path separators and control characters from a
// client-supplied filename and caps its length, keeping the extension.
func safeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "" || name == string(filepath.Separator) {
		return "document"
	}

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r < 32 || r == 127:
			sb.WriteByte('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			sb.WriteByte('_')
		default:
			sb.WriteRune(r)
		}
	}
	cleaned := sb.String()
	// Substitution can leave runs of underscores; collapse them.
	for strings.Contains(cleaned, "__") {
		cleaned = strings.ReplaceAll(cleaned, "__", "_")
	}

	ext := filepath.Ext(cleaned)
	base := strings.TrimSuffix(cleaned, ext)
	if len(base) > 120 {
		base = base[:120]
	}
	if base == "" {
		base = "document"
	}
	return base + ext
}

// uniquePath returns a path under dir that does not collide with an
// existing file, appending _1, _2, ... to the stem when needed.
func uniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// outputName swaps the extension of a source filename for the target
// format's extension.
func outputName(source, format string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + "." + format
}
