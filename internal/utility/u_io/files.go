package u_io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// CleanFilename replaces path separators and characters outside letters,
// digits and ".-_ " with underscores. Non-ASCII letters are kept so Hangul
// folder names stay readable.
func CleanFilename(filename string) string {
	filename = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' || r == ' ' {
			return r
		}
		return '_'
	}, filename)

	filename = strings.TrimSpace(filename)
	if filename == "" || filename == "." || filename == ".." {
		return "_"
	}
	return filename
}

// EnsureUniqueFilename returns path, or path with a numeric suffix when a
// file already exists there.
func EnsureUniqueFilename(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	basePath := path[:len(path)-len(ext)]

	for i := 1; i < 1000; i++ {
		newPath := fmt.Sprintf("%s_%d%s", basePath, i, ext)
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}

	return fmt.Sprintf("%s_%d%s", basePath, time.Now().UnixNano(), ext)
}
