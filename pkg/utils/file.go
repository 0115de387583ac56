package utils

import (
	"path/filepath"
	"strings"
)

// ImageExt infers a lowercase file extension (including the dot) from an
// uploaded filename, defaulting to .jpg when the name carries none. Object
// keys are built from this, never from the raw client filename.
func ImageExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
