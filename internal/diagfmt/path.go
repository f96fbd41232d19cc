package diagfmt

import (
	"path/filepath"
	"strings"
)

func formatPath(path, base string, mode PathMode) string {
	if path == "" {
		return ""
	}
	native := filepath.FromSlash(path)
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(native); err == nil {
			return filepath.ToSlash(abs)
		}
		return path
	case PathModeBasename:
		return filepath.Base(native)
	case PathModeRelative, PathModeAuto:
		if base == "" || !filepath.IsAbs(native) {
			return path
		}
		rel, err := filepath.Rel(base, native)
		if err != nil {
			return path
		}
		if mode == PathModeAuto && strings.HasPrefix(rel, "..") {
			return path
		}
		return filepath.ToSlash(rel)
	}
	return path
}
