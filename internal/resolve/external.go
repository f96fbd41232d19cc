package resolve

import "strings"

// Externals matches specifiers that are never bundled. An entry ending in
// "/" matches by prefix, anything else must match exactly or as a package
// root ("react" matches "react" and "react/jsx-runtime").
type Externals []string

func (e Externals) Match(spec string) bool {
	for _, pattern := range e {
		if pattern == "" {
			continue
		}
		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(spec, pattern) {
				return true
			}
			continue
		}
		if spec == pattern || strings.HasPrefix(spec, pattern+"/") {
			return true
		}
	}
	return false
}
