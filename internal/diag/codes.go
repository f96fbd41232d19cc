package diag

import "strings"

// Code is a stable diagnostic identifier. Builtin codes are listed below;
// plugins may report their own, which pass through the same policy.
type Code string

const (
	UnknownCode Code = "UNKNOWN"

	// resolution
	UnresolvedImport Code = "UNRESOLVED_IMPORT"
	EntryFailed      Code = "ENTRY_FAILED"

	// transform chain
	TransformFailed Code = "TRANSFORM_FAILED"

	// graph
	CycleOverflow      Code = "CYCLE_OVERFLOW"
	CircularDependency Code = "CIRCULAR_DEPENDENCY"

	// run control
	BuildTimeout Code = "BUILD_TIMEOUT"
	BuildAborted Code = "BUILD_ABORTED"

	// configuration
	ConfigInvalid      Code = "CONFIG_INVALID"
	InvalidPluginOrder Code = "INVALID_PLUGIN_ORDER"
	UnknownPlugin      Code = "UNKNOWN_PLUGIN"

	// output
	EmitFailed  Code = "EMIT_FAILED"
	NonJSModule Code = "NON_JS_MODULE"
	IOError     Code = "IO_ERROR"

	// builtin plugins
	SvgEmpty        Code = "SVG_EMPTY"
	CSSEmpty        Code = "CSS_EMPTY"
	ThisIsUndefined Code = "THIS_IS_UNDEFINED"
)

var codeDescription = map[Code]string{
	UnknownCode:        "Unknown diagnostic",
	UnresolvedImport:   "Import specifier could not be resolved",
	EntryFailed:        "Entry module failed",
	TransformFailed:    "Transform stage failed",
	CycleOverflow:      "Module graph exceeds node limit",
	CircularDependency: "Circular dependency",
	BuildTimeout:       "Build timed out",
	BuildAborted:       "Build aborted",
	ConfigInvalid:      "Invalid configuration",
	InvalidPluginOrder: "Plugins are not ordered by phase",
	UnknownPlugin:      "Unknown plugin",
	EmitFailed:         "Bundle emission failed",
	NonJSModule:        "Module was not converted to JavaScript",
	IOError:            "I/O error",
	SvgEmpty:           "SVG file is empty",
	CSSEmpty:           "Stylesheet is empty",
	ThisIsUndefined:    "Top-level this is rewritten to undefined",
}

// Known reports whether c is one of the builtin codes.
func (c Code) Known() bool {
	_, ok := codeDescription[c]
	return ok
}

// ID returns the canonical upper-case identifier.
func (c Code) ID() string {
	if c == "" {
		return string(UnknownCode)
	}
	return strings.ToUpper(string(c))
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return c.ID()
}

// ParseCode normalises user input ("this_is_undefined", " CSS_EMPTY ") into a Code.
func ParseCode(s string) Code {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "_")
	return Code(strings.ToUpper(s))
}
