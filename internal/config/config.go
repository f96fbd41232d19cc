// Package config loads and validates weld.toml / weld.hcl into an immutable
// Config. Validation happens once, before any build work starts.
package config

import (
	"fmt"
	"time"

	"weld/internal/diag"
)

// Format is the bundle output format.
type Format string

const (
	FormatESM  Format = "esm"
	FormatIIFE Format = "iife"
)

const (
	DefaultOutDir         = "dist"
	DefaultMaxModules     = 10000
	DefaultMaxDiagnostics = 1000
	DefaultCacheDir       = ".weld/cache"
	DefaultHistoryPath    = ".weld/history.db"
)

// DefaultExtensions is the probe list used when [resolve].extensions is unset.
var DefaultExtensions = []string{".ts", ".js"}

// Output describes where and how bundles are written. Exactly one of Dir or
// File is set after validation.
type Output struct {
	Dir       string
	File      string
	Format    Format
	SourceMap bool
	// Name is the global the iife format assigns entry exports to; empty means none.
	Name string
}

// SingleFile reports whether every entry goes into one bundle.
func (o Output) SingleFile() bool { return o.File != "" }

type Resolve struct {
	Extensions []string
	// Roots are absolute lookup directories for bare specifiers, in priority order.
	Roots    []string
	External []string
}

// PluginSpec is one configured chain stage.
type PluginSpec struct {
	Name    string
	Options map[string]any
}

// Config is the validated project configuration. Treat it as read-only.
type Config struct {
	// Root is the project directory; relative paths are anchored here.
	Root string
	// Path is the configuration file, empty for configs built in memory.
	Path string

	Entries  []string
	Output   Output
	Resolve  Resolve
	Plugins  []PluginSpec
	Warnings diag.Policy

	Minify bool
	Strict bool

	Timeout        time.Duration
	MaxModules     int
	Jobs           int
	MaxDiagnostics int

	// CacheDir enables the on-disk transform cache when non-empty.
	CacheDir string
	// HistoryPath enables the build history store when non-empty.
	HistoryPath string
}

// OutputDir is the directory bundles land in for either output mode.
func (c *Config) OutputDir() string {
	if c.Output.File != "" {
		return dirOf(c.Output.File)
	}
	return c.Output.Dir
}

// Error is a ConfigurationError: fatal, reported before any build work.
type Error struct {
	Code  diag.Code
	Path  string
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	prefix := ""
	if e.Path != "" {
		prefix = e.Path + ": "
	}
	if e.Field != "" {
		prefix += e.Field + ": "
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", prefix, e.Msg, e.Err)
	}
	return prefix + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic converts the error into a run-level diagnostic.
func (e *Error) Diagnostic() diag.Diagnostic {
	code := e.Code
	if code == "" {
		code = diag.ConfigInvalid
	}
	d := diag.Diagnostic{Severity: diag.SevError, Code: code, Message: e.Error(), Stage: "config"}
	return d
}

func invalid(field, format string, args ...any) *Error {
	return &Error{Code: diag.ConfigInvalid, Field: field, Msg: fmt.Sprintf(format, args...)}
}
