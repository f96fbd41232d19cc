package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"weld/internal/diag"
)

// FileNames are probed in each directory, in order.
var FileNames = []string{"weld.toml", "weld.hcl"}

// Find walks up from startDir to locate a weld config file.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads, decodes and validates the config file at path.
func Load(path string, o Overrides) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Code: diag.IOError, Path: path, Msg: "cannot resolve path", Err: err}
	}
	// #nosec G304 -- path is the user's config file
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &Error{Code: diag.IOError, Path: abs, Msg: "cannot read config", Err: err}
	}
	return Parse(abs, data, o)
}

// Parse decodes data as TOML or HCL (chosen by the file extension of path)
// and validates it against the directory of path.
func Parse(path string, data []byte, o Overrides) (*Config, error) {
	var (
		raw rawConfig
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		raw, err = decodeHCL(path, data)
	} else {
		raw, err = decodeTOML(data)
	}
	if err != nil {
		return nil, &Error{Code: diag.ConfigInvalid, Path: path, Msg: "syntax error", Err: err}
	}
	o.apply(&raw)
	cfg, verr := validate(raw, filepath.Dir(path))
	if verr != nil {
		verr.Path = path
		return nil, verr
	}
	cfg.Path = path
	return cfg, nil
}

// FromOverrides builds a config without a file, rooted at root.
func FromOverrides(root string, o Overrides) (*Config, error) {
	var raw rawConfig
	o.apply(&raw)
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &Error{Code: diag.IOError, Path: root, Msg: "cannot resolve root", Err: err}
	}
	cfg, verr := validate(raw, abs)
	if verr != nil {
		return nil, verr
	}
	return cfg, nil
}

func decodeTOML(data []byte) (rawConfig, error) {
	var raw rawConfig
	meta, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&raw)
	if err != nil {
		return rawConfig{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			// plugin options are free-form
			if len(k) > 0 && k[0] == "plugins" {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return rawConfig{}, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	}
	return raw, nil
}

func validate(raw rawConfig, root string) (*Config, *Error) {
	cfg := &Config{Root: root}

	for _, e := range raw.Entries {
		if e = strings.TrimSpace(e); e != "" {
			cfg.Entries = append(cfg.Entries, e)
		}
	}
	if len(cfg.Entries) == 0 {
		return nil, invalid("entries", "at least one entry is required")
	}

	out := raw.Output
	switch {
	case out.Dir != "" && out.File != "":
		return nil, invalid("output", "dir and file are mutually exclusive")
	case out.File != "":
		cfg.Output.File = anchor(root, out.File)
	default:
		dir := out.Dir
		if dir == "" {
			dir = DefaultOutDir
		}
		cfg.Output.Dir = anchor(root, dir)
	}
	switch Format(strings.ToLower(out.Format)) {
	case "", FormatESM:
		cfg.Output.Format = FormatESM
	case FormatIIFE:
		cfg.Output.Format = FormatIIFE
	default:
		return nil, invalid("output.format", "unknown format %q (want esm or iife)", out.Format)
	}
	cfg.Output.SourceMap = out.SourceMap == nil || *out.SourceMap
	cfg.Output.Name = out.Name

	cfg.Resolve.Extensions = DefaultExtensions
	if len(raw.Resolve.Extensions) > 0 {
		cfg.Resolve.Extensions = nil
		for _, ext := range raw.Resolve.Extensions {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return nil, invalid("resolve.extensions", "extension %q must start with a dot", ext)
			}
			cfg.Resolve.Extensions = append(cfg.Resolve.Extensions, ext)
		}
	}
	for _, r := range raw.Resolve.Roots {
		cfg.Resolve.Roots = append(cfg.Resolve.Roots, anchor(root, r))
	}
	cfg.Resolve.External = append([]string(nil), raw.Resolve.External...)

	seenMinify := false
	for i, p := range raw.Plugins {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, invalid(fmt.Sprintf("plugins[%d].name", i), "plugin name is required")
		}
		seenMinify = seenMinify || name == "minify"
		cfg.Plugins = append(cfg.Plugins, PluginSpec{Name: name, Options: p.Options})
	}
	cfg.Minify = raw.Minify
	if raw.Minify && !seenMinify {
		cfg.Plugins = append(cfg.Plugins, PluginSpec{Name: "minify"})
	}

	cfg.Warnings = make(diag.Policy, len(raw.Warnings))
	for code, action := range raw.Warnings {
		a, err := diag.ParseAction(action)
		if err != nil {
			return nil, &Error{Code: diag.ConfigInvalid, Field: "warnings." + code, Msg: "bad action", Err: err}
		}
		cfg.Warnings[diag.ParseCode(code)] = a
	}

	cfg.Strict = raw.Strict
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, &Error{Code: diag.ConfigInvalid, Field: "timeout", Msg: "bad duration", Err: err}
		}
		if d < 0 {
			return nil, invalid("timeout", "must not be negative")
		}
		cfg.Timeout = d
	}

	cfg.MaxModules = raw.MaxModules
	if cfg.MaxModules == 0 {
		cfg.MaxModules = DefaultMaxModules
	}
	cfg.Jobs = raw.Jobs
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.GOMAXPROCS(0)
	}
	cfg.MaxDiagnostics = raw.MaxDiagnostics
	if cfg.MaxDiagnostics == 0 {
		cfg.MaxDiagnostics = DefaultMaxDiagnostics
	}
	if cfg.MaxModules < 0 || cfg.Jobs < 0 || cfg.MaxDiagnostics < 0 {
		return nil, invalid("limits", "max_modules, jobs and max_diagnostics must be positive")
	}

	if !raw.Cache.Disabled {
		dir := raw.Cache.Dir
		if dir == "" {
			dir = DefaultCacheDir
		}
		cfg.CacheDir = anchor(root, dir)
	}
	if raw.History.Path != "" {
		cfg.HistoryPath = anchor(root, raw.History.Path)
	}
	return cfg, nil
}

func anchor(root, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func dirOf(p string) string {
	return filepath.Dir(p)
}
