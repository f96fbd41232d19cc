package config

// rawConfig is the shape shared by both file formats before validation.
type rawConfig struct {
	Entries        []string          `toml:"entries"`
	Output         rawOutput         `toml:"output"`
	Resolve        rawResolve        `toml:"resolve"`
	Plugins        []rawPlugin       `toml:"plugins"`
	Warnings       map[string]string `toml:"warnings"`
	Minify         bool              `toml:"minify"`
	Strict         bool              `toml:"strict"`
	Timeout        string            `toml:"timeout,omitempty"`
	MaxModules     int               `toml:"max_modules,omitempty"`
	Jobs           int               `toml:"jobs,omitempty"`
	MaxDiagnostics int               `toml:"max_diagnostics,omitempty"`
	Cache          rawCache          `toml:"cache"`
	History        rawHistory        `toml:"history"`
}

type rawOutput struct {
	Dir       string `toml:"dir,omitempty" hcl:"dir,optional"`
	File      string `toml:"file,omitempty" hcl:"file,optional"`
	Format    string `toml:"format,omitempty" hcl:"format,optional"`
	SourceMap *bool  `toml:"sourcemap,omitempty" hcl:"sourcemap,optional"`
	Name      string `toml:"name,omitempty" hcl:"name,optional"`
}

type rawResolve struct {
	Extensions []string `toml:"extensions,omitempty" hcl:"extensions,optional"`
	Roots      []string `toml:"roots,omitempty" hcl:"roots,optional"`
	External   []string `toml:"external,omitempty" hcl:"external,optional"`
}

type rawPlugin struct {
	Name    string         `toml:"name"`
	Options map[string]any `toml:"options,omitempty"`
}

type rawCache struct {
	Dir      string `toml:"dir,omitempty" hcl:"dir,optional"`
	Disabled bool   `toml:"disabled,omitempty" hcl:"disabled,optional"`
}

type rawHistory struct {
	Path string `toml:"path,omitempty" hcl:"path,optional"`
}

// Overrides carries command-line values that win over the file.
type Overrides struct {
	Entries   []string
	OutDir    string
	OutFile   string
	Format    string
	SourceMap *bool
	Minify    *bool
	Strict    *bool
	Jobs      int
	Timeout   string
	NoCache   bool
}

func (o Overrides) apply(raw *rawConfig) {
	if len(o.Entries) > 0 {
		raw.Entries = o.Entries
	}
	if o.OutDir != "" {
		raw.Output.Dir, raw.Output.File = o.OutDir, ""
	}
	if o.OutFile != "" {
		raw.Output.File, raw.Output.Dir = o.OutFile, ""
	}
	if o.Format != "" {
		raw.Output.Format = o.Format
	}
	if o.SourceMap != nil {
		raw.Output.SourceMap = o.SourceMap
	}
	if o.Minify != nil {
		raw.Minify = *o.Minify
	}
	if o.Strict != nil {
		raw.Strict = *o.Strict
	}
	if o.Jobs > 0 {
		raw.Jobs = o.Jobs
	}
	if o.Timeout != "" {
		raw.Timeout = o.Timeout
	}
	if o.NoCache {
		raw.Cache.Disabled = true
	}
}
