package driver

import (
	"sync"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/project"
)

// cached is a successful chain result together with the diagnostics the
// chain reported, so a hit can replay them.
type cached struct {
	key    project.Digest
	module *plugin.Module
	diags  []diag.Diagnostic
}

// ModuleCache memoizes transform results in memory across builds of one
// process (watch mode). Entries are keyed by module identity and validated
// by a digest of content and chain fingerprint.
type ModuleCache struct {
	mu    sync.RWMutex
	byMod map[string]cached
}

// NewModuleCache creates a ModuleCache with the given capacity hint.
func NewModuleCache(capHint int) *ModuleCache {
	return &ModuleCache{byMod: make(map[string]cached, capHint)}
}

// Get returns a private copy of the cached module when key matches.
func (c *ModuleCache) Get(id string, key project.Digest) (*plugin.Module, []diag.Diagnostic, bool) {
	if c == nil {
		return nil, nil, false
	}
	c.mu.RLock()
	rec, ok := c.byMod[id]
	c.mu.RUnlock()
	if !ok || rec.key != key {
		return nil, nil, false
	}
	return rec.module.Clone(), rec.diags, true
}

// Put stores m under id, replacing any older version.
func (c *ModuleCache) Put(id string, key project.Digest, m *plugin.Module, diags []diag.Diagnostic) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.byMod[id] = cached{key: key, module: m.Clone(), diags: diags}
	c.mu.Unlock()
}

// Len is the number of cached modules.
func (c *ModuleCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byMod)
}
