package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/posmap"
	"weld/internal/project"
	"weld/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores transform results by content+chain digest on disk.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is the serialized form of a transformed module. Spans are
// stored as offsets only; file ids are reassigned on load.
type DiskPayload struct {
	Schema uint16

	ID         string
	Code       []byte
	Kind       string
	Origin     string
	Segments   []posmap.Segment
	Specifiers []DiskSpecifier
	Diags      []DiskDiagnostic
}

type DiskSpecifier struct {
	Path     string
	Start    uint32
	End      uint32
	HasSpan  bool
	External bool
	Stage    string
}

type DiskDiagnostic struct {
	Severity uint8
	Code     string
	Message  string
	Stage    string
	Start    uint32
	End      uint32
	HasSpan  bool
}

// OpenDiskCache initializes a disk cache rooted at dir.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir is the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	// two-level fan-out keeps directories small
	hexKey := key.String()
	return filepath.Join(c.dir, "mods", hexKey[:2], hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	payload.Schema = diskCacheSchemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload. A payload from another schema
// version counts as a miss.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	// #nosec G304 -- path is derived from a digest under the cache root
	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o750)
}

// moduleToDiskPayload converts a transformed module and its diagnostics.
func moduleToDiskPayload(m *plugin.Module, diags []diag.Diagnostic) *DiskPayload {
	payload := &DiskPayload{
		ID:     m.ID,
		Code:   m.Code,
		Kind:   string(m.Kind),
		Origin: m.Origin,
	}
	if m.Map != nil {
		payload.Segments = m.Map.Segments
	}
	payload.Specifiers = make([]DiskSpecifier, len(m.Specifiers))
	for i, s := range m.Specifiers {
		payload.Specifiers[i] = DiskSpecifier{
			Path:     s.Path,
			Start:    s.Span.Start,
			End:      s.Span.End,
			HasSpan:  s.Span.IsValid(),
			External: s.External,
			Stage:    s.Stage,
		}
	}
	payload.Diags = make([]DiskDiagnostic, len(diags))
	for i, d := range diags {
		payload.Diags[i] = DiskDiagnostic{
			Severity: uint8(d.Severity),
			Code:     string(d.Code),
			Message:  d.Message,
			Stage:    d.Stage,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
			HasSpan:  d.Primary.IsValid(),
		}
	}
	return payload
}

// diskPayloadToModule rebuilds a module over freshly loaded source.
func diskPayloadToModule(p *DiskPayload, base *plugin.Module) (*plugin.Module, []diag.Diagnostic) {
	m := base.Clone()
	m.Code = p.Code
	m.Kind = plugin.Kind(p.Kind)
	m.Origin = p.Origin
	m.Map = &posmap.Map{Segments: p.Segments}
	span := func(ok bool, start, end uint32) source.Span {
		if !ok {
			return source.Span{}
		}
		return source.Span{File: base.File, Start: start, End: end}
	}
	m.Specifiers = make([]plugin.Specifier, len(p.Specifiers))
	for i, s := range p.Specifiers {
		m.Specifiers[i] = plugin.Specifier{
			Path:     s.Path,
			Span:     span(s.HasSpan, s.Start, s.End),
			External: s.External,
			Stage:    s.Stage,
		}
	}
	diags := make([]diag.Diagnostic, len(p.Diags))
	for i, d := range p.Diags {
		diags[i] = diag.Diagnostic{
			Severity: diag.Severity(d.Severity),
			Code:     diag.Code(d.Code),
			Message:  d.Message,
			Stage:    d.Stage,
			Module:   base.ID,
			Primary:  span(d.HasSpan, d.Start, d.End),
		}
	}
	return m, diags
}
