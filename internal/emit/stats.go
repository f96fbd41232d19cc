package emit

import (
	"bytes"
	"fmt"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// ModuleStat is one module's share of an output.
type ModuleStat struct {
	ID   string
	Path string // relative to the project root
	// Raw is the original source size, Final the bytes it occupies in the output.
	Raw   int
	Final int
}

// OutputStat summarizes one emitted file.
type OutputStat struct {
	Path    string // relative to the output directory
	Raw     int    // sum of the original sources
	Final   int
	Gzip    int
	Brotli  int
	Modules []ModuleStat
}

// Stats is computed from the artifacts and never changes them.
type Stats struct {
	Outputs []OutputStat
}

// Total adds up every output.
func (s Stats) Total() OutputStat {
	var t OutputStat
	for _, o := range s.Outputs {
		t.Raw += o.Raw
		t.Final += o.Final
		t.Gzip += o.Gzip
		t.Brotli += o.Brotli
	}
	return t
}

// compressedSizes reports the gzip and brotli sizes at their best levels.
func compressedSizes(data []byte) (gz, br int, err error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return 0, 0, err
	}
	if _, err := gw.Write(data); err != nil {
		return 0, 0, fmt.Errorf("gzip: %w", err)
	}
	if err := gw.Close(); err != nil {
		return 0, 0, fmt.Errorf("gzip: %w", err)
	}
	gz = buf.Len()

	buf.Reset()
	bw := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := bw.Write(data); err != nil {
		return 0, 0, fmt.Errorf("brotli: %w", err)
	}
	if err := bw.Close(); err != nil {
		return 0, 0, fmt.Errorf("brotli: %w", err)
	}
	return gz, buf.Len(), nil
}
