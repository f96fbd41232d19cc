package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// writeVLQ appends n as a source map base64 VLQ.
func writeVLQ(sb *strings.Builder, n int) {
	v := n << 1
	if n < 0 {
		v = (-n << 1) | 1
	}
	for {
		digit := v & 0x1f
		v >>= 5
		if v > 0 {
			digit |= 0x20
		}
		sb.WriteByte(base64Digits[digit])
		if v == 0 {
			return
		}
	}
}

// utf16Len counts UTF-16 code units, the unit of source map columns.
func utf16Len(b []byte) int {
	n := 0
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
		b = b[size:]
	}
	return n
}

// mapBuilder accumulates the mappings of one output file while the bundle
// text is written alongside it.
type mapBuilder struct {
	mappings strings.Builder

	genLine, genCol int
	prevGenCol      int
	prevSrc         int
	prevLine        int
	prevCol         int
	lineHasMark     bool
	lastMarkCol     int

	sources  []string
	contents []string
}

func (b *mapBuilder) addSource(name string, content []byte) int {
	b.sources = append(b.sources, name)
	b.contents = append(b.contents, string(content))
	return len(b.sources) - 1
}

// advance moves the generated position past text.
func (b *mapBuilder) advance(text []byte) {
	for len(text) > 0 {
		i := bytes.IndexByte(text, '\n')
		if i < 0 {
			b.genCol += utf16Len(text)
			return
		}
		b.mappings.WriteByte(';')
		b.genLine++
		b.genCol = 0
		b.prevGenCol = 0
		b.lineHasMark = false
		text = text[i+1:]
	}
}

// mark maps the current generated position to (src, line, col), all zero based.
func (b *mapBuilder) mark(src, line, col int) {
	if b.lineHasMark {
		if b.lastMarkCol == b.genCol {
			return
		}
		b.mappings.WriteByte(',')
	}
	writeVLQ(&b.mappings, b.genCol-b.prevGenCol)
	writeVLQ(&b.mappings, src-b.prevSrc)
	writeVLQ(&b.mappings, line-b.prevLine)
	writeVLQ(&b.mappings, col-b.prevCol)
	b.prevGenCol = b.genCol
	b.prevSrc, b.prevLine, b.prevCol = src, line, col
	b.lineHasMark = true
	b.lastMarkCol = b.genCol
}

type sourceMapV3 struct {
	Version        int      `json:"version"`
	File           string   `json:"file"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

func (b *mapBuilder) json(file string) ([]byte, error) {
	return json.Marshal(sourceMapV3{
		Version:        3,
		File:           file,
		Sources:        append([]string{}, b.sources...),
		SourcesContent: append([]string{}, b.contents...),
		Names:          []string{},
		Mappings:       b.mappings.String(),
	})
}
