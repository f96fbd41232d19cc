package minify

import (
	"bytes"
	"errors"

	"weld/internal/posmap"
)

var (
	errUnterminatedString   = errors.New("unterminated string literal")
	errUnterminatedTemplate = errors.New("unterminated template literal")
	errUnterminatedComment  = errors.New("unterminated block comment")
	errUnterminatedRegex    = errors.New("unterminated regular expression")
)

// keywords after which a slash starts a regular expression
var regexKeywords = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "of": true, "new": true, "delete": true, "void": true,
	"throw": true, "yield": true, "await": true, "instanceof": true,
}

type scanner struct {
	src       []byte
	rw        *posmap.Rewriter
	keepLegal bool

	pos int
	// last kept significant byte and the word it ended, for regex and spacing decisions
	last     byte
	lastWord string
	errAt    int
}

func (s *scanner) run() error {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isSpace(c) || s.commentAhead():
			if err := s.gap(); err != nil {
				return err
			}
		case s.legalAhead():
			end := s.commentEnd()
			if end < 0 {
				return errUnterminatedComment
			}
			s.pos = end
		case c == '"' || c == '\'':
			if err := s.quoted(c); err != nil {
				return err
			}
		case c == '`':
			if err := s.template(); err != nil {
				return err
			}
		case c == '/' && s.regexAllowed():
			if err := s.regex(); err != nil {
				return err
			}
		case isIdent(c):
			start := s.pos
			for s.pos < len(s.src) && isIdent(s.src[s.pos]) {
				s.pos++
			}
			s.lastWord = string(s.src[start:s.pos])
			s.last = s.src[s.pos-1]
		default:
			s.pos++
			s.last = c
			s.lastWord = ""
		}
	}
	return nil
}

func (s *scanner) commentAhead() bool {
	if s.pos+1 >= len(s.src) || s.src[s.pos] != '/' {
		return false
	}
	n := s.src[s.pos+1]
	if n == '/' {
		return true
	}
	return n == '*' && !(s.keepLegal && s.pos+2 < len(s.src) && s.src[s.pos+2] == '!')
}

// gap consumes a run of whitespace and removable comments and replaces it
// with the shortest separator that keeps the tokens on either side apart.
func (s *scanner) gap() error {
	start := s.pos
	newline := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isSpace(c) {
			if c == '\n' {
				newline = true
			}
			s.pos++
			continue
		}
		if !s.commentAhead() {
			break
		}
		if s.src[s.pos+1] == '/' {
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		}
		end := s.commentEnd()
		if end < 0 {
			return errUnterminatedComment
		}
		if bytes.IndexByte(s.src[s.pos:end], '\n') >= 0 {
			newline = true
		}
		s.pos = end
	}

	sep := ""
	switch {
	case start == 0 || s.pos == len(s.src):
		// leading and trailing space goes entirely
	case newline && !noNewlineNeeded(s.last, s.src[s.pos]):
		sep = "\n"
	case needsSpace(s.last, s.src[s.pos]):
		sep = " "
	}
	if string(s.src[start:s.pos]) != sep {
		s.rw.Replace(start, s.pos, sep)
	}
	return nil
}

func (s *scanner) quoted(q byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '\n':
			s.errAt = start
			return errUnterminatedString
		case q:
			s.pos++
			s.last, s.lastWord = q, ""
			return nil
		}
		s.pos++
	}
	s.errAt = start
	return errUnterminatedString
}

// template copies a template literal verbatim. Substitutions are tracked by
// brace depth only, so a nested template containing an unbalanced brace is
// not supported.
func (s *scanner) template() error {
	start := s.pos
	s.pos++
	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case depth == 0 && c == '`':
			s.pos++
			s.last, s.lastWord = '`', ""
			return nil
		case depth == 0 && c == '$' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '{':
			depth = 1
			s.pos++
		case depth > 0 && c == '{':
			depth++
		case depth > 0 && c == '}':
			depth--
		}
		s.pos++
	}
	s.errAt = start
	return errUnterminatedTemplate
}

func (s *scanner) regexAllowed() bool {
	if s.pos+1 < len(s.src) && (s.src[s.pos+1] == '/' || s.src[s.pos+1] == '*') {
		return false
	}
	if s.lastWord != "" {
		return regexKeywords[s.lastWord]
	}
	switch s.last {
	case 0, '(', ',', '=', ':', '[', '!', '&', '|', '?', '{', '}', ';', '+', '-', '*', '%', '<', '>', '~', '^':
		return true
	}
	return false
}

func (s *scanner) regex() error {
	start := s.pos
	s.pos++
	inClass := false
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case c == '\n':
			s.errAt = start
			return errUnterminatedRegex
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.pos++
			for s.pos < len(s.src) && isIdent(s.src[s.pos]) {
				s.pos++
			}
			s.last, s.lastWord = '/', ""
			return nil
		}
		s.pos++
	}
	s.errAt = start
	return errUnterminatedRegex
}

// needsSpace reports whether two adjacent tokens would merge without a space.
func needsSpace(prev, next byte) bool {
	if isIdent(prev) && isIdent(next) {
		return true
	}
	// a + +b, a - -b, and x / /re/
	return prev == next && (prev == '+' || prev == '-' || prev == '/')
}

// noNewlineNeeded lists the boundaries where automatic semicolon insertion
// cannot change meaning, so the line break can go.
func noNewlineNeeded(prev, next byte) bool {
	switch prev {
	case 0, '{', '(', '[', ',', ';', ':', '=':
		return true
	}
	switch next {
	case '}', ')', ']', ',', ';':
		return true
	}
	return false
}

// commentEnd returns the offset just past the block comment at pos.
func (s *scanner) commentEnd() int {
	i := bytes.Index(s.src[s.pos+2:], []byte("*/"))
	if i < 0 {
		s.errAt = s.pos
		return -1
	}
	return s.pos + 2 + i + 2
}

func (s *scanner) legalAhead() bool {
	return bytes.HasPrefix(s.src[s.pos:], []byte("/*!"))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
