package prover

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadHeader = errors.New("bad theory header")

// Header is the parsed `theory NAME imports ... begin` preamble.
type Header struct {
	Name     string
	Imports  []string
	Keywords []string
}

// HeaderResult carries either a header or the reason parsing failed. A
// failed result is still submitted; the prover reports it as a diagnostic.
type HeaderResult struct {
	Header Header
	Err    error
}

func (h HeaderResult) OK() bool { return h.Err == nil }

// ParseHeader reads the theory header at the start of content.
func ParseHeader(ref DocumentRef, content string) HeaderResult {
	toks := headerTokens(content)
	fail := func(format string, args ...interface{}) HeaderResult {
		return HeaderResult{Err: fmt.Errorf("%w: %s", ErrBadHeader, fmt.Sprintf(format, args...))}
	}

	if len(toks) == 0 || toks[0] != "theory" {
		return fail("expected \"theory\"")
	}
	if len(toks) < 2 || isHeaderKeyword(toks[1]) {
		return fail("missing theory name")
	}
	h := Header{Name: toks[1]}
	if ref.Name != "" && h.Name != ref.Name {
		return fail("theory name %q does not match file %q", h.Name, ref.Name)
	}

	section := ""
	for _, tok := range toks[2:] {
		switch tok {
		case "begin":
			if section != "imports" && section != "keywords" {
				return fail("expected \"imports\" before \"begin\"")
			}
			if len(h.Imports) == 0 {
				return fail("empty imports")
			}
			return HeaderResult{Header: h}
		case "imports", "keywords":
			section = tok
		default:
			switch section {
			case "imports":
				h.Imports = append(h.Imports, strings.Trim(tok, "\""))
			case "keywords":
				h.Keywords = append(h.Keywords, strings.Trim(tok, "\""))
			default:
				return fail("unexpected %q", tok)
			}
		}
	}
	return fail("missing \"begin\"")
}

func isHeaderKeyword(s string) bool {
	return s == "imports" || s == "keywords" || s == "begin"
}

// headerTokens splits on whitespace, skipping (* ... *) comments, and stops
// after the first "begin".
func headerTokens(s string) []string {
	var toks []string
	for len(s) > 0 {
		if strings.HasPrefix(s, "(*") {
			end := strings.Index(s, "*)")
			if end < 0 {
				return toks
			}
			s = s[end+2:]
			continue
		}
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" || strings.HasPrefix(s, "(*") {
			continue
		}
		n := strings.IndexAny(s, " \t\r\n")
		if c := strings.Index(s, "(*"); c >= 0 && (n < 0 || c < n) {
			n = c
		}
		if n < 0 {
			n = len(s)
		}
		toks = append(toks, s[:n])
		if s[:n] == "begin" {
			return toks
		}
		s = s[n:]
	}
	return toks
}
