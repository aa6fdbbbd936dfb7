package local

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bethropolis/proofsync/internal/prover"
	"github.com/bethropolis/proofsync/internal/text"
)

type command struct {
	id      prover.CommandID
	name    string
	source  string
	start   int
	length  int
	ignored bool

	status   prover.CommandStatus
	markup   []prover.Markup  // relative to start
	messages []prover.Message // relative to start
}

func (c *command) span() text.Range {
	return text.R(c.start, c.start+c.length)
}

type segment struct {
	start, length int
	source        string
	ignored       bool
}

// segments partitions content into runs of non-blank lines (commands) and
// runs of blank lines (ignored).
func segments(content []rune) []segment {
	var segs []segment
	lineStart := 0
	for lineStart < len(content) {
		lineEnd := lineStart
		for lineEnd < len(content) && content[lineEnd] != '\n' {
			lineEnd++
		}
		if lineEnd < len(content) {
			lineEnd++
		}
		line := string(content[lineStart:lineEnd])
		blank := strings.TrimSpace(line) == ""
		if k := len(segs) - 1; k >= 0 && segs[k].ignored == blank {
			segs[k].length += lineEnd - lineStart
			segs[k].source += line
		} else {
			segs = append(segs, segment{start: lineStart, length: lineEnd - lineStart, source: line, ignored: blank})
		}
		lineStart = lineEnd
	}
	return segs
}

type cmdKey struct {
	source  string
	ignored bool
}

// reparse rebuilds n.commands, keeping the identity and state of commands
// whose text is unchanged. Returned IDs cover new, moved and removed
// commands. Caller holds s.mu.
func (s *Session) reparse(n *node) []prover.CommandID {
	reuse := make(map[cmdKey][]*command)
	for _, c := range n.commands {
		k := cmdKey{c.source, c.ignored}
		reuse[k] = append(reuse[k], c)
	}

	var changed []prover.CommandID
	next := make([]*command, 0, len(n.commands))
	for _, seg := range segments(n.content) {
		k := cmdKey{seg.source, seg.ignored}
		if q := reuse[k]; len(q) > 0 {
			c := q[0]
			reuse[k] = q[1:]
			if c.start != seg.start {
				c.start = seg.start
				changed = append(changed, c.id)
			}
			next = append(next, c)
			continue
		}
		s.nextID++
		c := &command{
			id:      s.nextID,
			name:    firstWord(seg.source),
			source:  seg.source,
			start:   seg.start,
			length:  seg.length,
			ignored: seg.ignored,
		}
		next = append(next, c)
		changed = append(changed, c.id)
	}
	for _, q := range reuse {
		for _, c := range q {
			changed = append(changed, c.id)
		}
	}
	n.commands = next
	return changed
}

var wordRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_']*`)
var quoteRe = regexp.MustCompile("`[^`\n]*`")

func firstWord(s string) string {
	return wordRe.FindString(s)
}

// advance moves the command one processing stage forward. It reports
// whether anything observable changed.
func (c *command) advance(headerErr error) bool {
	switch c.status.Kind {
	case prover.StatusUnprocessed:
		c.status = prover.CommandStatus{Kind: prover.StatusRunning, Forks: c.forkCount()}
		if loc := wordRe.FindStringIndex(c.source); loc != nil {
			c.markup = append(c.markup, prover.Markup{Name: prover.MarkupTokenRange, Range: c.runeRange(loc)})
		}
		return true
	case prover.StatusRunning:
		if c.status.Forks > 0 {
			c.status.Forks--
			return true
		}
		c.finish(headerErr)
		return true
	}
	return false
}

// forkCount is the number of proof steps checked in forked tasks.
func (c *command) forkCount() int {
	n := 0
	for _, w := range wordRe.FindAllString(c.source, -1) {
		if w == "by" || w == "proof" {
			n++
		}
	}
	return n
}

func (c *command) finish(headerErr error) {
	failed := false
	if headerErr != nil {
		failed = true
		c.messages = append(c.messages, prover.Message{
			Name:  prover.MarkupError,
			Range: text.R(0, utf8.RuneCountInString(strings.TrimRightFunc(c.source, unicode.IsSpace))),
			Text:  headerErr.Error(),
		})
	}
	for _, loc := range wordRe.FindAllStringIndex(c.source, -1) {
		r := c.runeRange(loc)
		switch c.source[loc[0]:loc[1]] {
		case "sorry":
			c.messages = append(c.messages, prover.Message{Name: prover.MarkupWarning, Range: r, Text: "Skipped proof"})
		case "legacy":
			c.messages = append(c.messages, prover.Message{Name: prover.MarkupWarning, Range: r, Text: "Legacy feature", Legacy: true})
		case "oops":
			failed = true
			c.markup = append(c.markup, prover.Markup{Name: prover.MarkupBad, Range: r})
			c.messages = append(c.messages, prover.Message{Name: prover.MarkupError, Range: r, Text: "Failed to finish proof"})
		case "print", "value":
			rest := c.source[loc[1]:]
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				rest = rest[:nl]
			}
			out := strings.TrimSpace(rest)
			c.messages = append(c.messages, prover.Message{
				Name:  prover.MarkupWriteln,
				Range: c.runeRange([]int{loc[0], loc[1] + len(rest)}),
				Text:  out,
			})
		}
	}
	for _, loc := range quoteRe.FindAllStringIndex(c.source, -1) {
		c.markup = append(c.markup, prover.Markup{Name: prover.MarkupHilite, Range: c.runeRange(loc)})
	}
	if failed {
		c.status = prover.CommandStatus{Kind: prover.StatusFailed}
	} else {
		c.status = prover.CommandStatus{Kind: prover.StatusFinished}
	}
}

// runeRange converts a byte index pair in c.source to a rune range.
func (c *command) runeRange(loc []int) text.Range {
	start := utf8.RuneCountInString(c.source[:loc[0]])
	return text.R(start, start+utf8.RuneCountInString(c.source[loc[0]:loc[1]]))
}
