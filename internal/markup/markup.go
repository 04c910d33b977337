// Package markup translates the light markup used in advisor replies into
// blocks that a renderer can style without interpreting raw text.
package markup

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// Kind is the role of a block.
type Kind int

const (
	Paragraph Kind = iota
	Heading
	ListItem
	Blank
)

// Span is a run of text with uniform weight.
type Span struct {
	Text string
	Bold bool
}

// Block is one line of output.
type Block struct {
	Kind  Kind
	Level int // heading depth, 1 for "#"
	Spans []Span
}

// Text concatenates the spans.
func (b Block) Text() string {
	var sb strings.Builder
	for _, s := range b.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// Parse splits text into line blocks. Lines starting with one to six "#"
// followed by a space are headings, lines starting with "- " or "* " are list
// items and **text** is bold. Markers without a closing pair are kept as text.
func Parse(text string) []Block {
	text = Clean(strings.ReplaceAll(text, "\r\n", "\n"))
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, parseLine(line))
	}
	// trailing blank lines carry no content
	for len(blocks) > 0 && blocks[len(blocks)-1].Kind == Blank {
		blocks = blocks[:len(blocks)-1]
	}
	return blocks
}

// Clean drops terminal escape sequences and control characters other than
// newline. Tabs become spaces.
func Clean(s string) string {
	// 8-bit C1 introducers go first so Strip only sees 7-bit sequences
	s = strings.Map(func(r rune) rune {
		if r >= 0x80 && r <= 0x9f {
			return -1
		}
		return r
	}, s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, ansi.Strip(s))
}

func parseLine(line string) Block {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Block{Kind: Blank}
	}
	if level, rest, ok := heading(trimmed); ok {
		return Block{Kind: Heading, Level: level, Spans: spans(rest)}
	}
	for _, marker := range []string{"- ", "* "} {
		if rest, ok := strings.CutPrefix(trimmed, marker); ok {
			return Block{Kind: ListItem, Spans: spans(strings.TrimSpace(rest))}
		}
	}
	return Block{Kind: Paragraph, Spans: spans(trimmed)}
}

func heading(line string) (int, string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return 0, "", false
	}
	return level, strings.TrimSpace(line[level:]), true
}

func spans(s string) []Span {
	var out []Span
	for {
		open := strings.Index(s, "**")
		if open < 0 {
			break
		}
		end := strings.Index(s[open+2:], "**")
		if end < 0 {
			break
		}
		if open > 0 {
			out = append(out, Span{Text: s[:open]})
		}
		if bold := s[open+2 : open+2+end]; bold != "" {
			out = append(out, Span{Text: bold, Bold: true})
		}
		s = s[open+2+end+2:]
	}
	if s != "" {
		out = append(out, Span{Text: s})
	}
	return out
}
