package content

import (
	"strconv"
	"strings"
	"unicode"

	"gitlab.com/golang-commonmark/markdown"
)

// Heading is one ATX or setext heading outside code blocks.
type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
}

// plain parses for text extraction, so no typographic replacement or linkify.
var plain = markdown.New(
	markdown.HTML(false),
	markdown.Tables(true),
	markdown.Linkify(false),
	markdown.Typographer(false),
)

// Headings lists the document's headings in order.
func Headings(content string) []Heading {
	out := []Heading{}
	seen := map[string]int{}
	tokens := plain.Parse([]byte(content))
	for i, tok := range tokens {
		open, ok := tok.(*markdown.HeadingOpen)
		if !ok || i+1 >= len(tokens) {
			continue
		}
		inline, ok := tokens[i+1].(*markdown.Inline)
		if !ok {
			continue
		}
		text := strings.TrimSpace(strings.Join(strings.Fields(inlineText(inline.Children)), " "))
		if text == "" {
			continue
		}
		anchor := Slugify(text)
		if n, ok := seen[anchor]; ok {
			seen[anchor] = n + 1
			anchor = anchor + "-" + strconv.Itoa(n+1)
		} else {
			seen[anchor] = 0
		}
		out = append(out, Heading{Level: open.HLevel, Text: text, Anchor: anchor})
	}
	return out
}

// TableOfContents renders headings as a nested markdown list of anchor links.
func TableOfContents(headings []Heading) string {
	if len(headings) == 0 {
		return ""
	}
	minLevel := 6
	for _, h := range headings {
		if h.Level < minLevel {
			minLevel = h.Level
		}
	}
	var b strings.Builder
	for _, h := range headings {
		b.WriteString(strings.Repeat("  ", h.Level-minLevel))
		b.WriteString("- [")
		b.WriteString(h.Text)
		b.WriteString("](#")
		b.WriteString(h.Anchor)
		b.WriteString(")\n")
	}
	return b.String()
}

func inlineText(children []markdown.Token) string {
	var b strings.Builder
	for _, c := range children {
		switch t := c.(type) {
		case *markdown.Text:
			b.WriteString(t.Content)
		case *markdown.CodeInline:
			b.WriteString(t.Content)
		case *markdown.Image:
			b.WriteString(inlineText(t.Tokens))
		case *markdown.Softbreak, *markdown.Hardbreak:
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func trimTaskMarker(s string) string {
	for _, m := range []string{"[ ] ", "[x] ", "[X] "} {
		if strings.HasPrefix(s, m) {
			return strings.TrimLeft(s[len(m):], " ")
		}
	}
	return s
}

// StripMarkdown reduces markdown to readable plain text. Blocks are
// separated by a blank line; items of a tight list and table rows by one
// newline. Code blocks keep their content verbatim.
func StripMarkdown(content string) string {
	var b strings.Builder
	block := func(text string, tight bool) {
		if b.Len() > 0 {
			if tight {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(text)
	}

	var (
		listDepth int
		row       []string
		inRow     bool
		firstRow  bool
		tight     bool
		prevTight bool
	)
	for _, tok := range plain.Parse([]byte(content)) {
		switch t := tok.(type) {
		case *markdown.BulletListOpen, *markdown.OrderedListOpen:
			listDepth++
		case *markdown.BulletListClose, *markdown.OrderedListClose:
			listDepth--
		case *markdown.ParagraphOpen:
			tight = t.Hidden
		case *markdown.TableOpen:
			firstRow = true
		case *markdown.TrOpen:
			inRow, row = true, row[:0]
		case *markdown.TrClose:
			block(strings.Join(row, "  "), !firstRow)
			inRow, firstRow, prevTight = false, false, false
		case *markdown.Inline:
			text := inlineText(t.Children)
			if inRow {
				row = append(row, strings.TrimSpace(text))
				continue
			}
			if listDepth > 0 {
				text = trimTaskMarker(text)
			}
			block(text, tight && prevTight)
			prevTight, tight = tight, false
		case *markdown.Fence:
			block(strings.TrimRight(t.Content, "\n"), false)
			prevTight = false
		case *markdown.CodeBlock:
			block(strings.TrimRight(t.Content, "\n"), false)
			prevTight = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Preview returns at most maxRunes runes of stripped text on one line.
func Preview(content string, maxRunes int) string {
	text := strings.Join(strings.Fields(StripMarkdown(content)), " ")
	r := []rune(text)
	if maxRunes <= 0 || len(r) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(r[:maxRunes])) + "..."
}

// WordCount counts non-empty whitespace-separated tokens.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// Slugify lowercases s and joins its letters and digits with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
