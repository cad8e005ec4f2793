// Package markup implements the minimal inline renderer used for assistant
// replies. It understands exactly three constructs: **bold** spans, single
// *italic* spans, and list lines ("* " or "- " prefixed) which are grouped
// into one list block between non-list lines. Everything else passes through
// verbatim.
//
// The renderer is engineered like the rest of our leaf libraries:
//
//   - Dependency-free and logging-free
//   - Restartable per line: parsing never carries state across lines
//     or blocks, so any line can be re-rendered in isolation
//   - Deterministic precedence: at a position where a bold and an italic
//     match overlap, bold wins
package markup

import "strings"

// SpanKind discriminates inline span types.
type SpanKind string

// Inline span kinds.
const (
	SpanText   SpanKind = "text"
	SpanBold   SpanKind = "bold"
	SpanItalic SpanKind = "italic"
)

// Span is one inline run of text with a single style.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text"`
}

// BlockKind discriminates block types.
type BlockKind string

// Block kinds.
const (
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
)

// Block is one rendered unit: a paragraph holds the spans of a single line,
// a list holds one span slice per consecutive list line.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Spans []Span    `json:"spans,omitempty"`
	Items [][]Span  `json:"items,omitempty"`
}

// Render splits input into lines and produces blocks. Consecutive list lines
// collapse into a single list block; every other non-empty line becomes its
// own paragraph. Blank lines only terminate a running list.
func Render(input string) []Block {
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")

	var (
		blocks []Block
		items  [][]Span
	)
	flushList := func() {
		if len(items) > 0 {
			blocks = append(blocks, Block{Kind: BlockList, Items: items})
			items = nil
		}
	}

	for _, line := range lines {
		if item, ok := listItem(line); ok {
			items = append(items, RenderLine(item))
			continue
		}
		flushList()
		if strings.TrimSpace(line) == "" {
			continue
		}
		blocks = append(blocks, Block{Kind: BlockParagraph, Spans: RenderLine(line)})
	}
	flushList()
	return blocks
}

// listItem reports whether a line is a list item and returns its content
// with the marker stripped. A marker is "*" or "-" followed by a space.
func listItem(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if strings.HasPrefix(t, "* ") || strings.HasPrefix(t, "- ") {
		return strings.TrimSpace(t[2:]), true
	}
	return "", false
}

// RenderLine parses the inline spans of a single line. It is a pure function
// of its argument: callers may re-render any line at any time.
//
// Matching walks left to right. At a '*' the parser first attempts a **bold**
// span, then a single-star *italic* span; an asterisk that opens neither is
// emitted verbatim. Span content must be non-empty.
func RenderLine(line string) []Span {
	var (
		spans []Span
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Kind: SpanText, Text: plain.String()})
			plain.Reset()
		}
	}

	i := 0
	for i < len(line) {
		if line[i] != '*' {
			plain.WriteByte(line[i])
			i++
			continue
		}

		// Bold takes precedence over an overlapping italic at this position.
		if strings.HasPrefix(line[i:], "**") {
			if end := strings.Index(line[i+2:], "**"); end > 0 {
				flush()
				spans = append(spans, Span{Kind: SpanBold, Text: line[i+2 : i+2+end]})
				i += 2 + end + 2
				continue
			}
			// No closer (or empty content): both stars are literal.
			plain.WriteString("**")
			i += 2
			continue
		}

		if end := strings.IndexByte(line[i+1:], '*'); end > 0 {
			flush()
			spans = append(spans, Span{Kind: SpanItalic, Text: line[i+1 : i+1+end]})
			i += 1 + end + 1
			continue
		}

		plain.WriteByte('*')
		i++
	}
	flush()
	return spans
}
