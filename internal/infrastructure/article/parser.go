package article

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const summaryMaxRunes = 200

// Parsed is the structured form recovered from free-text model output.
type Parsed struct {
	Title   string
	Summary string
	Body    string
}

// Parser extracts article structure from markdown. Used when the model could
// not produce schema-constrained output and returned prose instead.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates the parser.
func NewParser() *Parser {
	return &Parser{md: goldmark.New()}
}

// Parse recovers title and summary from markdown: the title is the first
// level-1 heading (falling back to the first heading of any level), the
// summary is the first paragraph truncated to 200 characters. The body keeps
// the full markdown as written.
func (p *Parser) Parse(markdown string) *Parsed {
	source := []byte(markdown)
	root := p.md.Parser().Parse(text.NewReader(source))

	var title, firstHeading, firstParagraph string
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			if firstHeading == "" {
				firstHeading = heading
			}
			if n.Level == 1 && title == "" {
				title = heading
			}
		case *ast.Paragraph:
			if firstParagraph == "" {
				firstParagraph = nodeText(n, source)
			}
		}
		return ast.WalkContinue, nil
	})

	if title == "" {
		title = firstHeading
	}

	return &Parsed{
		Title:   strings.TrimSpace(title),
		Summary: truncate(strings.TrimSpace(firstParagraph), summaryMaxRunes),
		Body:    markdown,
	}
}

func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
