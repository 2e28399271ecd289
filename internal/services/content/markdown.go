// -----------------------------------------------------------------------
// Content normalization - markdown to plain text for analysis and chunking
// -----------------------------------------------------------------------

package content

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// maxHeadings caps how many headings ExtractHeadings reports per document
const maxHeadings = 20

var (
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// Heading is one document heading, kept for entry metadata
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// MarkdownToText strips markdown structure and returns plain text suitable
// for content analysis and chunking. Headings, list items and code blocks
// keep their text; formatting markers, link targets and inline HTML are
// dropped. Double newlines separate blocks.
func MarkdownToText(markdown string) string {
	markdown = stripFrontmatter(markdown)
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	source := []byte(markdown)
	doc := newMarkdown().Parser().Parse(text.NewReader(source))

	var out strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindHeading, ast.KindParagraph, ast.KindBlockquote, ast.KindList, extast.KindTable:
				out.WriteString("\n\n")
			case ast.KindListItem, extast.KindTableRow, extast.KindTableHeader:
				out.WriteString("\n")
			case extast.KindTableCell:
				out.WriteString(" ")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			out.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				out.WriteString(" ")
			}
		case *ast.AutoLink:
			out.Write(node.URL(source))
		case *ast.FencedCodeBlock:
			writeCodeLines(&out, source, node.Lines())
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeCodeLines(&out, source, node.Lines())
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return cleanText(out.String())
}

// ExtractHeadings returns the first headings of a markdown document in
// order of appearance, capped at 20. Used as entry metadata alongside the
// normalized text.
func ExtractHeadings(markdown string) []Heading {
	markdown = stripFrontmatter(markdown)
	if strings.TrimSpace(markdown) == "" {
		return nil
	}

	source := []byte(markdown)
	doc := newMarkdown().Parser().Parse(text.NewReader(source))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		headings = append(headings, Heading{
			Level: heading.Level,
			Text:  nodeText(heading, source),
		})
		if len(headings) >= maxHeadings {
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// nodeText collects the text segments under a node
func nodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if textNode, ok := child.(*ast.Text); ok {
				sb.Write(textNode.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func writeCodeLines(out *strings.Builder, source []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		out.Write(line.Value(source))
	}
	out.WriteString("\n")
}

// cleanText collapses runs of spaces and blank lines left by the walk
func cleanText(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = newlineRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripFrontmatter removes YAML frontmatter delimited by --- at the start
// of the content. Markdown fetched from repositories and document stores
// often carries build metadata there that has no place in the knowledge base.
func stripFrontmatter(markdown string) string {
	if !strings.HasPrefix(markdown, "---\n") {
		return markdown
	}

	endIdx := strings.Index(markdown[4:], "\n---\n")
	if endIdx == -1 {
		return markdown
	}

	return strings.TrimSpace(markdown[4+endIdx+5:])
}
