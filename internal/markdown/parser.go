package markdown

import (
	"bytes"
	"math"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/frontmatter"
)

// wordsPerMinute is the reading speed behind ReadTime.
const wordsPerMinute = 200

// Parser renders member-written markdown. Raw HTML in the source is
// dropped, so rendered output is safe to embed.
type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithXHTML(),
		),
	)

	return &Parser{
		md: md,
	}
}

func (p *Parser) Parse(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	err := p.md.Convert(source, &buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document is a markdown file split into its frontmatter and body.
type Document struct {
	Meta map[string]any
	Body string // Markdown without the frontmatter block
	HTML string
}

// ParseDocument reads a markdown file with optional YAML frontmatter.
func (p *Parser) ParseDocument(source []byte) (*Document, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer

	err := p.md.Convert(source, &buf, parser.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	return &Document{
		Meta: decodeMeta(frontmatter.Get(ctx)),
		Body: stripFrontmatter(string(source)),
		HTML: buf.String(),
	}, nil
}

func (p *Parser) ExtractFrontmatter(source []byte) map[string]any {
	ctx := parser.NewContext()
	p.md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))
	return decodeMeta(frontmatter.Get(ctx))
}

func decodeMeta(data *frontmatter.Data) map[string]any {
	if data == nil {
		return make(map[string]any)
	}

	var meta map[string]any
	err := data.Decode(&meta)
	if err != nil || meta == nil {
		return make(map[string]any)
	}
	return meta
}

func stripFrontmatter(source string) string {
	if !strings.HasPrefix(source, "---\n") && !strings.HasPrefix(source, "---\r\n") {
		return source
	}
	_, rest, _ := strings.Cut(source, "\n")
	for rest != "" {
		line, next, _ := strings.Cut(rest, "\n")
		rest = next
		if strings.TrimRight(line, "\r") == "---" {
			return strings.TrimLeft(rest, "\r\n")
		}
	}
	return source
}

// ReadTime estimates whole minutes needed to read source, at least one.
func ReadTime(source string) int {
	words := len(strings.FieldsFunc(source, func(r rune) bool {
		return unicode.IsSpace(r)
	}))
	return max(1, int(math.Ceil(float64(words)/wordsPerMinute)))
}
