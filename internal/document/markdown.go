package document

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MarkdownParser Markdown文档解析器
// 渲染为HTML后剥离标签，保留行结构供字段提取使用
type MarkdownParser struct{}

// NewMarkdownParser 创建新的Markdown解析器
func NewMarkdownParser() Parser {
	return &MarkdownParser{}
}

// Parse 解析Markdown文件并提取文本内容
func (p *MarkdownParser) Parse(filePath string) (string, error) {
	data, err := readFile(filePath)
	if err != nil {
		return "", err
	}
	return renderMarkdownText(data), nil
}

// ParseReader 从Reader解析Markdown内容
func (p *MarkdownParser) ParseReader(r io.Reader, filename string) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read markdown content: %v", ErrExtractionFailure, err)
	}
	return renderMarkdownText(content), nil
}

func renderMarkdownText(content []byte) string {
	mdParser := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := mdParser.Parse(content)

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return extractTextFromHTML(string(markdown.Render(doc, renderer)))
}

var (
	htmlBlockBreak = regexp.MustCompile(`(?i)<br\s*/?>|</(p|li|h[1-6]|tr|pre|blockquote)>`)
	htmlCellBreak  = regexp.MustCompile(`(?i)</t[dh]>\s*<t[dh][^>]*>`)
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

var htmlEntities = strings.NewReplacer(
	"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
)

// extractTextFromHTML 从渲染后的HTML中提取纯文本
func extractTextFromHTML(s string) string {
	s = htmlCellBreak.ReplaceAllString(s, " | ")
	s = htmlBlockBreak.ReplaceAllString(s, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	s = htmlEntities.Replace(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
