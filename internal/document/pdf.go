package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// PDFParser PDF文档解析器
// 先按页读取文本层，失败时退回到内容流中的文本操作符
type PDFParser struct {
	logger *logrus.Logger
}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	return &PDFParser{logger: logrus.StandardLogger()}
}

// Parse 解析PDF文件并提取其文本内容
func (p *PDFParser) Parse(filePath string) (string, error) {
	data, err := readFile(filePath)
	if err != nil {
		return "", err
	}
	return p.extract(data)
}

// ParseReader 从Reader解析PDF内容
func (p *PDFParser) ParseReader(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read pdf content: %v", ErrExtractionFailure, err)
	}
	return p.extract(data)
}

func (p *PDFParser) extract(data []byte) (string, error) {
	strategies := []struct {
		name string
		fn   func([]byte) (string, error)
	}{
		{"page_text", extractPDFPages},
		{"content_stream", extractPDFContentStreams},
	}

	failures := 0
	for _, s := range strategies {
		text, err := s.fn(data)
		if err != nil {
			failures++
			p.logger.WithFields(logrus.Fields{
				"strategy": s.name,
				"error":    err.Error(),
			}).Debug("PDF extraction strategy failed")
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
	}

	if failures == len(strategies) {
		return "", fmt.Errorf("%w: pdf could not be read", ErrExtractionFailure)
	}
	// 能打开但没有文本层，多为扫描件
	return "", fmt.Errorf("%w: pdf has no text layer", ErrUnsupportedFormat)
}

// extractPDFPages 按页读取纯文本，页与页之间用换行分隔
func extractPDFPages(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

var (
	// pdfShowText 匹配 (..) Tj / (..) ' / (..) " 以及 [..] TJ
	pdfShowText  = regexp.MustCompile(`(?s)(\((?:\\.|[^\\)])*\))\s*(?:Tj|'|")|\[((?:\\.|[^\]])*)\]\s*TJ`)
	pdfStringLit = regexp.MustCompile(`\((?:\\.|[^\\)])*\)`)
	pdfNewLine   = regexp.MustCompile(`\bT\*|\bTd\b|\bTD\b|\bET\b`)

	// contentPageFile pdfcpu 导出的页面内容文件名
	contentPageFile = regexp.MustCompile(`_Content_page_(\d+)\.txt$`)
)

// extractPDFContentStreams 使用 pdfcpu 导出页面内容流，再从文本操作符中取出字符串
func extractPDFContentStreams(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	tmpDir, err := os.MkdirTemp("", "pdfcpu_extract_")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	inFile := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp pdf: %v", err)
	}
	outDir := filepath.Join(tmpDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %v", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(inFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract content from pdf: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted content dir: %v", err)
	}
	sortContentFiles(entries)

	var pages []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		stream, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			continue
		}
		pages = append(pages, textFromContentStream(string(stream)))
	}
	return strings.Join(pages, "\n"), nil
}

// sortContentFiles 按页码排序导出的内容文件，无法识别页码的文件排在最后
func sortContentFiles(entries []os.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		pi, okI := contentPageNumber(entries[i].Name())
		pj, okJ := contentPageNumber(entries[j].Name())
		switch {
		case okI && okJ:
			return pi < pj
		case okI != okJ:
			return okI
		default:
			return entries[i].Name() < entries[j].Name()
		}
	})
}

func contentPageNumber(name string) (int, bool) {
	m := contentPageFile.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// textFromContentStream 从内容流中还原文本，换行操作符转为换行
func textFromContentStream(stream string) string {
	var b strings.Builder
	last := 0
	for _, loc := range pdfShowText.FindAllStringSubmatchIndex(stream, -1) {
		if pdfNewLine.MatchString(stream[last:loc[0]]) && b.Len() > 0 {
			b.WriteByte('\n')
		}
		last = loc[1]

		if loc[2] >= 0 {
			b.WriteString(unescapePDFString(stream[loc[2]:loc[3]]))
			continue
		}
		for _, lit := range pdfStringLit.FindAllString(stream[loc[4]:loc[5]], -1) {
			b.WriteString(unescapePDFString(lit))
		}
	}
	return strings.TrimSpace(b.String())
}

// unescapePDFString 去掉括号并处理转义序列
func unescapePDFString(lit string) string {
	s := strings.TrimSuffix(strings.TrimPrefix(lit, "("), ")")
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b', 'f':
		case '\n':
		default:
			if s[i] >= '0' && s[i] <= '7' {
				n, j := 0, i
				for ; j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7'; j++ {
					n = n*8 + int(s[j]-'0')
				}
				b.WriteByte(byte(n))
				i = j - 1
				continue
			}
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
