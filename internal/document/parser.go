package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat 扩展名不受支持，或文件中没有可提取的文本层
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtractionFailure 所有提取策略均失败
	ErrExtractionFailure = errors.New("document text extraction failed")
)

// Parser 文档解析器接口
// 负责将不同格式的报告解析为纯文本
type Parser interface {
	// Parse 解析文档，返回文本内容
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回文本内容
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// DOCX Word文档类型
	DOCX ContentType = "docx"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// SupportedExtensions 返回支持的文件扩展名
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt", ".md", ".markdown"}
}

// IsSupported 判断文件名的扩展名是否受支持
func IsSupported(filename string) bool {
	return DetectContentType(filename) != Unknown
}

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	switch DetectContentType(filePath) {
	case PDF:
		return NewPDFParser(), nil
	case DOCX:
		return NewDocxParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// Extract 根据文件名选择解析器，从内存中的文件内容提取文本
// 输出只取决于输入字节
func Extract(data []byte, filename string) (string, error) {
	p, err := ParserFactory(filename)
	if err != nil {
		return "", err
	}
	return p.ParseReader(bytes.NewReader(data), filename)
}

// ParseFile 从磁盘读取文件并提取文本
func ParseFile(filePath string) (string, error) {
	p, err := ParserFactory(filePath)
	if err != nil {
		return "", err
	}
	return p.Parse(filePath)
}

// readFile 供各解析器的 Parse 复用
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %v", ErrExtractionFailure, err)
	}
	return data, nil
}
