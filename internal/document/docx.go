package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/lu4p/cat"
	"github.com/sirupsen/logrus"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

	// minStructuredText 结构化解析结果超过该长度才直接采用
	minStructuredText = 100
	// minPrintableRun 字节扫描时保留的最短可打印片段
	minPrintableRun = 4
)

var (
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// DocxParser Word文档解析器
// 策略依次为：直接解析 document.xml、lu4p/cat、原始字节扫描
type DocxParser struct {
	logger *logrus.Logger
}

// NewDocxParser 创建Word文档解析器
func NewDocxParser() Parser {
	return &DocxParser{logger: logrus.StandardLogger()}
}

// Parse 解析docx文件
func (p *DocxParser) Parse(filePath string) (string, error) {
	data, err := readFile(filePath)
	if err != nil {
		return "", err
	}
	return p.extract(data)
}

// ParseReader 从Reader解析docx内容
func (p *DocxParser) ParseReader(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read docx content: %v", ErrExtractionFailure, err)
	}
	return p.extract(data)
}

func (p *DocxParser) extract(data []byte) (string, error) {
	var candidate string

	text, err := extractDocxXML(data)
	if err != nil {
		p.logger.WithError(err).Debug("DOCX XML extraction failed")
	} else {
		if len(strings.TrimSpace(text)) > minStructuredText {
			return text, nil
		}
		candidate = text
	}

	text, err = extractDocxCat(data)
	if err != nil {
		p.logger.WithError(err).Debug("DOCX cat extraction failed")
	} else if len(strings.TrimSpace(text)) > len(strings.TrimSpace(candidate)) {
		candidate = text
	}

	if strings.TrimSpace(candidate) != "" {
		return candidate, nil
	}

	if text := scanPrintableRuns(data); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("%w: no readable text in docx", ErrExtractionFailure)
}

// extractDocxCat 使用 lu4p/cat 读取文档文本
func extractDocxCat(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cat panic: %v", r)
		}
	}()
	text, err = cat.FromBytes(data)
	if err != nil {
		return "", err
	}
	return stripControl(text), nil
}

// stripControl 去掉除换行与制表符外的控制字符
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
}

// findDocxMainDocumentPath 从 [Content_Types].xml 中找到主文档路径
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return ""
		}
		if m := partNameRe.FindSubmatch(content); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
		if m := partNameRe2.FindSubmatch(content); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
		return ""
	}
	return ""
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractDocxXML 按文档顺序还原段落与表格
// 表格单元格以 " | " 连接，每行一行文本
func extractDocxXML(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a zip archive: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == docPath {
			if docXML, err = readZipFile(f); err != nil {
				return "", fmt.Errorf("read %s: %w", docPath, err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("%s not found", docPath)
	}

	return walkDocumentXML(bytes.NewReader(docXML))
}

func walkDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines      []string
		para       strings.Builder
		cell       strings.Builder
		row        []string
		inText     bool
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tbl":
				tableDepth++
			case "tr":
				row = row[:0]
			case "tc":
				cell.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				} else {
					lines = append(lines, text)
				}
			case "tc":
				if c := strings.TrimSpace(cell.String()); c != "" {
					row = append(row, c)
				}
			case "tr":
				if len(row) > 0 {
					lines = append(lines, strings.Join(row, " | "))
				}
			case "tbl":
				tableDepth--
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}

// scanPrintableRuns 在原始字节中寻找可读文本
// 同时尝试 UTF-16LE 与单字节解读，取较长者
func scanPrintableRuns(data []byte) string {
	wide := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		wide = append(wide, uint16(data[i])|uint16(data[i+1])<<8)
	}
	utf16Text := collectRuns(utf16.Decode(wide))

	narrow := make([]rune, len(data))
	for i, b := range data {
		narrow[i] = rune(b)
	}
	byteText := collectRuns(narrow)

	if len(utf16Text) >= len(byteText) {
		return utf16Text
	}
	return byteText
}

func collectRuns(rs []rune) string {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if s := strings.TrimSpace(string(current)); len([]rune(s)) >= minPrintableRun {
			runs = append(runs, s)
		}
		current = current[:0]
	}
	for _, r := range rs {
		if r <= unicode.MaxLatin1 && (unicode.IsPrint(r) || r == '\t') {
			current = append(current, r)
			continue
		}
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		flush()
	}
	flush()
	return strings.Join(runs, "\n")
}
