package ner

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed names.yaml
var defaultNames []byte

// maxSurnameTokens 名字后最多追加的大写词数量
const maxSurnameTokens = 2

var wordToken = regexp.MustCompile(`[\p{L}'’\-]+`)

// dictionary 名字典文件结构
type dictionary struct {
	GivenNames []string `yaml:"given_names"`
	StopWords  []string `yaml:"stop_words"`
}

// Gazetteer 基于名字典的人名识别器
// 字典在首次使用时加载一次，之后只读
type Gazetteer struct {
	data    []byte
	path    string
	logger  *logrus.Logger
	once    sync.Once
	names   map[string]struct{}
	stop    map[string]struct{}
	loadErr error
}

// Option 识别器配置选项
type Option func(*Gazetteer)

// WithNamesFile 从文件加载字典，替代内置字典
func WithNamesFile(path string) Option {
	return func(g *Gazetteer) {
		g.path = path
	}
}

// WithData 使用给定的YAML内容作为字典
func WithData(data []byte) Option {
	return func(g *Gazetteer) {
		g.data = data
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(g *Gazetteer) {
		g.logger = logger
	}
}

// NewGazetteer 创建人名识别器
func NewGazetteer(opts ...Option) *Gazetteer {
	g := &Gazetteer{
		data:   defaultNames,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gazetteer) load() {
	g.once.Do(func() {
		data := g.data
		if g.path != "" {
			b, err := os.ReadFile(g.path)
			if err != nil {
				g.loadErr = fmt.Errorf("read names file %s: %w", g.path, err)
				g.logger.WithError(g.loadErr).Warn("Name recognizer unavailable")
				return
			}
			data = b
		}

		var d dictionary
		if err := yaml.Unmarshal(data, &d); err != nil {
			g.loadErr = fmt.Errorf("parse names dictionary: %w", err)
			g.logger.WithError(g.loadErr).Warn("Name recognizer unavailable")
			return
		}

		g.names = make(map[string]struct{}, len(d.GivenNames))
		for _, n := range d.GivenNames {
			g.names[normalize(n)] = struct{}{}
		}
		g.stop = make(map[string]struct{}, len(d.StopWords))
		for _, w := range d.StopWords {
			g.stop[normalize(w)] = struct{}{}
		}
		if len(g.names) == 0 {
			g.loadErr = fmt.Errorf("names dictionary is empty")
		}
		g.logger.WithFields(logrus.Fields{
			"given_names": len(g.names),
			"stop_words":  len(g.stop),
		}).Debug("Name recognizer loaded")
	})
}

// Available 字典是否成功加载
func (g *Gazetteer) Available() bool {
	g.load()
	return g.loadErr == nil
}

type token struct {
	start, end int
	text       string
}

// FindPersons 查找人名：已知名字，加上同一行内紧随其后的至多两个大写词
func (g *Gazetteer) FindPersons(text string) []Span {
	if !g.Available() {
		return nil
	}

	var tokens []token
	for _, loc := range wordToken.FindAllStringIndex(text, -1) {
		word := strings.Trim(text[loc[0]:loc[1]], "'’-")
		if word == "" {
			continue
		}
		start := loc[0] + strings.Index(text[loc[0]:loc[1]], word)
		tokens = append(tokens, token{start: start, end: start + len(word), text: word})
	}

	var spans []Span
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !isCapitalized(tok.text) || g.isStopWord(tok.text) {
			continue
		}
		if _, ok := g.names[normalize(tok.text)]; !ok {
			continue
		}

		end := tok.end
		j := i + 1
		for ; j < len(tokens) && j-i <= maxSurnameTokens; j++ {
			next := tokens[j]
			if !isCapitalized(next.text) || g.isStopWord(next.text) || !onlyBlanks(text[end:next.start]) {
				break
			}
			end = next.end
		}
		spans = append(spans, Span{
			Start: tok.start,
			End:   end,
			Text:  text[tok.start:end],
			Label: LabelPerson,
		})
		i = j - 1
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].Start < spans[b].Start })
	return spans
}

func (g *Gazetteer) isStopWord(word string) bool {
	_, ok := g.stop[normalize(word)]
	return ok
}

// isCapitalized 首字母大写且其后至少一个小写字母
func isCapitalized(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(r) || size == len(word) {
		return false
	}
	for _, c := range word[size:] {
		if unicode.IsLower(c) {
			return true
		}
	}
	return false
}

// onlyBlanks 两个词之间只有空格或制表符
func onlyBlanks(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}

// normalize 小写并去除重音，José 与 Jose 视为同一名字
// transformer 带状态，每次调用单独创建
func normalize(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
