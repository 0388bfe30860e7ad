// Package anonymizer 从报告文本中识别并替换个人敏感信息
//
// 所有检测规则先在原文上收集候选片段，按"最长优先、同长取先执行的步骤、再取靠前位置"
// 的顺序消解重叠，最后一次性生成输出。已有的占位符不会被再次匹配，因此重复匿名化结果不变。
package anonymizer

import (
	"sort"
	"strings"

	"github.com/fyerfyer/case-extractor/internal/ner"
	"github.com/sirupsen/logrus"
)

// Options 匿名化选项
type Options struct {
	PreserveDates bool `json:"preserve_dates"` // 保留日期
	PreserveTimes bool `json:"preserve_times"` // 保留时间
}

// Match 一处被识别出的敏感信息
type Match struct {
	Category Category `json:"category"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Text     string   `json:"text"`
	step     int
}

// Anonymizer 匿名化器，可并发使用
type Anonymizer struct {
	recognizer ner.Recognizer
	logger     *logrus.Logger
}

// Option 匿名化器配置选项
type Option func(*Anonymizer)

// WithRecognizer 注入人名识别器
func WithRecognizer(r ner.Recognizer) Option {
	return func(a *Anonymizer) {
		a.recognizer = r
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Anonymizer) {
		a.logger = logger
	}
}

// New 创建匿名化器
func New(opts ...Option) *Anonymizer {
	a := &Anonymizer{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Anonymize 返回替换了敏感信息的文本
func (a *Anonymizer) Anonymize(text string, opts Options) string {
	out, _ := a.AnonymizeWithStats(text, opts)
	return out
}

// AnonymizeWithStats 返回匿名化文本以及本次替换的统计
func (a *Anonymizer) AnonymizeWithStats(text string, opts Options) (string, Stats) {
	if text == "" {
		return text, newStats()
	}

	matches := a.Detect(text, opts)
	out := render(text, matches)

	stats := statsFromMatches(matches)
	a.logger.WithFields(logrus.Fields{
		"input_length":  len(text),
		"output_length": len(out),
		"replacements":  stats.Total,
	}).Debug("Text anonymized")
	return out, stats
}

// Stats 统计文本中可识别的敏感信息，不修改文本
func (a *Anonymizer) Stats(text string) Stats {
	if text == "" {
		return newStats()
	}
	return statsFromMatches(a.Detect(text, Options{}))
}

// Detect 返回消解重叠后的敏感信息片段，按位置排序
func (a *Anonymizer) Detect(text string, opts Options) []Match {
	blocked := placeholderToken.FindAllStringIndex(text, -1)

	var candidates []Match
	add := func(c Category, step, start, end int) {
		if start < 0 || end > len(text) || start >= end {
			return
		}
		candidates = append(candidates, Match{
			Category: c,
			Start:    start,
			End:      end,
			Text:     text[start:end],
			step:     step,
		})
	}

	for _, d := range detectors {
		if (d.kind == kindDate && opts.PreserveDates) || (d.kind == kindTime && opts.PreserveTimes) {
			continue
		}
		for _, loc := range d.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2*d.group], loc[2*d.group+1]
			if start < 0 {
				continue
			}
			if d.adjust != nil {
				var ok bool
				if start, end, ok = d.adjust(text, start, end); !ok {
					continue
				}
			}
			add(d.category, d.step, start, end)
		}
	}

	if a.recognizer != nil && a.recognizer.Available() {
		for _, span := range a.recognizer.FindPersons(text) {
			if containsPreserved(span.Text) {
				continue
			}
			add(CategoryClientName, stepRecognizer, span.Start, span.End)
		}
	}

	for _, loc := range residualRun.FindAllStringIndex(text, -1) {
		for _, sub := range splitResidualRun(text, loc[0], loc[1]) {
			add(CategoryClientName, stepResidual, sub[0], sub[1])
		}
	}

	return resolve(candidates, blocked)
}

// splitResidualRun 在保留词或排除词处切分大写词串，保留至少两个词的子串
func splitResidualRun(text string, start, end int) [][2]int {
	var (
		subs  [][2]int
		first = -1
		last  = -1
		count = 0
	)
	flush := func() {
		if count >= 2 {
			subs = append(subs, [2]int{first, last})
		}
		first, last, count = -1, -1, 0
	}
	for _, w := range wordInRun.FindAllStringIndex(text[start:end], -1) {
		ws, we := start+w[0], start+w[1]
		if isExcludedWord(text[ws:we]) {
			flush()
			continue
		}
		if first < 0 {
			first = ws
		}
		last = we
		count++
	}
	flush()
	return subs
}

// resolve 最长优先消解重叠，与已有占位符重叠的候选直接丢弃
func resolve(candidates []Match, blocked [][]int) []Match {
	sort.SliceStable(candidates, func(i, j int) bool {
		li := candidates[i].End - candidates[i].Start
		lj := candidates[j].End - candidates[j].Start
		if li != lj {
			return li > lj
		}
		if candidates[i].step != candidates[j].step {
			return candidates[i].step < candidates[j].step
		}
		return candidates[i].Start < candidates[j].Start
	})

	var accepted []Match
	for _, c := range candidates {
		if overlapsAny(c.Start, c.End, blocked) {
			continue
		}
		conflict := false
		for _, m := range accepted {
			if c.Start < m.End && m.Start < c.End {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, c)
		}
	}

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	return accepted
}

func overlapsAny(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

// render 按位置一次性拼接输出
func render(text string, matches []Match) string {
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, m := range matches {
		b.WriteString(text[pos:m.Start])
		b.WriteString(m.Category.Placeholder)
		pos = m.End
	}
	b.WriteString(text[pos:])
	return b.String()
}
