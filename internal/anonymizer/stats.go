package anonymizer

import (
	"strings"
)

// maxExamples 每个类别保留的示例数
const maxExamples = 3

// CategoryStat 单个类别的统计
type CategoryStat struct {
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

// Stats 敏感信息统计
type Stats struct {
	Total     int                     `json:"total_potential_pii"`
	Breakdown map[string]CategoryStat `json:"breakdown"`
}

func newStats() Stats {
	return Stats{Breakdown: map[string]CategoryStat{}}
}

func statsFromMatches(matches []Match) Stats {
	stats := newStats()
	for _, m := range matches {
		cs := stats.Breakdown[m.Category.Name]
		cs.Count++
		if len(cs.Examples) < maxExamples && !contains(cs.Examples, m.Text) {
			cs.Examples = append(cs.Examples, m.Text)
		}
		stats.Breakdown[m.Category.Name] = cs
		stats.Total++
	}
	return stats
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Summary 文档级匿名化摘要
type Summary struct {
	TotalReplacements    int            `json:"total_replacements"`
	ReplacementBreakdown map[string]int `json:"replacement_breakdown"`
	AnonymizationRatio   float64        `json:"anonymization_ratio"`
}

// Summarize 对比原文与匿名化结果，统计新增的占位符
// AnonymizationRatio 为占位符字符在匿名化文本中所占比例
func Summarize(original, anonymized []string) Summary {
	before := countPlaceholders(strings.Join(original, " "))
	anonText := strings.Join(anonymized, " ")
	after := countPlaceholders(anonText)

	summary := Summary{ReplacementBreakdown: map[string]int{}}
	placeholderChars := 0
	for name, n := range after {
		placeholderChars += n.chars
		added := n.count - before[name].count
		if added <= 0 {
			continue
		}
		summary.ReplacementBreakdown[name] = added
		summary.TotalReplacements += added
	}
	if len(anonText) > 0 {
		summary.AnonymizationRatio = float64(placeholderChars) / float64(len(anonText))
	}
	return summary
}

type placeholderCount struct {
	count int
	chars int
}

func countPlaceholders(text string) map[string]placeholderCount {
	counts := map[string]placeholderCount{}
	for _, token := range placeholderToken.FindAllString(text, -1) {
		c, ok := placeholderCategory(token)
		if !ok {
			continue
		}
		pc := counts[c.Name]
		pc.count++
		pc.chars += len(token)
		counts[c.Name] = pc
	}
	return counts
}
