package caseparser

import (
	"regexp"
	"strings"
)

// MinBlockLength 短于该长度的块视为页眉页脚等噪声
const MinBlockLength = 50

// boundary 一条分段规则
type boundary struct {
	name string
	re   *regexp.Regexp
	// atStart 为 true 时在匹配起点切分并保留匹配内容，否则丢弃匹配的分隔符
	atStart bool
}

// boundaries 分段规则，按优先级排列
var boundaries = []boundary{
	{name: "created", re: regexp.MustCompile(`Created\s+\d{2}/\d{2}/\d{4}`), atStart: true},
	{name: "guest", re: regexp.MustCompile(`Guest\s+[A-Z][a-z]+`), atStart: true},
	{name: "room", re: regexp.MustCompile(`Room\s+\d+`), atStart: true},
	{name: "blank_lines", re: regexp.MustCompile(`\n\s*\n\s*\n`)},
	{name: "date", re: regexp.MustCompile(`\d{2}/\d{2}/\d{4}`), atStart: true},
}

// Segment 将报告文本切分为案例块
// 依次尝试各分段规则，第一条能切出多个部分的规则生效，之后再丢弃过短的块；
// 没有规则生效或没有剩余的块时整段文本作为唯一的块
func Segment(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	for _, b := range boundaries {
		parts := splitBy(text, b)
		if len(parts) < 2 {
			continue
		}
		if blocks := usableBlocks(parts); len(blocks) > 0 {
			return blocks
		}
		break
	}
	return []string{trimmed}
}

// splitBy 按规则切分文本
// 匹配位于文本开头时同样产生一个空的前导部分
func splitBy(text string, b boundary) []string {
	locs := b.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	parts := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		parts = append(parts, text[prev:loc[0]])
		if b.atStart {
			prev = loc[0]
		} else {
			prev = loc[1]
		}
	}
	return append(parts, text[prev:])
}

// usableBlocks 去除首尾空白并丢弃过短的块
func usableBlocks(parts []string) []string {
	blocks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) < MinBlockLength {
			continue
		}
		blocks = append(blocks, p)
	}
	return blocks
}
