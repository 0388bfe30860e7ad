// Package caseparser 将报告文本切分为案例块并按规则表提取字段
package caseparser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fyerfyer/case-extractor/internal/models"
)

const (
	maxTitleRunes        = 50  // 由描述生成标题时的最大长度
	maxDefaultTitleRunes = 100 // 默认案例标题的最大长度
	minDescriptionLength = 10  // 有效描述的最小长度
	minTitleLength       = 5   // 有效标题的最小长度
	minDefaultLineLength = 10  // 默认案例所需的最小行长度
)

// ParseCases 切分文本并提取每个块中的案例，无效块被丢弃
func ParseCases(text string) []models.CaseRecord {
	var cases []models.CaseRecord
	for _, block := range Segment(text) {
		if record, ok := ExtractFields(block); ok {
			cases = append(cases, *record)
		}
	}
	return cases
}

// ExtractFields 从单个块中提取案例字段
// 第二个返回值表示该块是否包含足够的信息成为一条案例
func ExtractFields(block string) (*models.CaseRecord, bool) {
	record := &models.CaseRecord{}
	for _, f := range caseFields {
		if v, ok := f.extract(block); ok {
			f.set(record, &v)
		}
	}
	record.Title = DeriveTitle(record)
	return record, isMeaningful(record)
}

// DeriveTitle 优先使用房间号，其次截断的描述，最后使用占位标题
func DeriveTitle(r *models.CaseRecord) string {
	if r.Room != nil && *r.Room != "" {
		return fmt.Sprintf("Room %s", *r.Room)
	}
	if r.CaseDescription != nil && strings.TrimSpace(*r.CaseDescription) != "" {
		return truncate(strings.TrimSpace(*r.CaseDescription), maxTitleRunes)
	}
	return models.UntitledCase
}

func isMeaningful(r *models.CaseRecord) bool {
	if r.Room != nil && strings.TrimSpace(*r.Room) != "" {
		return true
	}
	if r.CaseDescription != nil && len(*r.CaseDescription) > minDescriptionLength {
		return true
	}
	return r.Title != models.UntitledCase && len(r.Title) > minTitleLength
}

// DefaultCase 结构化提取无结果时，用第一条有意义的行构造一条案例
func DefaultCase(text string) (*models.CaseRecord, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= minDefaultLineLength {
			continue
		}
		title := truncate(line, maxDefaultTitleRunes)
		return &models.CaseRecord{
			Title:           title,
			Status:          models.StringPtr("Open"),
			Importance:      models.StringPtr("Medium"),
			Type:            models.StringPtr("General"),
			CaseDescription: models.StringPtr(line),
		}, true
	}
	return nil, false
}

// truncate 按字符截断，超长时追加省略号
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
