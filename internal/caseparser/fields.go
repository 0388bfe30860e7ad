package caseparser

import (
	"regexp"
	"strings"

	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/models"
)

// rule 单条字段提取规则
// re 的第一个分组为字段值；scan 用于无法用单条正则表达的规则
type rule struct {
	re     *regexp.Regexp
	accept func(value string) bool
	scan   func(block string) string
}

// apply 在块上执行规则，返回去除首尾空白后的值
func (r rule) apply(block string) (string, bool) {
	var value string
	if r.scan != nil {
		value = r.scan(block)
	} else {
		m := r.re.FindStringSubmatch(block)
		if m == nil {
			return "", false
		}
		value = m[1]
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if r.accept != nil && !r.accept(value) {
		return "", false
	}
	return value, true
}

// fieldRules 某字段的有序规则，第一条被接受的匹配生效
type fieldRules struct {
	field string
	set   func(r *models.CaseRecord, value *string)
	rules []rule
}

// extract 依次尝试规则
func (f fieldRules) extract(block string) (string, bool) {
	for _, r := range f.rules {
		if v, ok := r.apply(block); ok {
			return v, true
		}
	}
	return "", false
}

func re(expr string) rule {
	return rule{re: regexp.MustCompile(expr)}
}

func reAccept(expr string, accept func(string) bool) rule {
	return rule{re: regexp.MustCompile(expr), accept: accept}
}

func scan(fn func(block string) string) rule {
	return rule{scan: fn}
}

const (
	// lineValue 单行取值，遇到表格分隔符截止
	lineValue = `([^|\n\r]+)`
	// dateTime 日期加可选时间，兼容已匿名化的占位符
	dateTime      = `(?:\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2}|\[DATE\])(?:[ \t]+(?:\d{1,2}:\d{2}(?::\d{2})?(?:[ \t]*[AaPp][Mm])?|\[TIME\]))?`
	dateTimeValue = `(` + dateTime + `)`
	// actionSectionEnd 处理段落的结束位置
	actionSectionEnd = `(?:\n\s*Created|\n\s*CASE\b|$)`
)

var actionKeywords = []string{"update", "action", "resolved", "completed", "follow-up", "followup", "done", "finished"}

var (
	descriptionLabelPrefix = regexp.MustCompile(`(?i)^(?:Created|Guest|Status|Type|Room|Importance|Modified|Updated|Last\s+Updated|Source|Member(?:ship)?|IN/OUT|ACTION|Case)\b`)
	actionLabelPrefix      = regexp.MustCompile(`(?i)^(?:Created|Guest|Status|Type|Room|Importance|Modified|Source|Member(?:ship)?|IN/OUT|CASE)\b`)
	leadingDate            = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`)
	staffLine              = regexp.MustCompile(`^(?:\[[A-Z_]+\]|[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,3})$`)
	guestNonName           = regexp.MustCompile(`^(?:ID|Relations)\b`)
)

// notByClause 排除 "Created by" / "Modified by" 被当作日期字段
func notByClause(value string) bool {
	lower := strings.ToLower(value)
	return lower != "by" && !strings.HasPrefix(lower, "by ") && !strings.HasPrefix(lower, "by:")
}

func guestName(value string) bool {
	return !guestNonName.MatchString(value)
}

// caseFields 各字段的规则表
var caseFields = []fieldRules{
	{
		field: "guest",
		set:   func(r *models.CaseRecord, v *string) { r.Guest = v },
		rules: []rule{
			re(`Guest:[ \t]*` + lineValue),
			reAccept(`Guest[ \t]+(\[[A-Z_]+\]|[A-Za-z][A-Za-z .'\-]*)`, guestName),
		},
	},
	{
		field: "room",
		set:   func(r *models.CaseRecord, v *string) { r.Room = v },
		rules: []rule{
			re(`Room:\s*(\d+)`),
			re(`Room[ \t]*(?:No\.?|Number|#)?[ \t]*(\d+)`),
			re(`(?:^|[^\w/:.\-#\[])(\d{3,4})(?:$|[^\w/:.\-])`),
		},
	},
	{
		field: "status",
		set:   func(r *models.CaseRecord, v *string) { r.Status = v },
		rules: []rule{re(`Status:\s*(\w+)`), re(`Status\s+(\w+)`)},
	},
	{
		field: "importance",
		set:   func(r *models.CaseRecord, v *string) { r.Importance = v },
		rules: []rule{re(`Importance:\s*(\w+)`), re(`Importance\s+(\w+)`)},
	},
	{
		field: "type",
		set:   func(r *models.CaseRecord, v *string) { r.Type = v },
		rules: []rule{re(`Type:\s*(\w+)`), re(`Type\s+(\w+)`)},
	},
	{
		field: "source",
		set:   func(r *models.CaseRecord, v *string) { r.Source = v },
		rules: []rule{re(`Source:[ \t]*` + lineValue), re(`Source[ \t]+` + lineValue)},
	},
	{
		field: "membership",
		set:   func(r *models.CaseRecord, v *string) { r.Membership = v },
		rules: []rule{re(`Member(?:ship)?:[ \t]*` + lineValue), re(`Member(?:ship)?[ \t]+` + lineValue)},
	},
	{
		field: "in_out",
		set:   func(r *models.CaseRecord, v *string) { r.InOut = v },
		rules: []rule{
			re(`In/Out:[ \t]*` + lineValue),
			re(`IN/OUT[ \t]*\n\s*` + lineValue),
			re(`(?i)In/Out[ \t]+` + lineValue),
		},
	},
	{
		field: "modified",
		set:   func(r *models.CaseRecord, v *string) { r.Modified = v },
		rules: []rule{
			re(`Updated:[ \t]*` + lineValue),
			re(`Modified:[ \t]*` + lineValue),
			re(`(?:Updated|Modified)[ \t]+` + dateTimeValue),
			reAccept(`Updated[ \t]+`+lineValue, notByClause),
			reAccept(`Modified[ \t]+`+lineValue, notByClause),
		},
	},
	{
		field: "created",
		set:   func(r *models.CaseRecord, v *string) { r.Created = v },
		rules: []rule{
			re(`Created:[ \t]*` + lineValue),
			re(`\bDate:[ \t]*` + lineValue),
			re(`Created[ \t]+` + dateTimeValue),
			reAccept(`Created[ \t]+`+lineValue, notByClause),
		},
	},
	{
		field: "created_by",
		set:   func(r *models.CaseRecord, v *string) { r.CreatedBy = v },
		rules: []rule{
			re(`Created[ \t]+by:[ \t]*` + lineValue),
			re(`\bBy:[ \t]*` + lineValue),
			re(`Created[ \t]+by[ \t]+` + lineValue),
			re(`Created[ \t]+` + dateTime + `[ \t]+by[ \t]+` + lineValue),
		},
	},
	{
		field: "modified_by",
		set:   func(r *models.CaseRecord, v *string) { r.ModifiedBy = v },
		rules: []rule{
			re(`Modified[ \t]+by:[ \t]*` + lineValue),
			re(`Updated[ \t]+by:[ \t]*` + lineValue),
			re(`Modified[ \t]+by[ \t]+` + lineValue),
			re(`Updated[ \t]+by[ \t]+` + lineValue),
			re(`(?:Modified|Updated)[ \t]+` + dateTime + `[ \t]+by[ \t]+` + lineValue),
			scan(trailingStaffLine),
		},
	},
	{
		field: "case_description",
		set:   func(r *models.CaseRecord, v *string) { r.CaseDescription = v },
		rules: []rule{
			re(`(?s)(?:^|\n)[ \t]*(?i:case)[ \t]*\n\s*(.+?)(?:\n\s*(?i:action)\b|\n\s*Created|$)`),
			re(`(?im)^[ \t]*Case(?:[ \t]+Description)?[ \t]*:[ \t]*(.+)$`),
			re(`\bCASE[ \t]+(.+?)(?:[ \t]+ACTION\b|\n|$)`),
			scan(descriptionLines),
		},
	},
	{
		field: "action",
		set:   func(r *models.CaseRecord, v *string) { r.Action = v },
		rules: []rule{
			re(`(?s)(?:^|\n)[ \t]*(?i:action)[ \t]*\n\s*(.+?)` + actionSectionEnd),
			re(`(?s)Update:\s*(.+?)` + actionSectionEnd),
			re(`(?s)(?i:action)\s+(?i:taken|required):\s*(.+?)` + actionSectionEnd),
			scan(actionLines),
		},
	},
}

// trailingStaffLine 块末尾单独一行的员工姓名
func trailingStaffLine(block string) string {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(lines) < 2 || strings.Contains(last, ":") || !staffLine.MatchString(last) {
		return ""
	}
	for _, w := range strings.Fields(last) {
		if anonymizer.IsPreserved(w) {
			return ""
		}
	}
	return last
}

// descriptionLines 取前三条像描述的行
func descriptionLines(block string) string {
	var picked []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 20 || descriptionLabelPrefix.MatchString(line) || leadingDate.MatchString(line) {
			continue
		}
		if hasActionKeyword(line) {
			continue
		}
		picked = append(picked, line)
		if len(picked) == 3 {
			break
		}
	}
	joined := strings.Join(picked, " ")
	if len(joined) <= 10 {
		return ""
	}
	return joined
}

// actionLines 取前两条包含处理关键词的行
func actionLines(block string) string {
	var picked []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 15 || !hasActionKeyword(line) {
			continue
		}
		if actionLabelPrefix.MatchString(line) || leadingDate.MatchString(line) {
			continue
		}
		picked = append(picked, line)
		if len(picked) == 2 {
			break
		}
	}
	joined := strings.Join(picked, " ")
	if len(joined) <= 10 {
		return ""
	}
	return joined
}

func hasActionKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range actionKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
