package anonymizer

import "strings"

// preserveWords 字段标签与枚举取值，永远不会被识别为敏感信息
var preserveWords = toSet(
	// 字段标签
	"room", "status", "guest", "type", "importance", "source", "membership",
	"member", "action", "case", "created", "modified", "updated", "in/out",
	"title", "floor", "suite", "hotel", "description",
	// 枚举取值
	"open", "closed", "pending", "resolved", "in progress", "progress",
	"high", "medium", "low", "urgent", "critical",
	"negative", "positive", "neutral",
	"complaint", "request", "compliment", "feedback", "inquiry",
)

// excludedSubstrings 名字候选中包含这些子串即不视为人名
var excludedSubstrings = []string{
	"room", "floor", "suite", "hotel", "guest", "check", "booking",
	"maintenance", "service", "relations", "report", "additional", "notes",
	"status", "type", "importance", "source", "membership", "action",
	"case", "created", "modified",
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsPreserved 判断单词是否在保留列表中
func IsPreserved(word string) bool {
	_, ok := preserveWords[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// isExcludedWord 单词本身在保留列表中或包含排除子串
func isExcludedWord(word string) bool {
	if IsPreserved(word) {
		return true
	}
	lower := strings.ToLower(word)
	for _, sub := range excludedSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// containsPreserved 文本中任一单词在保留列表中
func containsPreserved(text string) bool {
	for _, w := range strings.Fields(text) {
		if IsPreserved(strings.Trim(w, ".,;:!?()")) {
			return true
		}
	}
	return false
}
