// Package ner 提供人名实体识别
package ner

// LabelPerson 人名实体标签
const LabelPerson = "PERSON"

// Span 文本中的一个实体片段，Text == text[Start:End]
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Recognizer 实体识别器接口
// 实现必须可并发调用
type Recognizer interface {
	// FindPersons 返回文本中的人名片段，按起始位置排序
	FindPersons(text string) []Span

	// Available 识别器是否可用
	Available() bool
}
