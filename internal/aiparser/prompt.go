package aiparser

import (
	"strings"

	"github.com/fyerfyer/case-extractor/internal/llm"
	"github.com/fyerfyer/case-extractor/internal/models"
)

// systemPrompt 要求模型只输出案例数组
func systemPrompt(wrapped bool) string {
	fields := strings.Join(models.CaseFieldNames, ", ")
	parts := []string{
		"You extract guest relations cases from hotel operations reports.",
		"Each case describes one incident, usually tied to a room.",
		"Use exactly these keys for every case: " + fields + ".",
		"Copy values from the report verbatim. Use null for anything the report does not state.",
		`"title" must never be empty: use "Room <number>" when a room is known, otherwise a short summary of the case.`,
		"Bracketed tokens such as [CLIENT_NAME] are redacted values; keep them as they are.",
	}
	if wrapped {
		parts = append(parts, `Return ONLY a JSON object of the form {"cases": [...]}.`)
	} else {
		parts = append(parts, "Return ONLY a JSON array of case objects, with no commentary.")
	}
	return strings.Join(parts, " ")
}

func buildMessages(text string, wrapped bool) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(wrapped)},
		{Role: llm.RoleUser, Content: "Report:\n" + text},
	}
}
