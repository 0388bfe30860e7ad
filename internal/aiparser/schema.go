package aiparser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// caseListSchema 模型输出的案例数组结构
// 字段值允许字符串、数字或 null，数字在转换时格式化为字符串
func caseListSchema() map[string]any {
	props := make(map[string]any, len(models.CaseFieldNames))
	for _, name := range models.CaseFieldNames {
		props[name] = map[string]any{"type": []string{"string", "number", "null"}}
	}
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":       "object",
			"properties": props,
		},
	}
}

var (
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

// loadSchema 编译一次并复用
func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(caseListSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("cases.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("cases.json")
	})
	return compiledSchema, schemaErr
}

// validateCaseList 校验解码后的数组
func validateCaseList(v any) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match schema: %w", err)
	}
	return nil
}
