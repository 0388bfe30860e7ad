// Package export 将案例导出为表格
package export

import (
	"bytes"
	"fmt"

	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/xuri/excelize/v2"
)

// SheetName 案例工作表名称
const SheetName = "Cases"

// headers 表头，与 models.CaseFieldNames 一一对应
var headers = []string{
	"Room", "Status", "Importance", "Type", "Title", "Action", "Guest",
	"Created", "Created By", "Modified", "Modified By", "Source",
	"Membership", "Case Description", "In/Out",
}

// columnWidths 描述类列加宽
var columnWidths = map[string]float64{
	"E": 32, // title
	"F": 48, // action
	"N": 60, // case description
}

// CasesXLSX 生成包含全部案例的工作簿，缺失字段留空
func CasesXLSX(records []models.CaseRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := r.Values()
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for col, width := range columnWidths {
		_ = f.SetColWidth(SheetName, col, col, width)
	}
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName 导出文件名
func FileName(documentName string) string {
	return fmt.Sprintf("%s-cases.xlsx", documentName)
}
