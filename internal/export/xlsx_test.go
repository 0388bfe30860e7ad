package export

import (
	"bytes"
	"testing"

	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCasesXLSX(t *testing.T) {
	records := []models.CaseRecord{
		{
			Room:            models.StringPtr("101"),
			Status:          models.StringPtr("OPEN"),
			Title:           "Room 101",
			Guest:           models.StringPtr("[CLIENT_NAME]"),
			CaseDescription: models.StringPtr("AC not working"),
		},
		{Title: "Lobby noise", InOut: models.StringPtr("IN")},
	}

	data, err := CasesXLSX(records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Len(t, rows[0], len(models.CaseFieldNames))
	assert.Equal(t, "Room", rows[0][0])
	assert.Equal(t, "Case Description", rows[0][13])

	assert.Equal(t, "101", rows[1][0])
	assert.Equal(t, "OPEN", rows[1][1])
	assert.Equal(t, "Room 101", rows[1][4])
	assert.Equal(t, "[CLIENT_NAME]", rows[1][6])
	assert.Equal(t, "AC not working", rows[1][13])

	// GetRows 会去掉行尾空单元格
	assert.Equal(t, "Lobby noise", rows[2][4])
	assert.Equal(t, "IN", rows[2][14])
	assert.Equal(t, "", rows[2][0])
}

func TestCasesXLSXEmpty(t *testing.T) {
	data, err := CasesXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "night.pdf-cases.xlsx", FileName("night.pdf"))
}
