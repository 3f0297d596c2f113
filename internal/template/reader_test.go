package template_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fapiao/internal/domain"
	"fapiao/internal/template"
)

func xlsxTemplate(t *testing.T, headers []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, h))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestHeaders_XLSX(t *testing.T) {
	data := xlsxTemplate(t, []string{"日期", "金额", "税号"})

	headers, err := template.NewReader().Headers("template.xlsx", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"日期", "金额", "税号"}, headers)
}

func TestHeaders_CSV(t *testing.T) {
	headers, err := template.NewReader().Headers("template.csv", []byte("日期,金额,税号\nx,y,z\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"日期", "金额", "税号"}, headers)
}

func TestHeaders_EmptyCSV(t *testing.T) {
	_, err := template.NewReader().Headers("template.csv", nil)
	require.Error(t, err)

	var inputErr *domain.InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "template.csv", inputErr.Filename)
}

func TestHeaders_CorruptWorkbook(t *testing.T) {
	_, err := template.NewReader().Headers("template.xlsx", []byte("not a workbook"))
	require.Error(t, err)

	var inputErr *domain.InputError
	assert.True(t, errors.As(err, &inputErr))
}

func TestNotConfigured(t *testing.T) {
	_, err := template.NotConfigured{}.Headers("template.xlsx", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTemplateUnavailable)

	var inputErr *domain.InputError
	assert.True(t, errors.As(err, &inputErr))
}
