package xlsxexport_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fapiao/internal/domain"
	"fapiao/internal/xlsxexport"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("发票明细")
	require.NoError(t, err)
	return rows
}

func TestWorkbook_TemplateColumns(t *testing.T) {
	records := []domain.InvoiceRecord{
		{Amount: 128.5, TaxID: "T-1", Date: "2024-03-15", Seller: "甲公司"},
		{Amount: 40, TaxID: "T-2", Date: "2024-03-16", Seller: "乙公司"},
	}

	data, err := xlsxexport.Workbook([]string{"开票日期", "金额", "销售方", "备注"}, records)
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"开票日期", "金额", "销售方", "备注"}, rows[0])
	assert.Equal(t, "2024-03-15", rows[1][0])
	assert.Equal(t, "128.5", rows[1][1])
	assert.Equal(t, "甲公司", rows[1][2])
	// Unrecognized template column stays blank.
	require.GreaterOrEqual(t, len(rows[1]), 3)
	if len(rows[1]) > 3 {
		assert.Empty(t, rows[1][3])
	}
	assert.Equal(t, "2024-03-16", rows[2][0])
}

func TestWorkbook_DefaultHeaders(t *testing.T) {
	data, err := xlsxexport.Workbook(nil, []domain.InvoiceRecord{
		{Amount: 10, TaxID: "T", Date: "2024-01-01", Seller: "s", Buyer: "b", InvoiceType: "普票"},
	})
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"开票日期", "金额", "税号", "销售方", "购买方", "发票类型"}, rows[0])
	assert.Equal(t, "普票", rows[1][5])
}

func TestWorkbook_NoRecords(t *testing.T) {
	data, err := xlsxexport.Workbook([]string{"金额"}, nil)
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"金额"}, rows[0])
}
