// Package xlsxexport fills an Excel workbook from template headers and
// normalized invoice records for user download.
package xlsxexport

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"fapiao/internal/domain"
)

const sheetName = "发票明细"

// defaultHeaders is used when no template was supplied.
var defaultHeaders = []string{"开票日期", "金额", "税号", "销售方", "购买方", "发票类型"}

// Workbook builds an xlsx workbook with one row per record, columns ordered
// by the template headers. Header names the mapping does not recognize are
// left blank, matching the template contract: unknown columns belong to the
// requester, not to us.
func Workbook(templateHeaders []string, records []domain.InvoiceRecord) ([]byte, error) {
	headers := templateHeaders
	if len(headers) == 0 {
		headers = defaultHeaders
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	for row, rec := range records {
		for col, h := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, cellValue(h, &rec)); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue maps one template header name onto a record field.
func cellValue(header string, rec *domain.InvoiceRecord) interface{} {
	switch header {
	case "金额", "报销金额", "amount":
		return rec.Amount
	case "税号", "taxId":
		return rec.TaxID
	case "日期", "开票日期", "date":
		return rec.Date
	case "销售方", "seller":
		return rec.Seller
	case "购买方", "buyer":
		return rec.Buyer
	case "发票类型", "invoiceType":
		return rec.InvoiceType
	default:
		return ""
	}
}
