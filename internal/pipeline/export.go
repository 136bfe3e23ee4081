package pipeline

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"upsse/internal"
)

// upsseHeaders is the fixed 37-column header row of the accounting import
// sheet, in sheet order.
var upsseHeaders = []string{
	"Mã khách", "Tên khách hàng", "Ngày", "Số hóa đơn", "Ký hiệu", "Diễn giải",
	"Mã hàng", "Tên mặt hàng", "Đvt", "Mã kho", "Mã vị trí", "Mã lô",
	"Số lượng", "Giá bán", "Tiền hàng", "Mã nt", "Tỷ giá", "Mã thuế",
	"Tk nợ", "Tk doanh thu", "Tk giá vốn", "Tk thuế có", "Cục thuế",
	"Vụ việc", "Bộ phận", "Lsx", "Sản phẩm", "Hợp đồng", "Phí", "Khế ước",
	"Nhân viên bán", "Tên KH(thuế)", "Địa chỉ (thuế)", "Mã số Thuế",
	"Nhóm Hàng", "Ghi chú", "Tiền thuế",
}

// upsseHeaderRow is the worksheet row holding the header; data starts on
// the next row. The import tool expects four leading blank rows.
const upsseHeaderRow = 5

// BuildUpSSEWorkbook renders ledger rows into the UpSSE import layout.
func BuildUpSSEWorkbook(rows []internal.LedgerRow) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, h := range upsseHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, upsseHeaderRow)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	dateFmt := "dd/mm/yyyy"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return nil, err
	}
	textFmt := "@"
	textStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &textFmt})
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		r := upsseHeaderRow + 1 + i
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.CustomerCode)
		set(2, row.CustomerName)
		if row.HasDate {
			set(3, row.Date)
			cell, _ := excelize.CoordinatesToCellName(3, r)
			_ = f.SetCellStyle(sheet, cell, cell, dateStyle)
		}
		set(4, row.InvoiceNumber)
		set(5, row.Series)
		set(6, row.Description)
		set(7, row.ItemCode)
		set(8, row.ItemName)
		set(9, row.Unit)
		set(10, row.WarehouseCode)
		set(11, row.LocationCode)
		set(12, row.LotCode)
		set(13, row.Quantity.InexactFloat64())
		set(14, row.UnitPrice.InexactFloat64())
		set(15, row.LineAmount.InexactFloat64())
		set(16, row.CurrencyCode)
		set(17, row.ExchangeRate)
		set(18, row.TaxCode)
		cell, _ := excelize.CoordinatesToCellName(18, r)
		_ = f.SetCellStyle(sheet, cell, cell, textStyle)
		set(19, row.DebitAccount)
		set(20, row.RevenueAccount)
		set(21, row.COGSAccount)
		set(22, row.TaxCreditAccount)
		set(23, row.TaxDepartment)
		set(24, row.CostCenter)
		set(25, row.Department)
		set(26, row.ProductionOrder)
		set(27, row.Product)
		set(28, row.Contract)
		set(29, row.Fee)
		set(30, row.Covenant)
		set(31, row.Salesperson)
		set(32, row.TaxCustomerName)
		set(33, row.TaxAddress)
		set(34, row.TaxID)
		set(35, row.ItemGroup)
		set(36, row.Note)
		set(37, row.TaxAmount.InexactFloat64())
	}

	_ = f.SetColWidth(sheet, "B", "B", 35)
	_ = f.SetColWidth(sheet, "C", "D", 12)

	return f, nil
}

// ExportUpSSE writes ledger rows to an .xlsx file at outputPath.
func ExportUpSSE(rows []internal.LedgerRow, outputPath string) error {
	f, err := BuildUpSSEWorkbook(rows)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// ExportReconciliation writes a reconciliation result as a two-sheet
// review workbook: per-item totals plus the key-level discrepancies.
func ExportReconciliation(result internal.ReconciliationResult, outputPath string) error {
	f := excelize.NewFile()
	summary := f.GetSheetName(0)
	_ = f.SetSheetName(summary, "Tổng hợp")
	summary = "Tổng hợp"

	setRow := func(sheet string, r int, values ...any) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, r)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	setRow(summary, 1, "Mặt hàng", "SL log bơm", "SL hóa đơn", "Lệch SL", "Tiền log bơm", "Tiền hóa đơn", "Lệch tiền", "Khớp")
	r := 2
	for _, t := range sortedItemTotals(result.ItemTotals) {
		setRow(summary, r,
			t.name,
			t.totals.Log.Quantity.InexactFloat64(), t.totals.Ledger.Quantity.InexactFloat64(),
			t.totals.QuantityDiff.InexactFloat64(),
			t.totals.Log.Amount.InexactFloat64(), t.totals.Ledger.Amount.InexactFloat64(),
			t.totals.AmountDiff.InexactFloat64(),
			t.totals.QuantityMatch && t.totals.AmountMatch,
		)
		r++
	}
	setRow(summary, r+1, "GD log bơm", result.LogCount)
	setRow(summary, r+2, "GD hóa đơn POS", result.LedgerCount)
	setRow(summary, r+3, "Cân bằng", result.Balanced)

	const detail = "Chênh lệch"
	if _, err := f.NewSheet(detail); err != nil {
		return err
	}
	setRow(detail, 1, "FKEY", "Loại", "Log bơm", "Hóa đơn", "Chênh lệch")
	r = 2
	for _, m := range result.Mismatches {
		setRow(detail, r, m.Key, m.Field, m.Log.InexactFloat64(), m.Ledger.InexactFloat64(), m.Diff.InexactFloat64())
		r++
	}
	for _, key := range result.MissingKeys {
		setRow(detail, r, key, "thiếu hóa đơn", "", "", "")
		r++
	}
	for _, key := range result.OrphanedKeys {
		setRow(detail, r, key, "hóa đơn mồ côi", "", "", "")
		r++
	}
	for _, key := range result.DuplicateKeys {
		setRow(detail, r, key, "trùng FKEY", "", "", "")
		r++
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

type namedTotals struct {
	name   string
	totals internal.ItemTotals
}

func sortedItemTotals(m map[string]internal.ItemTotals) []namedTotals {
	out := make([]namedTotals, 0, len(m))
	for name, t := range m {
		out = append(out, namedTotals{name: name, totals: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
