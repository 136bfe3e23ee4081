package pipeline

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"upsse/internal"
	"upsse/internal/util"
)

// ColumnMap gives the zero-based source column of each field; -1 means the
// source does not carry the field.
type ColumnMap struct {
	CorrelationKey  int
	ItemName        int
	Quantity        int
	UnitPrice       int
	GrossAmount     int
	TaxAmount       int
	TaxRate         int
	TotalPayable    int
	Unit            int
	CustomerCode    int
	CustomerName    int
	CustomerTaxID   int
	CustomerAddress int
	InvoiceNumber   int
	InvoiceSeries   int
	InvoiceTemplate int
	TransactionType int
	Date            int
}

// SourceLayout describes one feed's tabular shape. The same extractor
// serves every feed; only the layout differs.
type SourceLayout struct {
	Kind     internal.SourceKind
	StartRow int // 1-based workbook row of the first data row
	Columns  ColumnMap

	// RequireKey makes an empty correlation key on a transactional row a
	// structural error instead of a blank field.
	RequireKey bool

	// TransactionTypes, when set, keeps only rows whose type column matches
	// one of the entries (case-insensitive).
	TransactionTypes []string
}

func noColumns() ColumnMap {
	return ColumnMap{
		CorrelationKey: -1, ItemName: -1, Quantity: -1, UnitPrice: -1,
		GrossAmount: -1, TaxAmount: -1, TaxRate: -1, TotalPayable: -1,
		Unit: -1, CustomerCode: -1, CustomerName: -1, CustomerTaxID: -1,
		CustomerAddress: -1, InvoiceNumber: -1, InvoiceSeries: -1,
		InvoiceTemplate: -1, TransactionType: -1, Date: -1,
	}
}

// DefaultLayout returns the column layout of the known export formats:
// the POS sales register, the e-invoice registry and the pump log.
func DefaultLayout(kind internal.SourceKind) SourceLayout {
	cols := noColumns()
	switch kind {
	case internal.SourcePOS:
		cols.InvoiceSeries = 1
		cols.InvoiceNumber = 2
		cols.Date = 3
		cols.CustomerCode = 4
		cols.CustomerName = 5
		cols.CustomerAddress = 6
		cols.CustomerTaxID = 7
		cols.ItemName = 8
		cols.Quantity = 10
		cols.UnitPrice = 11
		cols.GrossAmount = 13
		cols.TaxAmount = 14
		cols.TaxRate = 15
		return SourceLayout{Kind: kind, StartRow: 5, Columns: cols}
	case internal.SourceEInvoice:
		cols.CustomerCode = 2
		cols.CustomerName = 3
		cols.CustomerAddress = 4
		cols.CustomerTaxID = 5
		cols.ItemName = 6
		cols.Quantity = 8
		cols.UnitPrice = 9
		cols.Unit = 10
		cols.TaxRate = 14
		cols.TaxAmount = 15
		cols.TotalPayable = 16
		cols.InvoiceTemplate = 17
		cols.InvoiceSeries = 18
		cols.InvoiceNumber = 19
		cols.Date = 20
		cols.CorrelationKey = 24
		return SourceLayout{Kind: kind, StartRow: 11, Columns: cols}
	case internal.SourcePumpLog:
		cols.Date = 1
		cols.ItemName = 3
		cols.Quantity = 4
		cols.GrossAmount = 6
		cols.TransactionType = 7
		cols.CorrelationKey = 14
		return SourceLayout{
			Kind:             kind,
			StartRow:         10,
			Columns:          cols,
			RequireKey:       true,
			TransactionTypes: []string{"bán lẻ", "hợp đồng"},
		}
	default:
		return SourceLayout{Kind: kind, StartRow: 1, Columns: cols}
	}
}

// ExtractRecords projects raw rows into typed transaction records.
//
// Rows with non-positive quantity are headers, footers or total lines and
// are skipped silently. Rows that pass the quantity filter but lack a
// structurally required field abort the batch with a MissingFieldError.
// Field-level parse failures degrade to zero/empty and are reported as
// warnings.
func ExtractRecords(rows [][]any, layout SourceLayout) ([]internal.TransactionRecord, []internal.Warning, error) {
	records := make([]internal.TransactionRecord, 0, len(rows))
	var warnings []internal.Warning

	for i, row := range rows {
		rowNo := layout.StartRow + i

		qty, _ := util.ParseQuantity(cellAt(row, layout.Columns.Quantity))
		if !qty.IsPositive() {
			continue
		}

		txnType := textAt(row, layout.Columns.TransactionType)
		if len(layout.TransactionTypes) > 0 && !typeAllowed(txnType, layout.TransactionTypes) {
			continue
		}

		key := textAt(row, layout.Columns.CorrelationKey)
		if layout.RequireKey && key == "" {
			return nil, nil, &MissingFieldError{Row: rowNo, Field: "correlation key"}
		}

		rec := internal.TransactionRecord{
			Source:          layout.Kind,
			CorrelationKey:  key,
			ItemName:        textAt(row, layout.Columns.ItemName),
			Quantity:        qty,
			Unit:            textAt(row, layout.Columns.Unit),
			CustomerCode:    textAt(row, layout.Columns.CustomerCode),
			CustomerName:    textAt(row, layout.Columns.CustomerName),
			CustomerTaxID:   textAt(row, layout.Columns.CustomerTaxID),
			CustomerAddress: textAt(row, layout.Columns.CustomerAddress),
			InvoiceNumber:   textAt(row, layout.Columns.InvoiceNumber),
			InvoiceSeries:   textAt(row, layout.Columns.InvoiceSeries),
			InvoiceTemplate: textAt(row, layout.Columns.InvoiceTemplate),
			TransactionType: txnType,
			SourceRow:       rowNo,
		}

		rec.UnitPrice = amountAt(row, layout.Columns.UnitPrice, rowNo, "unit price", &warnings)
		rec.TaxAmount = amountAt(row, layout.Columns.TaxAmount, rowNo, "tax amount", &warnings)
		rec.TaxRatePercent = taxRateAt(row, layout.Columns.TaxRate)

		if layout.Columns.GrossAmount >= 0 {
			rec.GrossAmount = amountAt(row, layout.Columns.GrossAmount, rowNo, "amount", &warnings)
		} else if layout.Columns.TotalPayable >= 0 {
			// The e-invoice registry carries the VAT-inclusive payable; the
			// net amount is derived so gross+tax always equals the payable.
			payable := amountAt(row, layout.Columns.TotalPayable, rowNo, "total payable", &warnings)
			rec.GrossAmount = payable.Sub(rec.TaxAmount)
		}

		if date, ok := util.ParseDate(cellAt(row, layout.Columns.Date)); ok {
			rec.Date = date
			rec.HasDate = true
		} else if layout.Columns.Date >= 0 {
			warnings = append(warnings, internal.Warning{
				Row: rowNo, Field: "date",
				Message: "unparseable date value, left empty",
			})
		}

		records = append(records, rec)
	}

	return records, warnings, nil
}

func typeAllowed(txnType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.EqualFold(txnType, t) {
			return true
		}
	}
	return false
}

func cellAt(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func textAt(row []any, idx int) string {
	v := cellAt(row, idx)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return util.CleanText(s)
	}
	return util.CleanText(stringify(v))
}

func amountAt(row []any, idx int, rowNo int, field string, warnings *[]internal.Warning) decimal.Decimal {
	v := cellAt(row, idx)
	d, ok := util.ParseAmount(v)
	if !ok && idx >= 0 && v != nil && util.CleanText(stringify(v)) != "" {
		*warnings = append(*warnings, internal.Warning{
			Row: rowNo, Field: field,
			Message: "unparseable numeric value, treated as zero",
		})
	}
	return d
}

func taxRateAt(row []any, idx int) decimal.Decimal {
	v := cellAt(row, idx)
	if v == nil {
		return defaultTaxRate
	}
	d, ok := util.ParseAmount(v)
	if !ok {
		return defaultTaxRate
	}
	return d
}

// Legacy exports omit the VAT column; retail fuel defaults to 8%.
var defaultTaxRate = decimal.NewFromInt(8)

func stringify(v any) string {
	return fmt.Sprint(v)
}
