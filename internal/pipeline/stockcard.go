package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"upsse/internal"
	"upsse/internal/util"
)

// Field keys of the OCR service's slip extraction. These are the wire
// contract with the external extractor and must not be renamed.
const (
	slipFieldSymbol        = "ky_hieu"
	slipFieldSerial        = "so"
	slipFieldDate          = "ngay_thang"
	slipFieldItemName      = "ten_vat_tu"
	slipFieldUnit          = "don_vi_tinh"
	slipFieldQuantity      = "so_luong"
	slipFieldTemperature   = "nhiet_do_thuc_te"
	slipFieldDensity       = "ty_trong"
	slipFieldVCF           = "he_so_vcf"
	slipFieldQuantityAt15C = "so_luong_quy_ve_15_do_c"
)

// ErrNoSlips means every submitted slip failed extraction or validation.
var ErrNoSlips = errors.New("no valid stock-card slips extracted")

// SlipError marks a slip whose required field could not be extracted.
type SlipError struct {
	Origin string
	Field  string
}

func (e *SlipError) Error() string {
	return fmt.Sprintf("slip %q: required field %q missing or empty", e.Origin, e.Field)
}

// StockCardSlip is one internal warehouse-release slip (phiếu xuất kho)
// after validation. Optional metrology fields are null when the slip does
// not carry them or their value was not a number.
type StockCardSlip struct {
	Symbol    string
	Serial    string
	Date      time.Time
	StoreName string
	ItemName  string
	Unit      string
	Quantity  int64

	Temperature   decimal.NullDecimal
	Density       decimal.NullDecimal
	VCF           decimal.NullDecimal
	QuantityAt15C decimal.NullDecimal
}

// SlipSource is one OCR field map together with where it came from, so
// failures can name the offending upload.
type SlipSource struct {
	Origin string
	Fields map[string]any
}

// ParseSlip validates and normalizes one OCR field map. The symbol,
// serial, date, item name and quantity are required; the metrology fields
// degrade to null when unparseable.
func ParseSlip(src SlipSource, storeName string) (StockCardSlip, error) {
	slip := StockCardSlip{
		Symbol:    slipText(src.Fields, slipFieldSymbol),
		Serial:    slipText(src.Fields, slipFieldSerial),
		StoreName: storeName,
		ItemName:  slipText(src.Fields, slipFieldItemName),
		Unit:      slipText(src.Fields, slipFieldUnit),
	}

	required := []struct{ field, value string }{
		{slipFieldSymbol, slip.Symbol},
		{slipFieldSerial, slip.Serial},
		{slipFieldItemName, slip.ItemName},
	}
	for _, r := range required {
		if r.value == "" {
			return StockCardSlip{}, &SlipError{Origin: src.Origin, Field: r.field}
		}
	}

	dateText := slipText(src.Fields, slipFieldDate)
	if dateText == "" {
		return StockCardSlip{}, &SlipError{Origin: src.Origin, Field: slipFieldDate}
	}
	date, ok := parseSlipDate(dateText)
	if !ok {
		return StockCardSlip{}, &SlipError{Origin: src.Origin, Field: slipFieldDate}
	}
	slip.Date = date

	qty, ok := parseSlipInteger(src.Fields[slipFieldQuantity])
	if !ok {
		return StockCardSlip{}, &SlipError{Origin: src.Origin, Field: slipFieldQuantity}
	}
	slip.Quantity = qty

	slip.Temperature = parseSlipDecimal(src.Fields[slipFieldTemperature])
	slip.Density = parseSlipDecimal(src.Fields[slipFieldDensity])
	slip.VCF = parseSlipDecimal(src.Fields[slipFieldVCF])
	if v, ok := parseSlipInteger(src.Fields[slipFieldQuantityAt15C]); ok {
		slip.QuantityAt15C = decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
	}

	return slip, nil
}

// CollectStockCards parses every source, skipping failed slips so one bad
// scan never sinks a batch, and returns the survivors sorted by date then
// serial. All failed means failure.
func CollectStockCards(sources []SlipSource, storeName string) ([]StockCardSlip, []internal.Warning, error) {
	var slips []StockCardSlip
	var warnings []internal.Warning

	for _, src := range sources {
		slip, err := ParseSlip(src, storeName)
		if err != nil {
			warnings = append(warnings, internal.Warning{
				Field:   "slip",
				Message: err.Error(),
			})
			continue
		}
		slips = append(slips, slip)
	}

	if len(slips) == 0 {
		return nil, warnings, ErrNoSlips
	}

	sort.SliceStable(slips, func(i, j int) bool {
		if !slips[i].Date.Equal(slips[j].Date) {
			return slips[i].Date.Before(slips[j].Date)
		}
		return slips[i].Serial < slips[j].Serial
	})
	return slips, warnings, nil
}

var stockCardHeaders = []string{
	"Ký hiệu (Serial)", "Số", "Ngày tháng", "Tên CHXD",
	"Tên vật tư, hàng hóa", "Đơn vị tính", "Số lượng", "Nhiệt độ thực tế",
	"Tỷ trọng", "Hệ số VCF", "Số lượng xuất quy về 15 độ C",
}

// ExportStockCards writes the validated slips as the review workbook.
func ExportStockCards(slips []StockCardSlip, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetName(sheet, "The_kho_tu_dong")
	sheet = "The_kho_tu_dong"

	for i, h := range stockCardHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, slip := range slips {
		values := []any{
			slip.Symbol,
			slip.Serial,
			slip.Date.Format("02/01/2006"),
			slip.StoreName,
			slip.ItemName,
			slip.Unit,
			slip.Quantity,
		}
		for _, d := range []decimal.NullDecimal{slip.Temperature, slip.Density, slip.VCF, slip.QuantityAt15C} {
			if d.Valid {
				values = append(values, d.Decimal.InexactFloat64())
			} else {
				values = append(values, nil)
			}
		}
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "C", "E", 22)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func slipText(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	return util.CleanText(fmt.Sprint(v))
}

// parseSlipDate accepts the day-first separator formats the slips carry,
// plus bare 8-digit strings read as yyyymmdd and then ddmmyyyy.
func parseSlipDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, "/"):
		if t, err := time.Parse("02/01/2006", s); err == nil {
			return t, true
		}
	case strings.Contains(s, "-"):
		if t, err := time.Parse("02-01-2006", s); err == nil {
			return t, true
		}
	case len(s) == 8:
		if t, err := time.Parse("20060102", s); err == nil {
			return t, true
		}
		if t, err := time.Parse("02012006", s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseSlipInteger reads a litre count. Slips print thousands separators
// inside integer quantities, so every dot and comma is a separator here,
// never a decimal point.
func parseSlipInteger(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}

	s := strings.NewReplacer(" ", "", ".", "", ",", "").Replace(strings.TrimSpace(fmt.Sprint(v)))
	if s == "" {
		return 0, false
	}
	parsed, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// parseSlipDecimal reads a metrology value. A comma, when present, is the
// decimal mark and any dots are separators; otherwise a dot is the mark.
func parseSlipDecimal(v any) decimal.NullDecimal {
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case float64:
		return decimal.NullDecimal{Decimal: decimal.NewFromFloat(n), Valid: true}
	case int:
		return decimal.NullDecimal{Decimal: decimal.NewFromInt(int64(n)), Valid: true}
	}

	s := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(v)), " ", "")
	if s == "" {
		return decimal.NullDecimal{}
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	parsed, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: parsed, Valid: true}
}
