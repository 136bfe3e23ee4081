package refdata

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"upsse/internal/util"
)

// Sheet names of the configuration workbook (Data.xlsx).
const (
	sheetStores      = "CHXD"
	sheetItems       = "MatHang"
	sheetAccounts    = "TaiKhoan"
	sheetCustomers   = "KhachHang"
	sheetDiscounts   = "ChietKhau"
	sheetCostCenters = "VuViec"
)

// Load reads the configuration workbook into an immutable Context.
// The workbook is read once at startup; a reload builds a fresh Context
// and the caller swaps the whole value.
func Load(path string) (*Context, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open refdata workbook: %w", err)
	}
	defer f.Close()
	return loadFrom(f)
}

func loadFrom(f *excelize.File) (*Context, error) {
	data := ContextData{
		ItemCodes:     map[string]string{},
		EnvTaxRates:   map[string]decimal.Decimal{},
		Accounts:      map[string]AccountSet{},
		EnvAccounts:   map[string]AccountSet{},
		CustomerCodes: map[string]string{},
		Discounts:     map[string]map[string]decimal.Decimal{},
		CostCenters:   map[string]map[string]string{},
	}

	stores, err := dataRows(f, sheetStores)
	if err != nil {
		return nil, err
	}
	for _, row := range stores {
		name := cell(row, 0)
		if name == "" {
			continue
		}
		data.Stores = append(data.Stores, Store{
			Name:           name,
			WarehouseCode:  cell(row, 1),
			Region:         cell(row, 2),
			InvoiceSeries:  cell(row, 3),
			PrefixOverride: cell(row, 4),
		})
	}
	if len(data.Stores) == 0 {
		return nil, fmt.Errorf("refdata: sheet %q lists no stores", sheetStores)
	}

	items, err := dataRows(f, sheetItems)
	if err != nil {
		return nil, err
	}
	for _, row := range items {
		item := cell(row, 0)
		if item == "" {
			continue
		}
		data.ItemCodes[item] = cell(row, 1)
		if raw := cell(row, 2); raw != "" {
			rate, ok := util.ParseAmount(raw)
			if !ok {
				return nil, fmt.Errorf("refdata: item %q has malformed env-tax rate %q", item, raw)
			}
			data.EnvTaxRates[item] = rate
			data.PetroleumProducts = append(data.PetroleumProducts, item)
		}
	}

	accounts, err := dataRows(f, sheetAccounts)
	if err != nil {
		return nil, err
	}
	for _, row := range accounts {
		region := cell(row, 0)
		if region == "" {
			continue
		}
		data.Accounts[region] = AccountSet{
			Debit: cell(row, 1), Revenue: cell(row, 2), COGS: cell(row, 3), TaxCredit: cell(row, 4),
		}
		data.EnvAccounts[region] = AccountSet{
			Debit: cell(row, 5), Revenue: cell(row, 6), COGS: cell(row, 7), TaxCredit: cell(row, 8),
		}
	}

	if rows, err := dataRows(f, sheetCustomers); err == nil {
		for _, row := range rows {
			if taxID := cell(row, 0); taxID != "" {
				data.CustomerCodes[taxID] = cell(row, 1)
			}
		}
	}

	if rows, err := dataRows(f, sheetDiscounts); err == nil {
		for _, row := range rows {
			taxID, item := cell(row, 0), cell(row, 1)
			if taxID == "" || item == "" {
				continue
			}
			rate, ok := util.ParseAmount(cell(row, 2))
			if !ok {
				continue
			}
			if data.Discounts[taxID] == nil {
				data.Discounts[taxID] = map[string]decimal.Decimal{}
			}
			data.Discounts[taxID][item] = rate
		}
	}

	if rows, err := dataRows(f, sheetCostCenters); err == nil {
		for _, row := range rows {
			store, item := cell(row, 0), cell(row, 1)
			if store == "" || item == "" {
				continue
			}
			if data.CostCenters[store] == nil {
				data.CostCenters[store] = map[string]string{}
			}
			data.CostCenters[store][item] = cell(row, 2)
		}
	}

	return NewContext(data), nil
}

// dataRows returns a sheet's rows minus its header row.
func dataRows(f *excelize.File, sheet string) ([][]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("refdata: read sheet %q: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return util.CleanText(row[idx])
}
