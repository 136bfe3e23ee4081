package refdata

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func fixtureWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()

	sheets := map[string][][]any{
		sheetStores: {
			{"Tên CHXD", "Mã kho", "Khu vực", "Ký hiệu", "Tiền tố"},
			{"CHXD Đồng Tâm", "DTM", "BN", "C25TDT", ""},
			{"CHXD Quán Gỏi", "QGO", "HD", "C25TQG", "QG"},
		},
		sheetItems: {
			{"Tên mặt hàng", "Mã hàng", "Thuế BVMT"},
			{"Xăng E5 RON 92-II", "E5", "1900"},
			{"Xăng RON 95-III", "95", "2000"},
			{"Dầu mỡ nhờn", "DMN", ""},
		},
		sheetAccounts: {
			{"Khu vực", "Tk nợ", "Tk DT", "Tk GV", "Tk thuế", "BVMT nợ", "BVMT DT", "BVMT GV", "BVMT thuế"},
			{"BN", "1311", "51111", "63211", "33311", "1311", "51141", "63241", "33311"},
		},
		sheetCustomers: {
			{"MST", "Mã khách"},
			{"0800123456", "KH0042"},
		},
		sheetDiscounts: {
			{"MST", "Mặt hàng", "Chiết khấu"},
			{"0800123456", "Xăng RON 95-III", "300"},
		},
		sheetCostCenters: {
			{"CHXD", "Mặt hàng", "Vụ việc"},
			{"CHXD Đồng Tâm", "Xăng E5 RON 92-II", "VV-E5-DT"},
		},
	}

	first := true
	for name, rows := range sheets {
		if first {
			_ = f.SetSheetName(f.GetSheetName(0), name)
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, row := range rows {
			for c, v := range row {
				if v == "" {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(name, cell, v); err != nil {
					t.Fatal(err)
				}
			}
		}
	}
	return f
}

func TestLoadFromWorkbook(t *testing.T) {
	ctx, err := loadFrom(fixtureWorkbook(t))
	if err != nil {
		t.Fatal(err)
	}

	store, ok := ctx.Store("CHXD Quán Gỏi")
	if !ok {
		t.Fatal("store not loaded")
	}
	if store.WarehouseCode != "QGO" || store.PrefixOverride != "QG" {
		t.Errorf("store = %+v", store)
	}

	if got := ctx.ItemCode("Xăng E5 RON 92-II"); got != "E5" {
		t.Errorf("item code = %q", got)
	}
	if !ctx.EnvTaxRate("Xăng RON 95-III").Equal(dec("2000")) {
		t.Errorf("env rate = %s", ctx.EnvTaxRate("Xăng RON 95-III"))
	}
	if ctx.IsPetroleum("Dầu mỡ nhờn") {
		t.Error("items with an empty rate cell are not petroleum")
	}

	// Petroleum order follows the item sheet's row order.
	products := ctx.PetroleumProducts()
	if len(products) != 2 || products[0] != "Xăng E5 RON 92-II" || products[1] != "Xăng RON 95-III" {
		t.Errorf("products = %v", products)
	}

	accounts, ok := ctx.Accounts("BN")
	if !ok || accounts.Revenue != "51111" {
		t.Errorf("accounts = %+v %v", accounts, ok)
	}
	envAccounts, _ := ctx.EnvAccounts("BN")
	if envAccounts.Revenue != "51141" {
		t.Errorf("env accounts = %+v", envAccounts)
	}

	if got := ctx.CustomerCode("0800123456"); got != "KH0042" {
		t.Errorf("customer code = %q", got)
	}
	if !ctx.Discount("0800123456", "Xăng RON 95-III").Equal(dec("300")) {
		t.Errorf("discount = %s", ctx.Discount("0800123456", "Xăng RON 95-III"))
	}
	if got := ctx.CostCenter("CHXD Đồng Tâm", "Xăng E5 RON 92-II"); got != "VV-E5-DT" {
		t.Errorf("cost center = %q", got)
	}
}

func TestLoadFromWorkbookRequiresStores(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetSheetName(f.GetSheetName(0), sheetStores)
	for _, name := range []string{sheetItems, sheetAccounts} {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := loadFrom(f); err == nil {
		t.Fatal("a workbook without stores must not load")
	}
}
