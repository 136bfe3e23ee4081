package pipeline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"upsse/internal"
	"upsse/internal/config"
	"upsse/internal/storage"
)

// writePOSWorkbook builds a minimal sales-register upload: four header
// rows, then data in the POS column layout.
func writePOSWorkbook(t *testing.T, path string, dataRows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range dataRows {
		for c, v := range row {
			if v == nil || v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+5)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func testService(t *testing.T) *ProcessingService {
	t.Helper()
	tmp := t.TempDir()
	cfg, _ := config.Load()
	cfg.OutputDir = filepath.Join(tmp, "out")

	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewProcessingService(db, cfg, testContext())
}

func TestGenerateLedgerEndToEnd(t *testing.T) {
	svc := testService(t)
	input := filepath.Join(t.TempDir(), "sales.xlsx")
	writePOSWorkbook(t, input, [][]any{
		posRow("C25TDT", "00001234", "15/07/2025", "Công ty TNHH An Phát", "Xăng E5 RON 92-II", "10", "21000", "194444", "15556", "8"),
		posRow("C25TDT", "00001235", "15/07/2025", "không lấy hóa đơn", "Xăng E5 RON 92-II", "5", "21000", "97222", "7778", "8"),
	})

	res, err := svc.GenerateLedger(GenerateRequest{
		InputPath: input,
		Store:     "CHXD Đồng Tâm",
		Source:    internal.SourcePOS,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ChoiceNeeded {
		t.Fatalf("unexpected date choice: %+v", res.DateChoices)
	}
	// Named sale pair plus walk-in summary pair.
	if res.Rows != 4 {
		t.Errorf("rows = %d, want 4", res.Rows)
	}
	if len(res.OutputPaths) != 1 {
		t.Fatalf("outputs = %v", res.OutputPaths)
	}
	if res.RunID == "" {
		t.Error("run must be journaled")
	}

	f, err := excelize.OpenFile(res.OutputPaths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if got, _ := f.GetCellValue(sheet, "A5"); got != "Mã khách" {
		t.Errorf("output is not in the import layout, A5 = %q", got)
	}
}

func TestGenerateLedgerPriceBoundary(t *testing.T) {
	svc := testService(t)
	input := filepath.Join(t.TempDir(), "sales.xlsx")
	writePOSWorkbook(t, input, [][]any{
		posRow("C25TDT", "00001234", "15/07/2025", "Công ty TNHH An Phát", "Xăng E5 RON 92-II", "10", "21000", "194444", "15556", "8"),
		posRow("C25TDT", "00001235", "15/07/2025", "Công ty TNHH An Phát", "Xăng E5 RON 92-II", "10", "22000", "203704", "16296", "8"),
	})

	res, err := svc.GenerateLedger(GenerateRequest{
		InputPath:       input,
		Store:           "CHXD Đồng Tâm",
		Source:          internal.SourcePOS,
		BoundaryInvoice: "00001235",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.OutputPaths) != 2 {
		t.Fatalf("a split batch must produce two files, got %v", res.OutputPaths)
	}
}

func TestGenerateLedgerAmbiguousDate(t *testing.T) {
	svc := testService(t)
	input := filepath.Join(t.TempDir(), "sales.xlsx")
	writePOSWorkbook(t, input, [][]any{
		posRow("C25TDT", "00001234", "03/05/2025", "Công ty TNHH An Phát", "Xăng E5 RON 92-II", "10", "21000", "194444", "15556", "8"),
	})

	res, err := svc.GenerateLedger(GenerateRequest{
		InputPath: input,
		Store:     "CHXD Đồng Tâm",
		Source:    internal.SourcePOS,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.ChoiceNeeded || len(res.DateChoices) != 2 {
		t.Fatalf("03/05 must ask for a choice, got %+v", res)
	}
	if len(res.OutputPaths) != 0 {
		t.Errorf("no output before the date is confirmed, got %v", res.OutputPaths)
	}
}

func TestGenerateLedgerWrongStore(t *testing.T) {
	svc := testService(t)
	input := filepath.Join(t.TempDir(), "sales.xlsx")
	writePOSWorkbook(t, input, [][]any{
		posRow("C25TQG", "00001234", "15/07/2025", "Công ty TNHH An Phát", "Xăng E5 RON 92-II", "10", "21000", "194444", "15556", "8"),
	})

	_, err := svc.GenerateLedger(GenerateRequest{
		InputPath: input,
		Store:     "CHXD Đồng Tâm",
		Source:    internal.SourcePOS,
	})
	var mismatch *StoreMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected StoreMismatchError, got %v", err)
	}
	if mismatch.GotSymbol != "C25TQG" {
		t.Errorf("error names symbol %q", mismatch.GotSymbol)
	}
}

func TestGenerateLedgerSymbolCaseInsensitive(t *testing.T) {
	// POS exports sometimes lower-case the symbol column; casing alone is
	// not a store mismatch.
	svc := testService(t)
	input := filepath.Join(t.TempDir(), "sales.xlsx")
	writePOSWorkbook(t, input, [][]any{
		posRow("c25tdt", "00001234", "15/07/2025", "Công ty TNHH An Phát", "Xăng E5 RON 92-II", "10", "21000", "194444", "15556", "8"),
	})

	res, err := svc.GenerateLedger(GenerateRequest{
		InputPath: input,
		Store:     "CHXD Đồng Tâm",
		Source:    internal.SourcePOS,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.OutputPaths) != 1 {
		t.Fatalf("outputs = %v", res.OutputPaths)
	}
}
