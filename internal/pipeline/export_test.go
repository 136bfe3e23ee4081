package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"upsse/internal"
)

func TestExportUpSSELayout(t *testing.T) {
	n := mustNormalizer(t, "CHXD Đồng Tâm", false)
	rows, err := n.Generate([]internal.TransactionRecord{
		petroRecord("Xăng E5 RON 92-II", "Công ty TNHH An Phát", "10", "21000", "194444", "15556"),
	}, batchDate())
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "upsse.xlsx")
	if err := ExportUpSSE(rows, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)

	// Four blank rows, then the header.
	if got, _ := f.GetCellValue(sheet, "A1"); got != "" {
		t.Errorf("A1 = %q, want blank", got)
	}
	if got, _ := f.GetCellValue(sheet, "A5"); got != "Mã khách" {
		t.Errorf("A5 = %q", got)
	}
	if got, _ := f.GetCellValue(sheet, "AK5"); got != "Tiền thuế" {
		t.Errorf("AK5 = %q", got)
	}

	// Data starts under the header.
	if got, _ := f.GetCellValue(sheet, "D6"); got != "DT001234" {
		t.Errorf("D6 = %q", got)
	}
	if got, _ := f.GetCellValue(sheet, "R6"); got != "08" {
		t.Errorf("tax code R6 = %q, must keep its leading zero", got)
	}
}

func TestExportReconciliationReport(t *testing.T) {
	logs := []internal.TransactionRecord{
		logRec("POS0001", "Xăng E5 RON 92-II", "10", "210000"),
		logRec("POS0002", "Xăng E5 RON 92-II", "5", "105000"),
	}
	ledger := []internal.TransactionRecord{
		ledgerRec("POS0001", "Xăng E5 RON 92-II", "10", "194444", "15556"),
	}
	result := testReconciler().Reconcile(logs, ledger)

	out := filepath.Join(t.TempDir(), "doisoat.xlsx")
	if err := ExportReconciliation(result, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Tổng hợp" || sheets[1] != "Chênh lệch" {
		t.Fatalf("sheets = %v", sheets)
	}

	detailRows, err := f.GetRows("Chênh lệch")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, row := range detailRows {
		if len(row) >= 2 && row[0] == "POS0002" && row[1] == "thiếu hóa đơn" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing key POS0002 not reported, rows: %v", detailRows)
	}
}
