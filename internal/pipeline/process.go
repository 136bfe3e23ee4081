package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"upsse/internal"
	"upsse/internal/config"
	"upsse/internal/refdata"
	"upsse/internal/storage"
)

// ProcessingService drives a whole batch from uploaded workbook to UpSSE
// import file, journaling every run.
type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
	ctx *refdata.Context
}

func NewProcessingService(db *storage.DB, cfg config.Config, ctx *refdata.Context) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, ctx: ctx}
}

type GenerateRequest struct {
	InputPath string
	Store     string
	Source    internal.SourceKind

	// ConfirmedDate, when set, is a human-confirmed batch date and skips
	// date detection entirely.
	ConfirmedDate *time.Time

	// BoundaryInvoice, when non-empty, is the first invoice of a new price
	// period; the batch is split there and exported as two files.
	BoundaryInvoice string
}

type GenerateResult struct {
	// ChoiceNeeded is set when the batch date could not be determined
	// without human input; DateChoices lists the candidate readings and no
	// output was produced.
	ChoiceNeeded bool
	DateChoices  []DateOption

	OutputPaths []string
	Rows        int
	Warnings    []internal.Warning
	RunID       string
}

// GenerateLedger reads one sales workbook, validates it against the
// selected store, and writes the UpSSE import file(s) for the batch.
func (s *ProcessingService) GenerateLedger(req GenerateRequest) (GenerateResult, error) {
	layout := DefaultLayout(req.Source)
	store, ok := s.ctx.Store(req.Store)
	if !ok {
		return GenerateResult{}, &ConfigLookupError{Kind: "store", Key: req.Store}
	}

	rows, err := readSourceRows(req.InputPath, layout)
	if err != nil {
		return GenerateResult{}, err
	}
	if err := s.validateStoreSymbol(rows, layout, store); err != nil {
		return GenerateResult{}, err
	}

	records, warnings, err := ExtractRecords(rows, layout)
	if err != nil {
		return GenerateResult{}, err
	}

	resolution, err := ResolveBatchDate(records, req.ConfirmedDate)
	if err != nil {
		return GenerateResult{}, err
	}
	if resolution.ChoiceNeeded {
		return GenerateResult{ChoiceNeeded: true, DateChoices: resolution.Options, Warnings: warnings}, nil
	}
	batchDate := resolution.Date

	periods, err := s.splitPeriods(records, req.BoundaryInvoice)
	if err != nil {
		return GenerateResult{}, err
	}

	result := GenerateResult{Warnings: warnings}
	for _, p := range periods {
		norm, err := NewNormalizer(s.ctx, req.Store, p.newPrices)
		if err != nil {
			return GenerateResult{}, err
		}
		ledgerRows, err := norm.Generate(p.records, batchDate)
		if err != nil {
			return GenerateResult{}, err
		}

		path := s.outputPath(store, batchDate, p.suffix)
		if err := ExportUpSSE(ledgerRows, path); err != nil {
			return GenerateResult{}, err
		}
		result.OutputPaths = append(result.OutputPaths, path)
		result.Rows += len(ledgerRows)
	}

	if s.db != nil {
		counts := map[string]int{
			"sourceRows": len(rows),
			"records":    len(records),
			"ledgerRows": result.Rows,
			"warnings":   len(warnings),
		}
		runID, err := s.db.InsertRun("generate", req.Store, batchDate.Format("2006-01-02"),
			counts, strings.Join(result.OutputPaths, ";"), warnings)
		if err != nil {
			return GenerateResult{}, err
		}
		result.RunID = runID
	}

	return result, nil
}

// ReconcileWorkbooks matches a pump-log workbook against an e-invoice
// registry workbook and writes the discrepancy report.
func (s *ProcessingService) ReconcileWorkbooks(logPath, ledgerPath, storeName string) (internal.ReconciliationResult, string, error) {
	logRows, err := readSourceRows(logPath, DefaultLayout(internal.SourcePumpLog))
	if err != nil {
		return internal.ReconciliationResult{}, "", err
	}
	ledgerRows, err := readSourceRows(ledgerPath, DefaultLayout(internal.SourceEInvoice))
	if err != nil {
		return internal.ReconciliationResult{}, "", err
	}

	logRecords, logWarnings, err := ExtractRecords(logRows, DefaultLayout(internal.SourcePumpLog))
	if err != nil {
		return internal.ReconciliationResult{}, "", err
	}
	ledgerRecords, ledgerWarnings, err := ExtractRecords(ledgerRows, DefaultLayout(internal.SourceEInvoice))
	if err != nil {
		return internal.ReconciliationResult{}, "", err
	}

	result := NewReconciler(s.cfg).Reconcile(logRecords, ledgerRecords)

	reportPath := filepath.Join(s.cfg.OutputDir,
		fmt.Sprintf("doisoat_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := ExportReconciliation(result, reportPath); err != nil {
		return internal.ReconciliationResult{}, "", err
	}

	if s.db != nil {
		counts := map[string]int{
			"logRecords":    result.LogCount,
			"ledgerRecords": result.LedgerCount,
			"matched":       len(result.MatchedKeys),
			"missing":       len(result.MissingKeys),
			"orphaned":      len(result.OrphanedKeys),
			"duplicates":    len(result.DuplicateKeys),
			"mismatches":    len(result.Mismatches),
		}
		warnings := append(append([]internal.Warning(nil), logWarnings...), ledgerWarnings...)
		if _, err := s.db.InsertRun("reconcile", storeName, "", counts, reportPath, warnings); err != nil {
			return internal.ReconciliationResult{}, "", err
		}
	}

	return result, reportPath, nil
}

type periodBatch struct {
	records   []internal.TransactionRecord
	newPrices bool
	suffix    string
}

func (s *ProcessingService) splitPeriods(records []internal.TransactionRecord, boundary string) ([]periodBatch, error) {
	if boundary == "" {
		return []periodBatch{{records: records}}, nil
	}
	before, from, err := SplitAtInvoice(records, boundary)
	if err != nil {
		return nil, err
	}
	return []periodBatch{
		{records: before, newPrices: false, suffix: "_gia-cu"},
		{records: from, newPrices: true, suffix: "_gia-moi"},
	}, nil
}

func (s *ProcessingService) outputPath(store refdata.Store, batchDate time.Time, suffix string) string {
	name := fmt.Sprintf("upsse_%s_%s%s.xlsx", store.WarehouseCode, batchDate.Format("20060102"), suffix)
	return filepath.Join(s.cfg.OutputDir, name)
}

// validateStoreSymbol rejects a workbook whose invoice symbols belong to a
// different store. Only the leading data rows are scanned; one good upload
// never carries mixed symbols past that.
func (s *ProcessingService) validateStoreSymbol(rows [][]any, layout SourceLayout, store refdata.Store) error {
	if store.InvoiceSeries == "" || layout.Columns.InvoiceSeries < 0 {
		return nil
	}
	limit := s.cfg.SymbolCheckRows
	for i, row := range rows {
		if limit > 0 && i >= limit {
			break
		}
		symbol := textAt(row, layout.Columns.InvoiceSeries)
		if symbol == "" {
			continue
		}
		if !strings.HasSuffix(strings.ToUpper(symbol), strings.ToUpper(store.InvoiceSeries)) {
			return &StoreMismatchError{
				Store:      store.Name,
				WantSuffix: store.InvoiceSeries,
				GotSymbol:  symbol,
			}
		}
	}
	return nil
}

// readSourceRows opens a workbook's first sheet and returns its data rows,
// skipping the layout's header region.
func readSourceRows(path string, layout SourceLayout) ([][]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	start := layout.StartRow - 1
	if start < 0 {
		start = 0
	}
	if start > len(raw) {
		start = len(raw)
	}

	rows := make([][]any, 0, len(raw)-start)
	for _, r := range raw[start:] {
		row := make([]any, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}
