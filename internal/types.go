package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type SourceKind string

const (
	SourcePumpLog  SourceKind = "pump_log"
	SourceEInvoice SourceKind = "e_invoice"
	SourcePOS      SourceKind = "pos"
)

// TransactionRecord is one sale line projected out of a raw source row.
// Records are built once by the extractor and never mutated afterwards.
type TransactionRecord struct {
	Source          SourceKind
	CorrelationKey  string
	ItemName        string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	GrossAmount     decimal.Decimal
	TaxAmount       decimal.Decimal
	TaxRatePercent  decimal.Decimal
	Unit            string
	CustomerCode    string
	CustomerName    string
	CustomerTaxID   string
	CustomerAddress string
	InvoiceNumber   string
	InvoiceSeries   string
	InvoiceTemplate string
	TransactionType string
	Date            time.Time
	HasDate         bool
	SourceRow       int
}

// TotalPayable is the VAT-inclusive amount the customer owes for the line.
func (r TransactionRecord) TotalPayable() decimal.Decimal {
	return r.GrossAmount.Add(r.TaxAmount)
}

// Warning reports a cell that degraded to zero/empty during extraction.
// Field-level problems are data, not errors; one bad cell must not stop
// a batch.
type Warning struct {
	Row     int
	Field   string
	Message string
}

// LedgerRow is one UpSSE accounting-import line. Field order mirrors the
// 37-column UpSSE sheet.
type LedgerRow struct {
	CustomerCode     string
	CustomerName     string
	Date             time.Time
	HasDate          bool
	InvoiceNumber    string
	Series           string
	Description      string
	ItemCode         string
	ItemName         string
	Unit             string
	WarehouseCode    string
	LocationCode     string
	LotCode          string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	LineAmount       decimal.Decimal
	CurrencyCode     string
	ExchangeRate     string
	TaxCode          string
	DebitAccount     string
	RevenueAccount   string
	COGSAccount      string
	TaxCreditAccount string
	TaxDepartment    string
	CostCenter       string
	Department       string
	ProductionOrder  string
	Product          string
	Contract         string
	Fee              string
	Covenant         string
	Salesperson      string
	TaxCustomerName  string
	TaxAddress       string
	TaxID            string
	ItemGroup        string
	Note             string
	TaxAmount        decimal.Decimal
}

// RunRow is one journaled processing run as stored in sqlite.
type RunRow struct {
	ID        string
	Kind      string
	Store     string
	BatchDate string
	Counts    map[string]int
	OutputRef string
	CreatedAt string
}

// SideTotals carries one side's per-item sums in a reconciliation.
type SideTotals struct {
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

type ItemTotals struct {
	Log           SideTotals
	Ledger        SideTotals
	QuantityDiff  decimal.Decimal
	AmountDiff    decimal.Decimal
	QuantityMatch bool
	AmountMatch   bool
}

// KeyMismatch describes a matched key whose values disagree beyond tolerance.
type KeyMismatch struct {
	Key    string
	Field  string
	Log    decimal.Decimal
	Ledger decimal.Decimal
	Diff   decimal.Decimal
}

// ReconciliationResult is the output of matching pump-log transactions
// against e-invoice records. MatchedKeys, MissingKeys and OrphanedKeys are
// pairwise disjoint; duplicates are tracked separately.
type ReconciliationResult struct {
	LogCount    int
	LedgerCount int

	MatchedKeys   []string
	MissingKeys   []string
	OrphanedKeys  []string
	DuplicateKeys []string

	Mismatches []KeyMismatch
	ItemTotals map[string]ItemTotals

	// E-invoice records outside the POS correlation space, classified for
	// separate review.
	DirectPetroleum []TransactionRecord
	OtherInvoices   []TransactionRecord

	Balanced bool
}
