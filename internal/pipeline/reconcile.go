package pipeline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"upsse/internal"
	"upsse/internal/config"
)

// Reconciler matches pump-log transactions against e-invoice records by
// correlation key. Data mismatches are its output, never its error: it
// fails only on structurally unusable input.
type Reconciler struct {
	qtyTol decimal.Decimal
	amtTol decimal.Decimal
}

func NewReconciler(cfg config.Config) *Reconciler {
	return &Reconciler{
		qtyTol: decimal.NewFromFloat(cfg.QtyTolerance),
		amtTol: decimal.NewFromFloat(cfg.AmountTolerance),
	}
}

// Reconcile classifies correlation keys into matched, missing (in the log
// but never invoiced), orphaned (invoiced with no pump transaction) and
// duplicated (same key appearing more than once on either side), and cross-checks per-item
// volume and amount totals independently of key matching.
//
// Only ledger records whose key carries the POS prefix take part in key
// matching; the remainder are classified for separate review.
func (r *Reconciler) Reconcile(logRecords, ledgerRecords []internal.TransactionRecord) internal.ReconciliationResult {
	var posLedger []internal.TransactionRecord
	result := internal.ReconciliationResult{ItemTotals: map[string]internal.ItemTotals{}}

	for _, rec := range ledgerRecords {
		if strings.HasPrefix(strings.ToUpper(rec.CorrelationKey), "POS") {
			posLedger = append(posLedger, rec)
			continue
		}
		// Direct sales never flow through the pumps' POS bridge.
		result.DirectPetroleum, result.OtherInvoices = classifyDirect(rec, result.DirectPetroleum, result.OtherInvoices)
	}

	// Multiplicity matters on both sides: a duplicated key is itself an
	// anomaly, so a plain key->record map (last write wins) is not enough.
	logByKey := map[string]internal.TransactionRecord{}
	logCounts := map[string]int{}
	for _, rec := range logRecords {
		logByKey[rec.CorrelationKey] = rec
		logCounts[rec.CorrelationKey]++
	}
	ledgerByKey := map[string]internal.TransactionRecord{}
	ledgerCounts := map[string]int{}
	for _, rec := range posLedger {
		ledgerByKey[rec.CorrelationKey] = rec
		ledgerCounts[rec.CorrelationKey]++
	}

	for key := range logCounts {
		if _, ok := ledgerCounts[key]; !ok {
			result.MissingKeys = append(result.MissingKeys, key)
		}
	}
	for key, count := range ledgerCounts {
		if _, ok := logCounts[key]; !ok {
			if count > 1 {
				result.DuplicateKeys = append(result.DuplicateKeys, key)
			}
			result.OrphanedKeys = append(result.OrphanedKeys, key)
			continue
		}
		// Every shared key lands in exactly one of these two classes.
		if count == 1 && logCounts[key] == 1 {
			result.MatchedKeys = append(result.MatchedKeys, key)
			result.Mismatches = append(result.Mismatches, r.compareKey(key, logByKey[key], ledgerByKey[key])...)
		} else {
			result.DuplicateKeys = append(result.DuplicateKeys, key)
		}
	}
	sort.Strings(result.MatchedKeys)
	sort.Strings(result.MissingKeys)
	sort.Strings(result.OrphanedKeys)
	sort.Strings(result.DuplicateKeys)
	sort.Slice(result.Mismatches, func(i, j int) bool { return result.Mismatches[i].Key < result.Mismatches[j].Key })

	// Per-item totals are a separate cross-check: total pumped volume vs
	// total invoiced volume can reveal systemic miscoding even when every
	// individual key matches.
	for _, rec := range logRecords {
		t := result.ItemTotals[rec.ItemName]
		t.Log.Quantity = t.Log.Quantity.Add(rec.Quantity)
		t.Log.Amount = t.Log.Amount.Add(rec.TotalPayable())
		result.ItemTotals[rec.ItemName] = t
	}
	for _, rec := range posLedger {
		t := result.ItemTotals[rec.ItemName]
		t.Ledger.Quantity = t.Ledger.Quantity.Add(rec.Quantity)
		t.Ledger.Amount = t.Ledger.Amount.Add(rec.TotalPayable())
		result.ItemTotals[rec.ItemName] = t
	}
	for item, t := range result.ItemTotals {
		t.QuantityDiff = t.Log.Quantity.Sub(t.Ledger.Quantity)
		t.AmountDiff = t.Log.Amount.Sub(t.Ledger.Amount)
		t.QuantityMatch = t.QuantityDiff.Abs().LessThan(r.qtyTol)
		t.AmountMatch = t.AmountDiff.Abs().LessThan(r.amtTol)
		result.ItemTotals[item] = t
	}

	result.LogCount = len(logRecords)
	result.LedgerCount = len(posLedger)
	result.Balanced = result.LogCount == result.LedgerCount &&
		len(result.MissingKeys) == 0 && len(result.OrphanedKeys) == 0 &&
		len(result.DuplicateKeys) == 0 && len(result.Mismatches) == 0

	return result
}

func (r *Reconciler) compareKey(key string, logRec, ledgerRec internal.TransactionRecord) []internal.KeyMismatch {
	var out []internal.KeyMismatch

	qtyDiff := logRec.Quantity.Sub(ledgerRec.Quantity)
	if qtyDiff.Abs().GreaterThanOrEqual(r.qtyTol) {
		out = append(out, internal.KeyMismatch{
			Key: key, Field: "quantity",
			Log: logRec.Quantity, Ledger: ledgerRec.Quantity, Diff: qtyDiff,
		})
	}

	amtDiff := logRec.TotalPayable().Sub(ledgerRec.TotalPayable())
	if amtDiff.Abs().GreaterThanOrEqual(r.amtTol) {
		out = append(out, internal.KeyMismatch{
			Key: key, Field: "amount",
			Log: logRec.TotalPayable(), Ledger: ledgerRec.TotalPayable(), Diff: amtDiff,
		})
	}

	return out
}

func classifyDirect(rec internal.TransactionRecord, petroleum, other []internal.TransactionRecord) ([]internal.TransactionRecord, []internal.TransactionRecord) {
	for _, p := range petroleumItemNames {
		if strings.EqualFold(rec.ItemName, p) {
			return append(petroleum, rec), other
		}
	}
	return petroleum, append(other, rec)
}

// petroleumItemNames mirrors the commodity list of the configuration
// workbook for classification when no Context is at hand.
var petroleumItemNames = []string{
	"Xăng E5 RON 92-II",
	"Xăng RON 95-III",
	"Dầu DO 0,05S-II",
	"Dầu DO 0,001S-V",
}
