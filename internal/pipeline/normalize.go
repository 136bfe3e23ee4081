package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"upsse/internal"
	"upsse/internal/refdata"
	"upsse/internal/util"
)

const (
	envTaxItemCode = "TMT"
	envTaxItemName = "Thuế bảo vệ môi trường"
	litreUnit      = "Lít"
)

// anonymousCustomer marks walk-in sales that must be aggregated into one
// synthetic summary invoice per item.
const anonymousCustomer = "không lấy hóa đơn"

// Normalizer turns validated transaction records into UpSSE accounting
// rows. One instance is bound to a store and a price period; it holds no
// state across Generate calls.
type Normalizer struct {
	ctx         *refdata.Context
	store       refdata.Store
	accounts    refdata.AccountSet
	envAccounts refdata.AccountSet

	// newPricePeriod shifts the summary invoice suffix range so old- and
	// new-period summary rows never collide.
	newPricePeriod bool
}

func NewNormalizer(ctx *refdata.Context, storeName string, newPricePeriod bool) (*Normalizer, error) {
	store, ok := ctx.Store(storeName)
	if !ok {
		return nil, &ConfigLookupError{Kind: "store", Key: storeName}
	}
	accounts, ok := ctx.Accounts(store.Region)
	if !ok {
		return nil, &ConfigLookupError{Kind: "region", Key: store.Region}
	}
	envAccounts, ok := ctx.EnvAccounts(store.Region)
	if !ok {
		return nil, &ConfigLookupError{Kind: "environmental-tax region", Key: store.Region}
	}
	return &Normalizer{
		ctx:            ctx,
		store:          store,
		accounts:       accounts,
		envAccounts:    envAccounts,
		newPricePeriod: newPricePeriod,
	}, nil
}

// itemAccumulator carries a walk-in item's running totals. Summary rows are
// derived from these source-field sums, never from already-rounded per-row
// outputs, so N roundings cannot drift away from the true aggregate.
type itemAccumulator struct {
	quantity  decimal.Decimal
	gross     decimal.Decimal
	tax       decimal.Decimal
	priceQty  decimal.Decimal // sum of unit price * quantity, for the blended price
	taxRate   decimal.Decimal
	first     internal.TransactionRecord
	populated bool
}

// Generate maps every record to its UpSSE rows for the given batch date.
// Petroleum lines are split into a base row and an environmental-tax row
// whose four amounts sum back exactly to the source gross+tax; walk-in
// petroleum sales are aggregated into one summary pair per item.
func (n *Normalizer) Generate(records []internal.TransactionRecord, batchDate time.Time) ([]internal.LedgerRow, error) {
	baseRows := make([]internal.LedgerRow, 0, len(records))
	var envRows []internal.LedgerRow
	walkIns := map[string]*itemAccumulator{}

	for _, rec := range records {
		if isAnonymous(rec.CustomerName) && n.ctx.IsPetroleum(rec.ItemName) {
			acc := walkIns[rec.ItemName]
			if acc == nil {
				acc = &itemAccumulator{}
				walkIns[rec.ItemName] = acc
			}
			if !acc.populated {
				acc.first = rec
				acc.taxRate = rec.TaxRatePercent
				acc.populated = true
			}
			acc.quantity = acc.quantity.Add(rec.Quantity)
			acc.gross = acc.gross.Add(rec.GrossAmount)
			acc.tax = acc.tax.Add(rec.TaxAmount)
			acc.priceQty = acc.priceQty.Add(rec.UnitPrice.Mul(rec.Quantity))
			continue
		}

		rate := n.ctx.EnvTaxRate(rec.ItemName)
		envBase, envTax := envAmounts(rate, rec.Quantity, rec.TaxRatePercent)
		base := n.baseRow(rec, batchDate, rate, envBase, envTax)
		baseRows = append(baseRows, base)

		if rate.IsPositive() {
			envRows = append(envRows, n.envTaxRow(base, rate, envBase, envTax))
		}
	}

	// Deterministic summary order: configured petroleum product order.
	for _, product := range n.ctx.PetroleumProducts() {
		acc, ok := walkIns[product]
		if !ok {
			continue
		}
		base, env, err := n.summaryPair(product, acc, batchDate)
		if err != nil {
			return nil, err
		}
		baseRows = append(baseRows, base)
		envRows = append(envRows, env)
	}

	// The import sheet lists all commercial rows first, then every
	// environmental-tax row.
	return append(baseRows, envRows...), nil
}

func isAnonymous(customerName string) bool {
	return containsFold(customerName, anonymousCustomer)
}

// envAmounts derives the environmental-tax base and its VAT from the raw
// source quantity and rate. Round-then-subtract order: both amounts are
// rounded here, once, and every row of the pair is built from these exact
// values so the pair always sums back to the source totals.
func envAmounts(rate, quantity, taxRatePercent decimal.Decimal) (envBase, envTax decimal.Decimal) {
	envBase = rate.Mul(quantity).Round(0)
	envTax = envBase.Mul(taxRatePercent.Div(decimal.NewFromInt(100))).Round(0)
	return envBase, envTax
}

// baseRow maps one record onto the 37-field UpSSE line, net of the
// environmental tax carried by its paired row. envBase and envTax come
// from envAmounts on the raw source fields; the base amounts are obtained
// by subtracting them from the authoritative source totals.
func (n *Normalizer) baseRow(rec internal.TransactionRecord, batchDate time.Time, envRate, envBase, envTax decimal.Decimal) internal.LedgerRow {
	taxFraction := rec.TaxRatePercent.Div(decimal.NewFromInt(100))

	code := n.invoiceCode(rec.InvoiceSeries, rec.InvoiceNumber)
	unit := rec.Unit
	if n.ctx.IsPetroleum(rec.ItemName) {
		unit = litreUnit
	}

	date := batchDate
	if date.IsZero() && rec.HasDate {
		date = rec.Date
	}

	row := internal.LedgerRow{
		CustomerCode:     n.customerCode(rec),
		CustomerName:     rec.CustomerName,
		Date:             date,
		HasDate:          !date.IsZero(),
		InvoiceNumber:    code,
		Series:           n.seriesCode(rec),
		Description:      fmt.Sprintf("Xuất bán hàng theo hóa đơn số %s", code),
		ItemCode:         n.ctx.ItemCode(rec.ItemName),
		ItemName:         rec.ItemName,
		Unit:             unit,
		WarehouseCode:    n.store.WarehouseCode,
		Quantity:         rec.Quantity.Round(3),
		UnitPrice:        n.netUnitPrice(rec.Source, rec.UnitPrice, taxFraction, envRate),
		LineAmount:       rec.GrossAmount.Sub(envBase),
		TaxCode:          util.FormatTaxCode(rec.TaxRatePercent),
		DebitAccount:     n.accounts.Debit,
		RevenueAccount:   n.accounts.Revenue,
		COGSAccount:      n.accounts.COGS,
		TaxCreditAccount: n.accounts.TaxCredit,
		CostCenter:       n.ctx.CostCenter(n.store.Name, rec.ItemName),
		TaxCustomerName:  rec.CustomerName,
		TaxAddress:       rec.CustomerAddress,
		TaxID:            rec.CustomerTaxID,
		TaxAmount:        rec.TaxAmount.Sub(envTax),
	}
	return row
}

// envTaxRow is the mandated separate accounting line for the environmental
// tax component of a fuel sale. It carries the exact amounts the paired
// base row subtracted, never a recomputation from the base row's rounded
// or formatted fields.
func (n *Normalizer) envTaxRow(base internal.LedgerRow, rate, envBase, envTax decimal.Decimal) internal.LedgerRow {
	row := base
	row.ItemCode = envTaxItemCode
	row.ItemName = envTaxItemName
	row.Unit = litreUnit
	row.UnitPrice = rate
	row.LineAmount = envBase
	row.TaxAmount = envTax
	row.DebitAccount = n.envAccounts.Debit
	row.RevenueAccount = n.envAccounts.Revenue
	row.COGSAccount = n.envAccounts.COGS
	row.TaxCreditAccount = n.envAccounts.TaxCredit
	row.Description = ""
	row.TaxCustomerName = ""
	row.TaxAddress = ""
	row.TaxID = ""
	return row
}

// summaryPair builds the synthetic invoice pair for one walk-in item from
// the item's grand totals ("allocate from the total", not "total the
// allocations").
func (n *Normalizer) summaryPair(product string, acc *itemAccumulator, batchDate time.Time) (internal.LedgerRow, internal.LedgerRow, error) {
	ordinal, ok := n.ctx.ProductOrdinal(product)
	if !ok {
		return internal.LedgerRow{}, internal.LedgerRow{}, &ConfigLookupError{Kind: "petroleum product", Key: product}
	}
	if n.newPricePeriod {
		ordinal += len(n.ctx.PetroleumProducts())
	}

	rate := n.ctx.EnvTaxRate(product)
	taxFraction := acc.taxRate.Div(decimal.NewFromInt(100))
	envBase, envTax := envAmounts(rate, acc.quantity, acc.taxRate)

	date := batchDate
	if date.IsZero() && acc.first.HasDate {
		date = acc.first.Date
	}
	code := n.summaryCode(acc.first.InvoiceSeries, date, ordinal)
	customer := fmt.Sprintf("Khách hàng mua %s không lấy hóa đơn", product)

	base := internal.LedgerRow{
		CustomerCode:     n.store.WarehouseCode,
		CustomerName:     customer,
		Date:             date,
		HasDate:          !date.IsZero(),
		InvoiceNumber:    code,
		Series:           n.seriesCode(acc.first),
		Description:      fmt.Sprintf("Xuất bán hàng theo hóa đơn số %s", code),
		ItemCode:         n.ctx.ItemCode(product),
		ItemName:         product,
		Unit:             litreUnit,
		WarehouseCode:    n.store.WarehouseCode,
		Quantity:         acc.quantity.Round(3),
		UnitPrice:        n.blendedUnitPrice(acc, taxFraction, rate),
		LineAmount:       acc.gross.Sub(envBase),
		TaxCode:          util.FormatTaxCode(acc.taxRate),
		DebitAccount:     n.accounts.Debit,
		RevenueAccount:   n.accounts.Revenue,
		COGSAccount:      n.accounts.COGS,
		TaxCreditAccount: n.accounts.TaxCredit,
		CostCenter:       n.ctx.CostCenter(n.store.Name, product),
		TaxCustomerName:  customer,
		TaxAmount:        acc.tax.Sub(envTax),
	}

	env := n.envTaxRow(base, rate, envBase, envTax)
	env.CustomerName = customer
	return base, env, nil
}

// netUnitPrice strips the environmental tax out of the quoted unit price.
// POS exports quote the VAT-inclusive pump price, which is divided down
// first; the e-invoice registry already lists VAT-exclusive prices.
func (n *Normalizer) netUnitPrice(source internal.SourceKind, unitPrice, taxFraction, envRate decimal.Decimal) decimal.Decimal {
	if source != internal.SourceEInvoice {
		one := decimal.NewFromInt(1)
		unitPrice = unitPrice.Div(one.Add(taxFraction))
	}
	return unitPrice.Sub(envRate).Round(2)
}

func (n *Normalizer) blendedUnitPrice(acc *itemAccumulator, taxFraction, envRate decimal.Decimal) decimal.Decimal {
	if !acc.quantity.IsPositive() {
		return decimal.Zero
	}
	avg := acc.priceQty.Div(acc.quantity)
	return n.netUnitPrice(acc.first.Source, avg, taxFraction, envRate)
}

func (n *Normalizer) customerCode(rec internal.TransactionRecord) string {
	if rec.CustomerCode != "" && len([]rune(rec.CustomerCode)) <= 9 {
		return rec.CustomerCode
	}
	if code := n.ctx.CustomerCode(rec.CustomerTaxID); code != "" {
		return code
	}
	return n.store.WarehouseCode
}

// invoiceCode derives the short import code: a store prefix override, or
// the series suffix, plus the last six digits of the source invoice number.
func (n *Normalizer) invoiceCode(series, number string) string {
	return n.invoicePrefix(series) + lastN(number, 6)
}

// summaryCode keys a walk-in summary: prefix, the literal BK marker, the
// batch day and month, and the item's ordinal suffix.
func (n *Normalizer) summaryCode(series string, date time.Time, ordinal int) string {
	datePart := ""
	if !date.IsZero() {
		datePart = fmt.Sprintf("%02d%02d", date.Day(), int(date.Month()))
	}
	return fmt.Sprintf("%sBK%s.%d", n.invoicePrefix(series), datePart, ordinal)
}

func (n *Normalizer) invoicePrefix(series string) string {
	if n.store.PrefixOverride != "" {
		return n.store.PrefixOverride
	}
	return lastN(series, 2)
}

// seriesCode renders the Ký hiệu column: template+series when the source
// carries a template, the retail "1"-prefixed series otherwise.
func (n *Normalizer) seriesCode(rec internal.TransactionRecord) string {
	if rec.InvoiceTemplate != "" {
		return rec.InvoiceTemplate + rec.InvoiceSeries
	}
	if rec.InvoiceSeries == "" {
		return ""
	}
	return "1" + rec.InvoiceSeries
}

func lastN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(util.CleanText(haystack)), strings.ToLower(needle))
}
