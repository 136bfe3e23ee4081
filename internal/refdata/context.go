package refdata

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"upsse/internal/util"
)

// Store is one fuel station (CHXD) known to the configuration workbook.
type Store struct {
	Name           string
	WarehouseCode  string
	Region         string
	InvoiceSeries  string
	PrefixOverride string
}

// AccountSet holds the debit/revenue/COGS/tax-credit account codes that
// apply to one region, for either regular lines or environmental-tax lines.
type AccountSet struct {
	Debit     string
	Revenue   string
	COGS      string
	TaxCredit string
}

// ContextData is the mutable builder form of a Context. Item-keyed maps are
// keyed by the cleaned, lowercased item name; discount rates by customer tax
// id then item name.
type ContextData struct {
	Stores            []Store
	ItemCodes         map[string]string
	EnvTaxRates       map[string]decimal.Decimal
	Accounts          map[string]AccountSet
	EnvAccounts       map[string]AccountSet
	CustomerCodes     map[string]string
	Discounts         map[string]map[string]decimal.Decimal
	CostCenters       map[string]map[string]string
	PetroleumProducts []string
}

// Context is the immutable lookup table every pipeline call receives. It is
// built once and never mutated; reloading swaps in a whole new value.
type Context struct {
	stores            map[string]Store
	storeNames        []string
	itemCodes         map[string]string
	envTaxRates       map[string]decimal.Decimal
	accounts          map[string]AccountSet
	envAccounts       map[string]AccountSet
	customerCodes     map[string]string
	discounts         map[string]map[string]decimal.Decimal
	costCenters       map[string]map[string]string
	petroleumProducts []string
	productOrdinals   map[string]int
}

func NewContext(data ContextData) *Context {
	ctx := &Context{
		stores:            make(map[string]Store, len(data.Stores)),
		itemCodes:         make(map[string]string, len(data.ItemCodes)),
		envTaxRates:       make(map[string]decimal.Decimal, len(data.EnvTaxRates)),
		accounts:          make(map[string]AccountSet, len(data.Accounts)),
		envAccounts:       make(map[string]AccountSet, len(data.EnvAccounts)),
		customerCodes:     make(map[string]string, len(data.CustomerCodes)),
		discounts:         make(map[string]map[string]decimal.Decimal, len(data.Discounts)),
		costCenters:       make(map[string]map[string]string, len(data.CostCenters)),
		petroleumProducts: append([]string(nil), data.PetroleumProducts...),
		productOrdinals:   make(map[string]int, len(data.PetroleumProducts)),
	}

	for _, s := range data.Stores {
		ctx.stores[s.Name] = s
		ctx.storeNames = append(ctx.storeNames, s.Name)
	}
	sort.Strings(ctx.storeNames)

	for k, v := range data.ItemCodes {
		ctx.itemCodes[itemKey(k)] = v
	}
	for k, v := range data.EnvTaxRates {
		ctx.envTaxRates[itemKey(k)] = v
	}
	for k, v := range data.Accounts {
		ctx.accounts[k] = v
	}
	for k, v := range data.EnvAccounts {
		ctx.envAccounts[k] = v
	}
	for k, v := range data.CustomerCodes {
		ctx.customerCodes[util.CleanText(k)] = v
	}
	for taxID, items := range data.Discounts {
		inner := make(map[string]decimal.Decimal, len(items))
		for item, rate := range items {
			inner[itemKey(item)] = rate
		}
		ctx.discounts[util.CleanText(taxID)] = inner
	}
	for store, items := range data.CostCenters {
		inner := make(map[string]string, len(items))
		for item, cc := range items {
			inner[itemKey(item)] = cc
		}
		ctx.costCenters[store] = inner
	}
	for i, p := range ctx.petroleumProducts {
		ctx.productOrdinals[itemKey(p)] = i + 1
	}

	return ctx
}

func itemKey(name string) string {
	return strings.ToLower(util.CleanText(name))
}

func (c *Context) Store(name string) (Store, bool) {
	s, ok := c.stores[name]
	return s, ok
}

func (c *Context) StoreNames() []string {
	return append([]string(nil), c.storeNames...)
}

func (c *Context) ItemCode(itemName string) string {
	return c.itemCodes[itemKey(itemName)]
}

// EnvTaxRate is the per-litre environmental tax for a petroleum item, zero
// for anything else.
func (c *Context) EnvTaxRate(itemName string) decimal.Decimal {
	return c.envTaxRates[itemKey(itemName)]
}

func (c *Context) IsPetroleum(itemName string) bool {
	_, ok := c.envTaxRates[itemKey(itemName)]
	return ok
}

func (c *Context) Accounts(region string) (AccountSet, bool) {
	a, ok := c.accounts[region]
	return a, ok
}

func (c *Context) EnvAccounts(region string) (AccountSet, bool) {
	a, ok := c.envAccounts[region]
	return a, ok
}

func (c *Context) CustomerCode(taxID string) string {
	return c.customerCodes[util.CleanText(taxID)]
}

// Discount returns the configured per-unit discount for a customer/item
// pair; absence means zero.
func (c *Context) Discount(taxID, itemName string) decimal.Decimal {
	items, ok := c.discounts[util.CleanText(taxID)]
	if !ok {
		return decimal.Zero
	}
	return items[itemKey(itemName)]
}

func (c *Context) CostCenter(storeName, itemName string) string {
	items, ok := c.costCenters[storeName]
	if !ok {
		return ""
	}
	if cc, ok := items[itemKey(itemName)]; ok {
		return cc
	}
	// Lubricants and sundries fall back to the store's generic cost center.
	return items[itemKey("Dầu mỡ nhờn")]
}

func (c *Context) PetroleumProducts() []string {
	return append([]string(nil), c.petroleumProducts...)
}

// ProductOrdinal is the 1-based position of a petroleum item in the
// configured product list, used for summary invoice-number suffixes.
func (c *Context) ProductOrdinal(itemName string) (int, bool) {
	n, ok := c.productOrdinals[itemKey(itemName)]
	return n, ok
}
