package pipeline

import "upsse/internal"

// SplitAtInvoice cuts an ordered batch at the first record whose invoice
// number equals the boundary. Everything before it belongs to the old price
// period; the boundary record and everything after belong to the new one.
// A boundary that matches nothing is a structural error.
func SplitAtInvoice(records []internal.TransactionRecord, boundaryInvoice string) (before, from []internal.TransactionRecord, err error) {
	for i, rec := range records {
		if rec.InvoiceNumber == boundaryInvoice {
			return records[:i], records[i:], nil
		}
	}
	return nil, nil, &BoundaryNotFoundError{Invoice: boundaryInvoice}
}
