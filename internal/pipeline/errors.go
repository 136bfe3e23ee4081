package pipeline

import "fmt"

// Structural errors abort a whole batch. Their messages are the only audit
// trail a non-technical accountant gets, so they name the exact row, field
// or key at fault.

// MissingFieldError marks a transactional row that lacks a structurally
// required field, e.g. a pump-log sale with no correlation key. Such a sale
// cannot be invoiced, which is a compliance problem the caller must see.
type MissingFieldError struct {
	Row   int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("row %d: required field %q is empty", e.Row, e.Field)
}

// ConfigLookupError marks a store or region absent from the configuration
// context. Fatal: every subsequent row for that store would be silently
// wrong otherwise.
type ConfigLookupError struct {
	Kind string
	Key  string
}

func (e *ConfigLookupError) Error() string {
	return fmt.Sprintf("configuration has no %s %q", e.Kind, e.Key)
}

// BoundaryNotFoundError marks a price-period boundary invoice number that
// matched no record. Treating "not found" as "everything is old period"
// would misclassify an entire batch's tax treatment.
type BoundaryNotFoundError struct {
	Invoice string
}

func (e *BoundaryNotFoundError) Error() string {
	return fmt.Sprintf("price-period boundary invoice %q not found in batch", e.Invoice)
}

// StoreMismatchError marks an uploaded workbook whose invoice symbol does
// not belong to the selected store.
type StoreMismatchError struct {
	Store      string
	WantSuffix string
	GotSymbol  string
}

func (e *StoreMismatchError) Error() string {
	return fmt.Sprintf("workbook is not for store %q: invoice symbol %q does not end with %q",
		e.Store, e.GotSymbol, e.WantSuffix)
}
