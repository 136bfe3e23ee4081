package pipeline

import (
	"errors"
	"testing"

	"upsse/internal"
)

func invoiceRec(number string) internal.TransactionRecord {
	return internal.TransactionRecord{InvoiceNumber: number}
}

func TestSplitAtInvoice(t *testing.T) {
	records := []internal.TransactionRecord{
		invoiceRec("00001"), invoiceRec("00002"), invoiceRec("00003"), invoiceRec("00004"),
	}

	before, from, err := SplitAtInvoice(records, "00003")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 2 || len(from) != 2 {
		t.Fatalf("split sizes %d/%d, want 2/2", len(before), len(from))
	}
	if from[0].InvoiceNumber != "00003" {
		t.Errorf("the boundary invoice belongs to the new period, got %q first", from[0].InvoiceNumber)
	}
}

func TestSplitAtInvoiceFirstRecord(t *testing.T) {
	records := []internal.TransactionRecord{invoiceRec("00001"), invoiceRec("00002")}
	before, from, err := SplitAtInvoice(records, "00001")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 0 || len(from) != 2 {
		t.Errorf("split sizes %d/%d, want 0/2", len(before), len(from))
	}
}

func TestSplitAtInvoiceLastRecord(t *testing.T) {
	records := []internal.TransactionRecord{invoiceRec("00001"), invoiceRec("00002")}
	before, from, err := SplitAtInvoice(records, "00002")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != 1 || len(from) != 1 {
		t.Errorf("split sizes %d/%d, want 1/1", len(before), len(from))
	}
}

func TestSplitAtInvoiceNotFound(t *testing.T) {
	_, _, err := SplitAtInvoice([]internal.TransactionRecord{invoiceRec("00001")}, "99999")
	var notFound *BoundaryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected BoundaryNotFoundError, got %v", err)
	}
	if notFound.Invoice != "99999" {
		t.Errorf("error names invoice %q", notFound.Invoice)
	}
}
