package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/invoicing_backend/models"
)

func TestFormatInvoiceNumber(t *testing.T) {
	if got := models.FormatInvoiceNumber(2024, 1); got != "INV-2024-00001" {
		t.Fatalf("expected INV-2024-00001, got %s", got)
	}
	if got := models.FormatInvoiceNumber(2024, 8); got != "INV-2024-00008" {
		t.Fatalf("expected INV-2024-00008, got %s", got)
	}
	// padding widens rather than truncates once past five digits
	if got := models.FormatInvoiceNumber(2024, 123456); got != "INV-2024-123456" {
		t.Fatalf("expected INV-2024-123456, got %s", got)
	}
}

func TestParseInvoiceSequence(t *testing.T) {
	seq, err := models.ParseInvoiceSequence("INV-2024-00007", 2024)
	if err != nil {
		t.Fatalf("ParseInvoiceSequence: %v", err)
	}
	if seq != 7 {
		t.Fatalf("expected sequence 7, got %d", seq)
	}
}

func TestParseInvoiceSequence_RejectsMalformedNumbers(t *testing.T) {
	cases := []struct {
		name   string
		number string
		year   int
	}{
		{"wrong year", "INV-2023-00007", 2024},
		{"missing prefix", "2024-00007", 2024},
		{"non-numeric sequence", "INV-2024-ABCDE", 2024},
		{"negative sequence", "INV-2024--0001", 2024},
		{"empty", "", 2024},
	}
	for _, tc := range cases {
		if _, err := models.ParseInvoiceSequence(tc.number, tc.year); err == nil {
			t.Fatalf("%s: expected error for %q", tc.name, tc.number)
		}
	}
}
