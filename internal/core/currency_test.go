package core

import "testing"

func TestFormatRupiah(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "Rp0"},
		{500, "Rp500"},
		{50000, "Rp50.000"},
		{1500000, "Rp1.500.000"},
		{-25000, "-Rp25.000"},
	}
	for _, tc := range cases {
		if got := FormatRupiah(tc.in); got != tc.out {
			t.Fatalf("%d: expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestTransactionSigned(t *testing.T) {
	income := Transaction{Amount: 1000, Kind: Income}
	expense := Transaction{Amount: 1000, Kind: Expense}
	if income.Signed() != 1000 {
		t.Fatalf("income: expected +1000, got %d", income.Signed())
	}
	if expense.Signed() != -1000 {
		t.Fatalf("expense: expected -1000, got %d", expense.Signed())
	}
}
