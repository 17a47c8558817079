package identifiers

import (
	"errors"
	"strconv"
	"testing"
)

func TestComputeCheckDigit_KnownBases(t *testing.T) {
	cases := []struct {
		base string
		want int
	}{
		{"250001", 0},
		{"251001", 8},
		{"000000", 0},
		{"999999", 6},
		{"260042", 0},
	}

	for _, tc := range cases {
		got, err := ComputeCheckDigit(tc.base)
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.base, tc.want, got)
		}
	}
}

func TestComputeCheckDigit_RejectsNonDigits(t *testing.T) {
	if _, err := ComputeCheckDigit("25A001"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
	if _, err := ComputeCheckDigit(""); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected invalid identifier for empty base, got %v", err)
	}
}

func TestValidChecksum(t *testing.T) {
	if !ValidChecksum("2500010") {
		t.Fatalf("expected 2500010 to be valid")
	}
	if ValidChecksum("2500017") {
		t.Fatalf("expected 2500017 to be invalid")
	}
	if ValidChecksum("2500019") {
		t.Fatalf("expected 2500019 to be invalid")
	}

	// falla cerrado ante largos y caracteres raros
	for _, in := range []string{"", "250001", "25000100", "250001X", "25A0010"} {
		if ValidChecksum(in) {
			t.Fatalf("expected %q to be invalid", in)
		}
	}
}

func TestChecksum_RoundTripAndSingleDigitForgery(t *testing.T) {
	for seq := 1; seq <= 9999; seq += 37 {
		base := "25" + pad4(seq)

		full, err := WithCheckDigit(base)
		if err != nil {
			t.Fatalf("%s: %v", base, err)
		}
		if !ValidChecksum(full) {
			t.Fatalf("round trip failed for %s", full)
		}
		if ExtractBase(full) != base {
			t.Fatalf("extract base: expected %s, got %s", base, ExtractBase(full))
		}

		// cambiar cualquier dígito (uno solo) debe romper el checksum
		for pos := 0; pos < len(full); pos++ {
			for d := byte('0'); d <= '9'; d++ {
				if full[pos] == d {
					continue
				}
				forged := []byte(full)
				forged[pos] = d
				if ValidChecksum(string(forged)) {
					t.Fatalf("forged %s (from %s) passed validation", forged, full)
				}
			}
		}
	}
}

func TestExtractBase(t *testing.T) {
	if got := ExtractBase("250001"); got != "250001" {
		t.Fatalf("expected unchanged base, got %s", got)
	}
	if got := ExtractBase("2500010"); got != "250001" {
		t.Fatalf("expected 250001, got %s", got)
	}
}

func pad4(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
