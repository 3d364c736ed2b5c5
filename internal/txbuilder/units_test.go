package txbuilder

import (
	"math/big"
	"testing"
)

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1.23", 6)
	if err != nil {
		t.Fatalf("ParseUnits error: %v", err)
	}
	if v.String() != "1230000" {
		t.Fatalf("unexpected value: %s", v.String())
	}

	v, err = ParseUnits("0.000001", 6)
	if err != nil {
		t.Fatalf("ParseUnits error: %v", err)
	}
	if v.String() != "1" {
		t.Fatalf("unexpected value: %s", v.String())
	}

	v, err = ParseUnits(".5", 6)
	if err != nil {
		t.Fatalf("ParseUnits error: %v", err)
	}
	if v.String() != "500000" {
		t.Fatalf("unexpected value: %s", v.String())
	}
}

func TestParseUnitsRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "-1", "abc", "1.2.3", "1e6", "0.0000001", "."} {
		if _, err := ParseUnits(in, 6); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	cases := map[string]string{
		"9900000": "9.9",
		"9801000": "9.801",
		"1":       "0.000001",
		"0":       "0",
		"5000000": "5",
	}
	for in, want := range cases {
		v, _ := new(big.Int).SetString(in, 10)
		if got := FormatUnits(v, 6); got != want {
			t.Fatalf("FormatUnits(%s): got %s want %s", in, got, want)
		}
	}
}
