package numfmt

import (
	"math"
	"testing"
)

func TestFloatBasic(t *testing.T) {
	if got := Float(1234.5, 2); got != "1234.50" {
		t.Fatalf("got %q", got)
	}
}

func TestFloatSpecials(t *testing.T) {
	cases := map[float64]string{
		math.NaN():              "NaN",
		math.Inf(1):             "+Inf",
		math.Inf(-1):            "-Inf",
	}
	for in, want := range cases {
		if got := Float(in, 2); got != want {
			t.Fatalf("Float(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestMoneyAndPercent(t *testing.T) {
	if got := Money(100000); got != "100000.00" {
		t.Fatalf("Money got %q", got)
	}
	if got := Percent(14.2857); got != "14.29%" {
		t.Fatalf("Percent got %q", got)
	}
}
