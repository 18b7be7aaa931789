package util

import "testing"

func TestFormatValueFactor(t *testing.T) {
	cases := []struct {
		value float64
		unit  string
		want  string
	}{
		{4700, "Ohm", "4700.000 Ohm"},
		{0.0047, "F", "4.700 mF"},
		{2.2e-6, "F", "2.200 uF"},
		{10e-9, "s", "10.000 ns"},
		{3.3e-12, "F", "3.300 pF"},
		{-0.5, "V", "-500.000 mV"},
	}
	for _, c := range cases {
		if got := FormatValueFactor(c.value, c.unit); got != c.want {
			t.Fatalf("FormatValueFactor(%g, %q) = %q, want %q", c.value, c.unit, got, c.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(1.5e-6); got != "1.500 us" {
		t.Fatalf("FormatSeconds = %q", got)
	}
}
