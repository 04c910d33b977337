package money

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	f := Default()
	tests := []struct {
		in   float64
		want string
	}{
		{1000, "$1,000.00"},
		{400, "$400.00"},
		{600, "$600.00"},
		{0, "$0.00"},
		{-42.5, "-$42.50"},
		{1234567.891, "$1,234,567.89"},
		{0.005, "$0.01"},
		{1e19, "$10,000,000,000,000,000,000.00"},
		{-1e19, "-$10,000,000,000,000,000,000.00"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, f.Format(tt.in), "Format(%v)", tt.in)
	}
}

func TestFormatOptional(t *testing.T) {
	require.Equal(t, "$0.00", Default().FormatOptional(nil))
	v := 12.0
	require.Equal(t, "$12.00", Default().FormatOptional(&v))
}

func TestGroup(t *testing.T) {
	require.Equal(t, "999", group("999", ","))
	require.Equal(t, "1,000", group("1000", ","))
	require.Equal(t, "100,000", group("100000", ","))
	require.Equal(t, "1000", group("1000", ""))
}

func TestNewFormatterBadLocale(t *testing.T) {
	require.Equal(t, "MX$1,000.00", NewFormatter("MX$", "not a locale!").Format(1000))
}

func TestAxisTick(t *testing.T) {
	require.Equal(t, "1.5B", AxisTick(1_500_000_000))
	require.Equal(t, "2.0M", AxisTick(2_000_000))
	require.Equal(t, "12K", AxisTick(12_000))
	require.Equal(t, "950", AxisTick(950))
	require.Equal(t, "-200", AxisTick(-200))
}
