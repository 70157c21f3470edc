package currency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samples = []float64{0, 0.01, 1, 12.5, 999.99, 1000, 8500, 9000, 123456.78, 1e9 + 0.5}

func TestConversionRoundTrip(t *testing.T) {
	for _, info := range Default.Currencies() {
		for _, x := range samples {
			got := ConvertToBase(ConvertFromBase(x, info.Code), info.Code)
			assert.InDelta(t, x, got, 0.01, "%s %v", info.Code, x)
		}
	}
}

func TestConversionRoutesThroughBase(t *testing.T) {
	assert.Equal(t, 18000.0, ConvertToBase(2, EUR))
	assert.Equal(t, 2.0, ConvertFromBase(17000, USD))
	assert.Equal(t, 42.0, ConvertFromBase(42, FG))
	assert.Equal(t, 42.0, ConvertToBase(42, FG))

	// 1 EUR -> 9000 FG -> 9000/8500 USD
	assert.InDelta(t, 9000.0/8500.0, Convert(1, EUR, USD), 1e-12)
	assert.Equal(t, 7.0, Convert(7, EUR, EUR))
}

func TestFormat(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		code   Code
		want   string
	}{
		{"base small", 5, FG, "5,00 FG"},
		{"base grouped", 1234.5, FG, "1.234,50 FG"},
		{"base millions", 1234567.891, FG, "1.234.567,89 FG"},
		{"euro", 9000 * 1234.5, EUR, "€ 1 234,50"},
		{"dollar", 8500 * 12, USD, "$ 12,00"},
		{"euro fraction", 4500, EUR, "€ 0,50"},
		{"negative base", -1500, FG, "-1.500,00 FG"},
		{"euro negative millions", -9000 * 1234567.5, EUR, "€ -1 234 567,50"},
		{"base sub cent", 0.004, FG, "0,00 FG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.amount, tc.code))
		})
	}
}

func TestFormatForInputHasNoSymbol(t *testing.T) {
	assert.Equal(t, "1.000,00", FormatForInput(1000, FG))
	assert.Equal(t, "1 000,00", FormatForInput(9_000_000, EUR))
}

func TestParseInput(t *testing.T) {
	cases := []struct {
		name string
		text string
		code Code
		want float64
	}{
		{"base grouped", "1.234,50", FG, 1234.5},
		{"base plain", "250", FG, 250},
		{"euro grouped", "1 234,50", EUR, 1234.5 * 9000},
		{"dollar", "12,00", USD, 12 * 8500},
		{"empty", "", FG, 0},
		{"garbage", "abc", EUR, 0},
		{"trailing garbage", "12,5xyz", FG, 12.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ParseInput(tc.text, tc.code), 1e-6)
		})
	}
}

// Display rounding is to two decimals of the display currency, so the error
// after a format/parse cycle is bounded by half a display cent.
func TestFormatParseRoundTrip(t *testing.T) {
	for _, info := range Default.Currencies() {
		for _, x := range samples {
			back := ParseInput(FormatForInput(x, info.Code), info.Code)
			displayErr := math.Abs(ConvertFromBase(back, info.Code) - ConvertFromBase(x, info.Code))
			assert.LessOrEqual(t, displayErr, 0.005+1e-9, "%s %v", info.Code, x)
			if info.Code == Base {
				assert.InDelta(t, x, back, 0.01)
			}
		}
	}
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode(" eur ")
	require.NoError(t, err)
	assert.Equal(t, EUR, code)

	_, err = ParseCode("GBP")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestNewConverterRejectsBadTables(t *testing.T) {
	_, err := NewConverter(Info{Code: EUR, Rate: 9000})
	assert.Error(t, err, "missing base")

	_, err = NewConverter(Info{Code: FG, Rate: 2})
	assert.Error(t, err, "base rate must be 1")

	_, err = NewConverter(Info{Code: FG, Rate: 1}, Info{Code: USD, Rate: 0})
	assert.Error(t, err, "non-positive rate")

	_, err = NewConverter(Info{Code: FG, Rate: 1}, Info{Code: FG, Rate: 1})
	assert.Error(t, err, "duplicate")
}

func TestUnknownCodeFallsBackToBaseRate(t *testing.T) {
	assert.Equal(t, 10.0, Default.FromBase(10, "XYZ"))
	assert.Equal(t, "XYZ 10,00", Default.Format(10, "XYZ"))
}
