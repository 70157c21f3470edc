// Package currency converts amounts between the base unit and display
// currencies and renders them with the fixed per-currency formatting policy.
//
// All persisted amounts are in the base unit (Guinean franc). Conversions go
// through the base unit; there is no cross-rate table.
package currency

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	FG  Code = "FG"
	EUR Code = "EUR"
	USD Code = "USD"

	// Base is the unit every stored amount is expressed in.
	Base = FG
)

type (
	Code string

	// Info describes a currency. Rate is the value of one unit in the base
	// currency, so the base currency always has Rate 1.
	Info struct {
		Code   Code
		Name   string
		Symbol string
		Rate   float64
	}

	// Converter holds a fixed rate table keyed by currency code.
	Converter struct {
		table map[Code]Info
		order []Code
	}
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Default is the converter built from the application's fixed rates.
var Default = MustNewConverter(
	Info{Code: FG, Name: "Franc Guinéen", Symbol: "FG", Rate: 1},
	Info{Code: EUR, Name: "Euro", Symbol: "€", Rate: 9000},
	Info{Code: USD, Name: "Dollar US", Symbol: "$", Rate: 8500},
)

// NewConverter builds a converter. The table must contain the base currency
// with rate 1 and only positive rates.
func NewConverter(infos ...Info) (*Converter, error) {
	c := &Converter{table: make(map[Code]Info, len(infos))}
	for _, info := range infos {
		if info.Rate <= 0 {
			return nil, fmt.Errorf("currency %s: rate must be positive, got %v", info.Code, info.Rate)
		}
		if _, dup := c.table[info.Code]; dup {
			return nil, fmt.Errorf("currency %s: declared twice", info.Code)
		}
		c.table[info.Code] = info
		c.order = append(c.order, info.Code)
	}
	base, ok := c.table[Base]
	if !ok {
		return nil, fmt.Errorf("base currency %s missing from table", Base)
	}
	if base.Rate != 1 {
		return nil, fmt.Errorf("base currency %s must have rate 1, got %v", Base, base.Rate)
	}
	return c, nil
}

func MustNewConverter(infos ...Info) *Converter {
	c, err := NewConverter(infos...)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseCode validates a user supplied currency code against the default table.
func ParseCode(s string) (Code, error) {
	return Default.ParseCode(s)
}

func (c *Converter) ParseCode(s string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := c.table[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, s)
	}
	return code, nil
}

// Lookup returns the currency description for code.
func (c *Converter) Lookup(code Code) (Info, bool) {
	info, ok := c.table[code]
	return info, ok
}

// Currencies lists the table in declaration order.
func (c *Converter) Currencies() []Info {
	out := make([]Info, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.table[code])
	}
	return out
}

// rate falls back to the base rate for codes outside the table.
func (c *Converter) rate(code Code) float64 {
	if info, ok := c.table[code]; ok {
		return info.Rate
	}
	return 1
}

// FromBase converts a base-unit amount into target.
func (c *Converter) FromBase(amount float64, target Code) float64 {
	if target == Base {
		return amount
	}
	return amount / c.rate(target)
}

// ToBase converts an amount expressed in source into the base unit.
func (c *Converter) ToBase(amount float64, source Code) float64 {
	if source == Base {
		return amount
	}
	return amount * c.rate(source)
}

// Convert routes from -> base -> to.
func (c *Converter) Convert(amount float64, from, to Code) float64 {
	if from == to {
		return amount
	}
	return c.FromBase(c.ToBase(amount, from), to)
}

// Format renders a base-unit amount in code: "1.234,50 FG" for the base
// currency, "€ 1 234,50" for the others.
func (c *Converter) Format(amount float64, code Code) string {
	number := c.FormatForInput(amount, code)
	symbol := string(code)
	if info, ok := c.table[code]; ok {
		symbol = info.Symbol
	}
	if code == Base {
		return number + " " + symbol
	}
	return symbol + " " + number
}

// FormatForInput renders a base-unit amount in code without the symbol, for
// pre-filling editable fields.
func (c *Converter) FormatForInput(amount float64, code Code) string {
	return humanize.FormatFloat(numberFormat(code), c.FromBase(amount, code))
}

// ParseInput reverses FormatForInput and returns the amount in the base unit.
// Unparsable input yields 0.
func (c *Converter) ParseInput(text string, code Code) float64 {
	if text == "" {
		return 0
	}
	var normalized string
	if code == Base {
		normalized = strings.ReplaceAll(text, ".", "")
	} else {
		normalized = strings.Join(strings.Fields(text), "")
	}
	normalized = strings.Replace(normalized, ",", ".", 1)

	parsed, ok := parseLeadingFloat(normalized)
	if !ok {
		return 0
	}
	return c.ToBase(parsed, code)
}

// numberFormat is the humanize.FormatFloat pattern for code: dot thousands
// for the base currency, space thousands otherwise, always a decimal comma
// and two decimals.
func numberFormat(code Code) string {
	if code == Base {
		return "#.###,##"
	}
	return "# ###,##"
}

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseLeadingFloat parses the longest numeric prefix of s, ignoring leading
// whitespace and any trailing garbage.
func parseLeadingFloat(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Package-level helpers operating on Default.

func ConvertFromBase(amount float64, target Code) float64 { return Default.FromBase(amount, target) }

func ConvertToBase(amount float64, source Code) float64 { return Default.ToBase(amount, source) }

func Convert(amount float64, from, to Code) float64 { return Default.Convert(amount, from, to) }

func Format(amount float64, code Code) string { return Default.Format(amount, code) }

func FormatForInput(amount float64, code Code) string { return Default.FormatForInput(amount, code) }

func ParseInput(text string, code Code) float64 { return Default.ParseInput(text, code) }
