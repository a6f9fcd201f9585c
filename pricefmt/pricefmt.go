// Package pricefmt turns locale-formatted storefront price strings into
// decimal amounts.
//
// Grammar, applied in order:
//
//  1. strip currency symbols, codes and whitespace
//  2. strip the thousands separator
//  3. normalize the decimal separator to '.' (or drop it, see Locale.DropDecimal)
//  4. drop any remaining character that is not a digit or '.'
//  5. parse; empty, malformed, zero and negative amounts are rejected
package pricefmt

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmpty is returned when no digits survive normalization.
	ErrEmpty = errors.New("pricefmt: empty amount")

	// ErrMalformed is returned when the normalized string is not a number.
	ErrMalformed = errors.New("pricefmt: malformed amount")

	// ErrNotPositive is returned for zero or negative amounts.
	ErrNotPositive = errors.New("pricefmt: amount must be positive")
)

// Locale describes how a storefront formats prices.
type Locale struct {
	// Symbols are stripped before anything else (e.g. "$", "COP").
	Symbols []string

	// Thousands is the grouping separator.
	Thousands rune

	// Decimal is the decimal separator.
	Decimal rune

	// DropDecimal removes the decimal separator instead of converting it,
	// for storefronts that only ever print whole units.
	DropDecimal bool
}

// COP is Colombian peso formatting with a decimal comma ("1.299.900,50").
var COP = Locale{
	Symbols:   []string{"COP", "$"},
	Thousands: '.',
	Decimal:   ',',
}

// COPWhole is Colombian peso formatting where any comma is noise and the
// amount is always whole pesos.
var COPWhole = Locale{
	Symbols:     []string{"COP", "$"},
	Thousands:   '.',
	Decimal:     ',',
	DropDecimal: true,
}

// Parse normalizes raw according to loc and returns a strictly positive amount.
func Parse(raw string, loc Locale) (decimal.Decimal, error) {
	s := Normalize(raw, loc)
	if s == "" || strings.Trim(s, ".") == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrEmpty, raw)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotPositive, raw)
	}
	return amount, nil
}

// Normalize applies steps 1-4 of the grammar and returns the bare numeric
// string. It never fails; an empty result means nothing numeric was found.
func Normalize(raw string, loc Locale) string {
	s := raw
	for _, sym := range loc.Symbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if loc.Thousands != 0 {
		s = strings.ReplaceAll(s, string(loc.Thousands), "")
	}
	if loc.Decimal != 0 && loc.Decimal != '.' {
		repl := "."
		if loc.DropDecimal {
			repl = ""
		}
		s = strings.ReplaceAll(s, string(loc.Decimal), repl)
	}

	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}
