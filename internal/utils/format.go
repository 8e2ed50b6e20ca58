package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Style selects how a value is rendered on a display target.
type Style int

const (
	// StyleAmount renders "<symbol><grouped integer>".
	StyleAmount Style = iota
	// StyleCount renders "<grouped integer> count".
	StyleCount
	// StylePlain renders "<grouped integer>".
	StylePlain
	// StyleRounded renders the rounded integer without grouping.
	StyleRounded
	// StyleDays renders "<rounded integer> days".
	StyleDays
)

var styleNames = map[Style]string{
	StyleAmount:  "amount",
	StyleCount:   "count",
	StylePlain:   "plain",
	StyleRounded: "rounded",
	StyleDays:    "days",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("style(%d)", int(s))
}

// MarshalText encodes the style by name.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a style name such as "amount" or "days".
func (s *Style) UnmarshalText(text []byte) error {
	for style, name := range styleNames {
		if name == string(text) {
			*s = style
			return nil
		}
	}
	return fmt.Errorf("unknown style %q", text)
}

const (
	LocaleIndian  = "en-IN"
	LocaleWestern = "en-US"
)

var half = decimal.NewFromFloat(0.5)

// Formatter renders numbers for display targets.
type Formatter struct {
	Symbol string
	Locale string
}

// NewFormatter returns a formatter for the given currency glyph and locale.
func NewFormatter(symbol, locale string) *Formatter {
	if locale == "" {
		locale = LocaleIndian
	}
	return &Formatter{Symbol: symbol, Locale: locale}
}

// Format renders v in the requested style.
func (f *Formatter) Format(v float64, style Style) string {
	rounded := Round(v)
	switch style {
	case StyleAmount:
		return f.Symbol + GroupDigits(rounded, f.Locale)
	case StyleCount:
		return GroupDigits(rounded, f.Locale) + " count"
	case StyleRounded:
		return rounded
	case StyleDays:
		return rounded + " days"
	default:
		return GroupDigits(rounded, f.Locale)
	}
}

// Round rounds half up to the nearest integer and returns its decimal string.
// NaN and infinities render as "0".
func Round(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return decimal.NewFromFloat(v).Add(half).Floor().String()
}

// GroupDigits inserts thousands separators into an integer string. The Indian
// locale groups the last three digits, then pairs (1,37,62,563).
func GroupDigits(digits, locale string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	if len(digits) <= 3 {
		if neg && digits != "0" {
			return "-" + digits
		}
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	step := 3
	if locale == LocaleIndian {
		step = 2
	}
	var groups []string
	for len(head) > step {
		groups = append([]string{head[len(head)-step:]}, groups...)
		head = head[:len(head)-step]
	}
	groups = append([]string{head}, groups...)
	out := strings.Join(append(groups, tail), ",")
	if neg {
		return "-" + out
	}
	return out
}
