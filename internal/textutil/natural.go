package textutil

import (
	"sort"
	"strings"
)

// NaturalLess orders strings by comparing embedded digit runs numerically and
// everything else lexically, so "2_x" sorts before "10_x". Strings that compare
// equal chunk by chunk (for example "007" and "7") fall back to plain lexical
// order to keep the result total.
func NaturalLess(a, b string) bool {
	ac, bc := chunks(a), chunks(b)
	for i := 0; i < len(ac) && i < len(bc); i++ {
		x, y := ac[i], bc[i]
		xd, yd := isDigits(x), isDigits(y)
		switch {
		case xd && yd:
			if c := compareNumeric(x, y); c != 0 {
				return c < 0
			}
		case xd != yd:
			// digits sort before letters, matching the int < str order of a mixed key
			return xd
		default:
			if x != y {
				return x < y
			}
		}
	}
	if len(ac) != len(bc) {
		return len(ac) < len(bc)
	}
	return a < b
}

// NaturalSort sorts values in place using NaturalLess.
func NaturalSort(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		return NaturalLess(values[i], values[j])
	})
}

// LeadingNumber returns the value of the digit run at the start of s, or -1
// when s does not start with a digit.
func LeadingNumber(s string) int {
	n := -1
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < 0 {
			n = 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func chunks(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	digit := isDigit(s[0])
	for i := 1; i < len(s); i++ {
		if d := isDigit(s[i]); d != digit {
			out = append(out, s[start:i])
			start = i
			digit = d
		}
	}
	return append(out, s[start:])
}

func compareNumeric(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}

func isDigits(s string) bool {
	return s != "" && isDigit(s[0])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
