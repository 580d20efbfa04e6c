package privacy

import "strings"

// bsnWeights are the 11-proof weights applied per digit of the padded BSN.
// Note the last position is weighted -1, unlike the classic elfproef.
var bsnWeights = [9]int{9, 8, 7, 6, 5, 4, 3, 2, -1}

// NormalizeBSN strips common separators (dots, dashes, spaces) and left-pads
// 8-digit values to 9 digits. It does not validate; callers use ValidateBSN.
func NormalizeBSN(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '.', '-', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	n := b.String()
	if len(n) == 8 {
		n = "0" + n
	}
	return n
}

// ValidateBSN reports whether s is a structurally valid burgerservicenummer:
// 8 or 9 digits that satisfy the 11-proof weighted checksum.
func ValidateBSN(s string) bool {
	n := NormalizeBSN(s)
	if len(n) != 9 {
		return false
	}

	sum := 0
	for i, r := range n {
		if r < '0' || r > '9' {
			return false
		}
		sum += int(r-'0') * bsnWeights[i]
	}
	return sum%11 == 0
}

// MaskBSN returns the masked rendering used on every default read path:
// "***.***.**" followed by the last two characters of the identifier.
func MaskBSN(s string) string {
	n := NormalizeBSN(s)
	if len(n) < 2 {
		return "***.***.**"
	}
	return "***.***.**" + n[len(n)-2:]
}
