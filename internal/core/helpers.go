package core

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanCell removes common spreadsheet artifacts from a header cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
//
// It is only applied when comparing headers; record values are passed
// through trimmed but otherwise untouched.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// SanitizeFilename keeps letters, digits, space, hyphen and underscore from
// name and trims trailing whitespace. Input is NFC-normalized first so
// decomposed accents survive as single letters. When nothing is left the
// fallback contact_<index> is returned (index is 1-based).
func SanitizeFilename(name string, index int) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	safe := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	if strings.TrimSpace(safe) == "" {
		return "contact_" + strconv.Itoa(index)
	}
	return safe
}
