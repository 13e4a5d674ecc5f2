package source

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeName lowercases, folds diacritics, and collapses whitespace so
// "José Ferrer" and "jose  ferrer" compare equal.
func normalizeName(name string) string {
	folded, _, err := transform.String(diacriticFolder, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// exactNameMatch reports whether candidate and subject normalize to the
// same full name.
func exactNameMatch(candidate, subject string) bool {
	c, s := normalizeName(candidate), normalizeName(subject)
	return c != "" && c == s
}

// surnameMatch reports whether the candidate's last name token equals the
// subject's. Used as the fallback when no exact listing exists.
func surnameMatch(candidate, subject string) bool {
	return lastToken(candidate) != "" && lastToken(candidate) == lastToken(subject)
}

func lastToken(name string) string {
	fields := strings.Fields(normalizeName(name))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
