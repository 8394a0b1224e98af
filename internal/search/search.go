// Package search holds the substring predicate applied while scanning
// medicine records.
package search

import (
	"strings"

	"medshelf/m/domain"
)

// Normalize trims and lower-cases a query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Matches reports whether m matches query. An empty query matches every
// record; otherwise brand, salt or dosage form must contain it.
func Matches(m domain.Medicine, query string) bool {
	return matchesNormalized(m, Normalize(query))
}

// Matcher returns a predicate bound to an already normalized query, for
// callers that test many records against one query.
func Matcher(query string) func(domain.Medicine) bool {
	term := Normalize(query)
	return func(m domain.Medicine) bool {
		return matchesNormalized(m, term)
	}
}

func matchesNormalized(m domain.Medicine, term string) bool {
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(m.BrandName), term) {
		return true
	}
	if strings.Contains(strings.ToLower(m.SaltName), term) {
		return true
	}
	return m.DosageForm != "" && strings.Contains(strings.ToLower(m.DosageForm), term)
}
