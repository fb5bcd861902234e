// CLAUDE:SUMMARY Word-subset containment predicate over normalized text and the order-preserving record filter built on it.
// Package match decides whether a record satisfies a query.
//
// A record matches when every word of the normalized query appears somewhere
// inside the normalized record text. Containment is plain substring search:
// "2mm" matches "1.2mm" and "elec" matches "electrical". There is no whole-word
// equality, no stemming and no edit distance. Word order in the query does not
// matter, and matching never ranks: a record is in or out.
package match

import (
	"strings"

	"github.com/hazyhaar/voxsearch/pkg/textnorm"
)

// Matcher applies the containment rule with a given normalizer.
// The zero value uses textnorm.Normalize.
type Matcher struct {
	Normalize textnorm.Normalizer
}

// New returns a Matcher using the normalizer registered for mode.
func New(mode string) Matcher {
	return Matcher{Normalize: textnorm.Get(mode)}
}

var defaultMatcher Matcher

// Matches reports whether candidate satisfies query under the default normalizer.
func Matches(candidate, query string) bool {
	return defaultMatcher.Matches(candidate, query)
}

// Filter returns the records matching query, in their original order.
func Filter(records []string, query string) []string {
	return defaultMatcher.Filter(records, query)
}

// Indexes returns the positions of the records matching query, ascending.
func Indexes(records []string, query string) []int {
	return defaultMatcher.Indexes(records, query)
}

func (m Matcher) normalize(s string) string {
	if m.Normalize == nil {
		return textnorm.Normalize(s)
	}
	return m.Normalize(s)
}

// Matches reports whether every word of the normalized query is contained in
// the normalized candidate. An empty query matches everything.
func (m Matcher) Matches(candidate, query string) bool {
	return m.Query(query).Matches(candidate)
}

// Filter returns the records matching query, in their original order.
// Repeated texts are kept: records are distinct by position.
func (m Matcher) Filter(records []string, query string) []string {
	q := m.Query(query)
	out := make([]string, 0, len(records))
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Indexes returns the positions of the records matching query, ascending.
func (m Matcher) Indexes(records []string, query string) []int {
	q := m.Query(query)
	out := make([]int, 0, len(records))
	for i, r := range records {
		if q.Matches(r) {
			out = append(out, i)
		}
	}
	return out
}

// Query is a query normalized once and checked against many candidates
// during a single filter pass.
type Query struct {
	m          Matcher
	normalized string
	words      []string
}

// Query normalizes raw and splits it into words.
func (m Matcher) Query(raw string) Query {
	n := m.normalize(raw)
	return Query{m: m, normalized: n, words: textnorm.Words(n)}
}

// Normalized returns the canonical form of the query.
func (q Query) Normalized() string { return q.normalized }

// Words returns the query words.
func (q Query) Words() []string { return q.words }

// Empty reports whether the query normalizes to nothing ("show all").
func (q Query) Empty() bool { return len(q.words) == 0 }

// Matches reports whether candidate contains every query word.
func (q Query) Matches(candidate string) bool {
	if q.Empty() {
		return true
	}
	c := q.m.normalize(candidate)
	for _, w := range q.words {
		if !strings.Contains(c, w) {
			return false
		}
	}
	return true
}
