// CLAUDE:SUMMARY Canonical text form for spoken/typed queries: number-word substitution, lowercase, [a-z0-9. ] filter, whitespace collapse.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms raw text into its comparable form.
type Normalizer func(string) string

// Mode names accepted by Get.
const (
	ModeSpoken     = "spoken"
	ModeSpokenFold = "spoken_fold"
)

// numberWords maps spelled-out English numbers to digit strings.
// Read-only after init; safe to share between goroutines.
var numberWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ten":       "10",
	"eleven":    "11",
	"twelve":    "12",
	"thirteen":  "13",
	"fourteen":  "14",
	"fifteen":   "15",
	"sixteen":   "16",
	"seventeen": "17",
	"eighteen":  "18",
	"nineteen":  "19",
	"twenty":    "20",
}

// NumberWord returns the digit string for a spelled-out number word ("seven" -> "7").
// The lookup is case-insensitive.
func NumberWord(word string) (string, bool) {
	d, ok := numberWords[strings.ToLower(word)]
	return d, ok
}

// Normalize returns the canonical form of s. The result only contains
// [a-z0-9. ], has no leading or trailing space and no double spaces.
//
// Periods survive so that measurements like "1.2mm" keep their decimal point.
// Every other punctuation character is deleted outright, not replaced by a
// space: "R-R" becomes "rr". Non-ASCII letters are dropped.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = substituteNumbers(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}

	// strings.Fields collapses space runs and trims in one pass. A second
	// substitution catches tokens that only became number words once their
	// punctuation was stripped ("one," -> "one").
	return substituteNumbers(b.String())
}

// NormalizeFold folds accents ("Café" -> "Cafe") before Normalize, so
// accented letters survive as their ASCII base instead of being dropped.
func NormalizeFold(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err != nil {
		return Normalize(s)
	}
	return Normalize(folded)
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Get returns the normalizer registered for mode. Unknown or empty modes
// fall back to ModeSpoken.
func Get(mode string) Normalizer {
	switch mode {
	case ModeSpokenFold:
		return NormalizeFold
	default:
		return Normalize
	}
}

// Words splits a normalized string into its words.
func Words(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// substituteNumbers splits on whitespace runs, replaces whole-token number
// words and joins the tokens back with single spaces.
func substituteNumbers(s string) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if d, ok := NumberWord(tok); ok {
			tokens[i] = d
		}
	}
	return strings.Join(tokens, " ")
}

func keep(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '.':
		return true
	}
	return false
}
