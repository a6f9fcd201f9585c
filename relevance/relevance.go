// Package relevance scores how well a listing title matches the query that
// produced it. Storefront search returns accessories and refurbished units
// next to the product being looked for; the score pushes those down.
package relevance

import (
	"math"
	"strings"
	"unicode/utf8"
)

// NoKeywords is the score for queries made only of stop words and short tokens.
const NoKeywords = 50

var (
	// StopWords are ignored when extracting query keywords.
	StopWords = []string{"el", "la", "de", "para", "con", "en", "y", "un", "una"}

	// Accessories mark a listing as an add-on rather than the product itself.
	Accessories = []string{
		"cable", "cargador", "funda", "estuche", "protector", "vidrio",
		"mica", "auricular", "audífono", "holder", "soporte", "base",
	}
)

const (
	refurbished = "reacondicionado"

	leadRunes     = 50
	minTitleRunes = 15
)

// Score rates title against query on a 0-100 scale:
//
//	+50  the whole query appears in the title
//	+30  scaled by the share of keywords found anywhere in the title
//	+20  scaled by the share of keywords found in the first 50 characters
//	-40  accessory listing, unless the query asks for one
//	-20  refurbished listing, unless the query asks for one
//	-15  title shorter than 15 characters
func Score(title, query string) int {
	t := strings.ToLower(title)
	q := strings.ToLower(strings.TrimSpace(query))

	keywords := Keywords(q)
	if len(keywords) == 0 {
		return NoKeywords
	}

	var score float64
	if strings.Contains(t, q) {
		score += 50
	}

	lead := prefixRunes(t, leadRunes)
	var inTitle, inLead int
	for _, w := range keywords {
		if strings.Contains(t, w) {
			inTitle++
		}
		if strings.Contains(lead, w) {
			inLead++
		}
	}
	n := float64(len(keywords))
	score += float64(inTitle) / n * 30
	score += float64(inLead) / n * 20

	if !containsAny(q, Accessories) && containsAny(t, Accessories) {
		score -= 40
	}
	if !strings.Contains(q, refurbished) && strings.Contains(t, refurbished) {
		score -= 20
	}
	if utf8.RuneCountInString(title) < minTitleRunes {
		score -= 15
	}

	return int(math.Round(max(0, min(100, score))))
}

// Keywords returns the lower-cased query words longer than two characters
// that are not stop words.
func Keywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) <= 2 || containsWord(StopWords, w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func prefixRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}
