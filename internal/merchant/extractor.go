// Package merchant extracts merchant tokens from free-text expense concepts.
package merchant

import "strings"

// Extraction is the result of scanning a concept for a merchant.
type Extraction struct {
	Merchant   string
	Source     Source
	Confidence float64
}

// Source indicates how the merchant was found.
type Source string

// Extraction sources.
const (
	SourceDictionary Source = "dictionary"
	SourceFallback   Source = "fallback"
	SourceNone       Source = "none"
)

// Found reports whether any merchant token was identified.
func (e Extraction) Found() bool {
	return e.Merchant != ""
}

// patternGroup is a named, priority-ordered set of merchant substrings.
type patternGroup struct {
	name     string
	patterns []string
}

// Groups are scanned in order; within a group the first substring match wins.
var patternGroups = []patternGroup{
	{"supermarkets", []string{
		"mercadona", "carrefour", "lidl", "aldi", "eroski", "alcampo",
		"consum", "supermercado", "hipercor", "dia ",
	}},
	{"streaming", []string{
		"netflix", "spotify", "hbo", "disney", "prime video", "filmin",
		"movistar plus", "youtube premium",
	}},
	{"transport", []string{
		"uber", "cabify", "bolt", "renfe", "metro", "emt", "gasolinera",
		"repsol", "cepsa", "galp", "parking", "taxi",
	}},
	{"food-delivery", []string{
		"glovo", "just eat", "justeat", "deliveroo", "uber eats", "telepizza",
		"dominos", "mcdonald", "burger king", "kfc",
	}},
	{"vices", []string{
		"estanco", "tabaco", "loteria", "apuestas", "codere", "bwin", "casino",
	}},
	{"pharmacy", []string{
		"farmacia", "parafarmacia", "botica",
	}},
	{"education", []string{
		"academia", "udemy", "coursera", "platzi", "casa del libro",
		"libreria", "matricula",
	}},
	{"gym", []string{
		"gimnasio", "basic fit", "basic-fit", "mcfit", "anytime fitness",
		"crossfit", "padel",
	}},
	{"e-commerce", []string{
		"amazon", "aliexpress", "ebay", "el corte ingles", "zara", "shein",
		"pccomponentes", "fnac",
	}},
}

const minTokenLen = 4

// Extract finds the most likely merchant token in a free-text concept.
// A concept with no identifiable merchant returns an empty Extraction with
// confidence 0; that is a valid outcome, not an error.
func Extract(concept string) Extraction {
	normalized := normalize(concept)
	if normalized == "" {
		return Extraction{Source: SourceNone}
	}

	// Dictionary pass: priority-ordered groups, first substring match wins.
	for _, group := range patternGroups {
		for _, pattern := range group.patterns {
			if strings.Contains(normalized, pattern) {
				return Extraction{
					Merchant:   strings.TrimSpace(pattern),
					Source:     SourceDictionary,
					Confidence: 1.0,
				}
			}
		}
	}

	// Fallback: first token long enough to carry meaning. Short tokens are
	// treated as stopwords ("de", "la", "el", "pago"...).
	tokens := strings.Fields(normalized)
	for _, token := range tokens {
		if len(token) >= minTokenLen {
			return Extraction{
				Merchant:   token,
				Source:     SourceFallback,
				Confidence: fallbackConfidence(token),
			}
		}
	}

	// Nothing qualified; accept the first token only if it has 3+ characters.
	if len(tokens) > 0 && len(tokens[0]) >= 3 {
		return Extraction{
			Merchant:   tokens[0],
			Source:     SourceFallback,
			Confidence: fallbackConfidence(tokens[0]),
		}
	}

	return Extraction{Source: SourceNone}
}

// fallbackConfidence grades a fallback token by length.
func fallbackConfidence(token string) float64 {
	switch {
	case len(token) >= 6:
		return 0.8
	case len(token) >= 4:
		return 0.7
	default:
		return 0.6
	}
}

var currencyReplacer = strings.NewReplacer("€", " ", "$", " ", "£", " ")

// normalize lowercases, strips currency symbols and collapses whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = currencyReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
