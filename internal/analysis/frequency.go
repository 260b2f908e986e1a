package analysis

import "elpais-crawler/pkg/types"

const (
	// DefaultMinLength drops words of two characters or fewer.
	DefaultMinLength = 3
	// DefaultMinOccurrences keeps words seen more than twice.
	DefaultMinOccurrences = 3
)

// Analyzer computes word frequencies over translated headlines.
type Analyzer struct {
	minLength      int
	minOccurrences int
}

// NewAnalyzer builds an analyzer. Non-positive values fall back to the defaults.
func NewAnalyzer(minLength, minOccurrences int) Analyzer {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if minOccurrences <= 0 {
		minOccurrences = DefaultMinOccurrences
	}
	return Analyzer{minLength: minLength, minOccurrences: minOccurrences}
}

// MinOccurrences is the count a word needs to be reported as repeated.
func (a Analyzer) MinOccurrences() int {
	if a.minOccurrences <= 0 {
		return DefaultMinOccurrences
	}
	return a.minOccurrences
}

// Count returns the occurrences of every word long enough to be counted.
func (a Analyzer) Count(headlines []string) types.WordCounts {
	minLength := a.minLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	counts := make(types.WordCounts)
	for _, headline := range headlines {
		for _, word := range Tokenize(headline) {
			if len(word) < minLength {
				continue
			}
			counts[word]++
		}
	}
	return counts
}

// Analyze returns only the words that repeat at least minOccurrences times.
func (a Analyzer) Analyze(headlines []string) types.WordCounts {
	return a.Repeated(a.Count(headlines))
}

// Repeated filters counts down to the words meeting the occurrence threshold.
func (a Analyzer) Repeated(counts types.WordCounts) types.WordCounts {
	minOccurrences := a.MinOccurrences()
	repeated := make(types.WordCounts)
	for word, count := range counts {
		if count >= minOccurrences {
			repeated[word] = count
		}
	}
	return repeated
}
