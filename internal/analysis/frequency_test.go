package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpais-crawler/pkg/types"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"¡Hola!":                   "hola",
		"Crisis, crisis.":          "crisis crisis",
		"Año 2024: más gasto":      "ao 2024 ms gasto",
		"UPPER lower":              "upper lower",
		"tabs\tand\nnewlines":      "tabs\tand\nnewlines",
		"¿?!…":                     "",
		"non\u00a0breaking space":  "nonbreaking space",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"the", "government", "falls"}, Tokenize("  The government,\tfalls! "))
	assert.Empty(t, Tokenize("   "))
	assert.Empty(t, Tokenize(""))
}

func TestAnalyzeRepeatedPunctuation(t *testing.T) {
	a := NewAnalyzer(0, 0)
	got := a.Analyze([]string{"Crisis! Crisis, crisis."})
	assert.Equal(t, types.WordCounts{"crisis": 3}, got)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer(0, 0)
	assert.Empty(t, a.Analyze(nil))
	assert.Empty(t, a.Analyze([]string{}))
	assert.Empty(t, a.Analyze([]string{"", "!!"}))
}

func TestAnalyzeDropsShortWordsAndLowCounts(t *testing.T) {
	a := NewAnalyzer(0, 0)
	headlines := []string{
		"The war of the words",
		"The end of the war",
		"War is on",
		"Of of of of",
	}
	counts := a.Count(headlines)
	assert.Equal(t, 4, counts["the"])
	assert.Equal(t, 3, counts["war"])
	assert.Equal(t, 1, counts["words"])
	_, hasShort := counts["of"]
	assert.False(t, hasShort)

	got := a.Analyze(headlines)
	assert.Equal(t, types.WordCounts{"the": 4, "war": 3}, got)
	for word, count := range got {
		assert.Greater(t, len(word), 2)
		assert.Greater(t, count, 2)
	}
}

func TestAnalyzeExactlyTwoIsNotRepeated(t *testing.T) {
	a := NewAnalyzer(0, 0)
	got := a.Analyze([]string{"budget talks", "budget vote"})
	assert.Empty(t, got)
}

func TestAnalyzeDeterministic(t *testing.T) {
	a := NewAnalyzer(0, 0)
	headlines := []string{
		"The government responds",
		"Opinion: the government and the street",
		"Why the government must listen",
	}
	first := a.Analyze(headlines)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, a.Analyze(headlines))
	}
	reversed := []string{headlines[2], headlines[1], headlines[0]}
	assert.Equal(t, first, a.Analyze(reversed))
	assert.Equal(t, types.WordCounts{"the": 4, "government": 3}, first)
}

func TestAnalyzeGobiernoAcrossHeadlines(t *testing.T) {
	a := NewAnalyzer(0, 0)
	headlines := []string{
		"El gobierno y la oposición",
		"Una semana difícil",
		"Gobierno en funciones",
		"Cartas al director",
		"¿Qué hará el Gobierno?",
	}
	assert.Equal(t, types.WordCounts{"gobierno": 3}, a.Analyze(headlines))
}

func TestCustomThresholds(t *testing.T) {
	a := NewAnalyzer(5, 2)
	got := a.Analyze([]string{"short longer", "short longer", "tiny"})
	assert.Equal(t, types.WordCounts{"short": 2, "longer": 2}, got)
}

func TestMinOccurrences(t *testing.T) {
	assert.Equal(t, DefaultMinOccurrences, NewAnalyzer(0, 0).MinOccurrences())
	assert.Equal(t, 4, NewAnalyzer(0, 4).MinOccurrences())
	assert.Equal(t, DefaultMinOccurrences, Analyzer{}.MinOccurrences())
}

func TestSortedIsStable(t *testing.T) {
	counts := types.WordCounts{"beta": 3, "alpha": 3, "gamma": 5}
	assert.Equal(t, []types.WordCount{
		{Word: "gamma", Count: 5},
		{Word: "alpha", Count: 3},
		{Word: "beta", Count: 3},
	}, counts.Sorted())
}
