package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambia-creative/assessment/internal/lexicon"
)

func testScorer(t *testing.T) *Scorer {
	t.Helper()
	lex, err := lexicon.NewPolarityLexicon(lexicon.PolarityConfig{
		Words: map[string]float64{
			"good":     0.6,
			"great":    0.8,
			"amazing":  0.9,
			"dirty":    -0.7,
			"terrible": -0.9,
		},
		Negators:  []string{"not", "never"},
		Modifiers: map[string]float64{"very": 1.5, "slightly": 0.5},
	})
	require.NoError(t, err)
	return NewScorer(lex)
}

func TestScore(t *testing.T) {
	s := testScorer(t)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"empty", "", 0},
		{"no lexicon words", "we walked along the river", 0},
		{"positive", "the guide was good", 0.6},
		{"negative", "the room was dirty", -0.7},
		{"average", "good food but a dirty room", (0.6 - 0.7) / 2},
		{"negated", "the food was not good", -0.3},
		{"negation window", "not really good", -0.3},
		{"outside window", "not that the room or the food was good", 0.6},
		{"intensified", "a very good trip", 0.9},
		{"intensifier clamps", "very amazing", 1.0},
		{"diminished", "slightly dirty", -0.35},
		{"case insensitive", "GREAT Experience", 0.8},
		{"negation stops at full stop", "The room was not dirty. Great food.", (0.35 + 0.8) / 2},
		{"negation stops at exclamation", "Not good! Great staff.", (-0.3 + 0.8) / 2},
		{"negation stops at semicolon", "never again; good food", 0.6},
		{"negation stops at question mark", "Why not? Great view.", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.text), 1e-9)
		})
	}
}

func TestAnalyzeDetail(t *testing.T) {
	s := testScorer(t)

	d := s.Analyze("great music, terrible roads, good food")
	assert.Equal(t, 3, d.Scored)
	assert.Equal(t, 2, d.Positive)
	assert.Equal(t, 1, d.Negative)
	assert.InDelta(t, (0.8-0.9+0.6)/3, d.Score, 1e-9)
	assert.GreaterOrEqual(t, d.Tokens, 6)
}

func TestScoreBounded(t *testing.T) {
	s := testScorer(t)
	for _, text := range []string{
		"very very amazing amazing",
		"not terrible not terrible",
		"terrible terrible terrible",
	} {
		score := s.Score(text)
		assert.GreaterOrEqual(t, score, -1.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestNilLexicon(t *testing.T) {
	s := NewScorer(nil)
	assert.Equal(t, 0.0, s.Score("great"))
}

func TestSentences(t *testing.T) {
	assert.Nil(t, Sentences("   "))

	sents := Sentences("The beach was beautiful. The hotel staff were rude! Would we return?")
	require.Len(t, sents, 3)
	assert.Equal(t, "The beach was beautiful.", sents[0])
}

func TestSentencesReusesTokenizer(t *testing.T) {
	Sentences("Warm welcome. Great food.")
	first := sentenceTokenizer()
	require.NotNil(t, first)

	Sentences("Another review. With two sentences.")
	assert.Same(t, first, sentenceTokenizer())
}

func TestSentencesManyUnits(t *testing.T) {
	start := time.Now()
	for i := 0; i < 500; i++ {
		require.Len(t, Sentences("The kora player was superb. The room was dirty."), 2)
	}
	// Reloading the punkt training per call costs tens of milliseconds each.
	assert.Less(t, time.Since(start), 3*time.Second)
}

func BenchmarkSentences(b *testing.B) {
	text := "The kora player was superb. The room was dirty but the staff were friendly."
	Sentences(text)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sentences(text)
	}
}

func BenchmarkTokens(b *testing.B) {
	text := "The kora player was superb. The room was dirty but the staff were friendly."
	for i := 0; i < b.N; i++ {
		Tokens(text)
	}
}

func TestTokensLowercased(t *testing.T) {
	tokens := Tokens("Kora MUSIC in Banjul")
	assert.Contains(t, tokens, "kora")
	assert.Contains(t, tokens, "music")
	assert.Contains(t, tokens, "banjul")
	assert.Nil(t, Tokens(""))
}
