// Package analyzer turns a text unit into per-theme relevance and sentiment
// scores. An Analyzer holds only read-only lexicons and is safe for concurrent use.
package analyzer

import (
	"math"
	"strings"

	"github.com/gambia-creative/assessment/internal/lexicon"
	"github.com/gambia-creative/assessment/internal/sentiment"
)

const (
	RatingWeight  = 0.7
	LexicalWeight = 0.3

	wordsPerBlock = 100.0
)

type Analyzer struct {
	store  *lexicon.Store
	scorer *sentiment.Scorer
}

func New(store *lexicon.Store) *Analyzer {
	return &Analyzer{
		store:  store,
		scorer: sentiment.NewScorer(store.Polarity()),
	}
}

func (a *Analyzer) Store() *lexicon.Store {
	return a.store
}

// Analyze scores text against every theme. Every theme key is present in the
// result; unmatched themes have zero relevance and sentiment.
func (a *Analyzer) Analyze(text string, rating *int) map[string]ThemeScoreResult {
	themes := a.store.Themes()
	results := make(map[string]ThemeScoreResult, len(themes))

	lower := strings.ToLower(text)
	wordCount := len(strings.Fields(text))
	blocks := math.Max(float64(wordCount)/wordsPerBlock, 1)

	var sentences []string
	for _, theme := range themes {
		matched := theme.MatchKeywords(lower)
		if len(matched) == 0 {
			results[theme.Key] = ThemeScoreResult{ThemeKey: theme.Key}
			continue
		}

		if sentences == nil {
			sentences = sentiment.Sentences(text)
		}

		normalized := float64(len(matched)) / blocks
		results[theme.Key] = ThemeScoreResult{
			ThemeKey:        theme.Key,
			Relevance:       math.Min(normalized*theme.Weight, 1),
			Sentiment:       Blend(a.themePolarity(theme, text, sentences), rating),
			Matches:         len(matched),
			MatchedKeywords: matched,
		}
	}

	return results
}

func (a *Analyzer) AnalyzeUnit(unit TextUnit) map[string]ThemeScoreResult {
	return a.Analyze(unit.Text, unit.Rating)
}

// OverallSentiment is the whole-text polarity blended with the rating. With no
// text the rating alone decides; with neither it is 0.
func (a *Analyzer) OverallSentiment(text string, rating *int) float64 {
	if strings.TrimSpace(text) == "" {
		if rating != nil && ValidRating(*rating) {
			return RatingPolarity(*rating)
		}
		return 0
	}
	return Blend(a.scorer.Score(text), rating)
}

func (a *Analyzer) LexicalDetail(text string) sentiment.Detail {
	return a.scorer.Analyze(text)
}

// themePolarity scores only the sentences that mention the theme.
func (a *Analyzer) themePolarity(theme *lexicon.Theme, text string, sentences []string) float64 {
	var relevant []string
	for _, sent := range sentences {
		if theme.Mentions(strings.ToLower(sent)) {
			relevant = append(relevant, sent)
		}
	}
	if len(relevant) == 0 {
		return a.scorer.Score(text)
	}
	return a.scorer.Score(joinSentences(relevant))
}

// joinSentences keeps a terminator between sentences so negation does not
// carry from one into the next.
func joinSentences(sents []string) string {
	var b strings.Builder
	for i, sent := range sents {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(sent)
		if !strings.ContainsAny(sent[len(sent)-1:], ".!?;") {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// NormalizeRating maps a 1..5 rating onto [0,1].
func NormalizeRating(r int) float64 {
	n := float64(r-MinRating) / float64(MaxRating-MinRating)
	return math.Max(0, math.Min(1, n))
}

// RatingPolarity maps a 1..5 rating onto [-1,1].
func RatingPolarity(r int) float64 {
	return 2*NormalizeRating(r) - 1
}

// Blend combines lexical polarity with a rating when one is present.
func Blend(lexical float64, rating *int) float64 {
	if rating == nil || !ValidRating(*rating) {
		return lexical
	}
	return RatingWeight*RatingPolarity(*rating) + LexicalWeight*lexical
}
