// Package sentiment scores lexical polarity of free text against a
// lexicon.PolarityLexicon. Tokens come from prose, sentences from its punkt segmenter.
package sentiment

import (
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"
	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"

	"github.com/gambia-creative/assessment/internal/lexicon"
	"github.com/gambia-creative/assessment/pkg/logger"
)

const (
	negationWindow = 3
	negationDamp   = 0.5
)

type Scorer struct {
	lexicon *lexicon.PolarityLexicon
}

// Detail is the breakdown behind a polarity score.
type Detail struct {
	Score    float64 `json:"score"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Scored   int     `json:"scored"`
	Tokens   int     `json:"tokens"`
}

func NewScorer(lex *lexicon.PolarityLexicon) *Scorer {
	return &Scorer{lexicon: lex}
}

// Score returns the polarity of text in [-1,1]; 0 when no lexicon word is found.
func (s *Scorer) Score(text string) float64 {
	return s.Analyze(text).Score
}

func (s *Scorer) Analyze(text string) Detail {
	return s.ScoreTokens(Tokens(text))
}

// ScoreTokens scores lower-cased tokens. A negator within the three preceding
// tokens of the same clause flips and halves a word's score; a modifier
// directly before it scales it.
func (s *Scorer) ScoreTokens(tokens []string) Detail {
	detail := Detail{Tokens: len(tokens)}
	if s.lexicon == nil || len(tokens) == 0 {
		return detail
	}

	var sum float64
	for i, tok := range tokens {
		score, ok := s.lexicon.Score(tok)
		if !ok {
			continue
		}

		if i > 0 {
			if factor, ok := s.lexicon.Modifier(tokens[i-1]); ok {
				score *= factor
			}
		}
		if s.negated(tokens, i) {
			score = -score * negationDamp
		}
		score = clamp(score)

		sum += score
		detail.Scored++
		switch {
		case score > 0:
			detail.Positive++
		case score < 0:
			detail.Negative++
		}
	}

	if detail.Scored > 0 {
		detail.Score = clamp(sum / float64(detail.Scored))
	}
	return detail
}

func (s *Scorer) negated(tokens []string, idx int) bool {
	start := idx - negationWindow
	if start < 0 {
		start = 0
	}
	for j := idx - 1; j >= start; j-- {
		if isClauseBoundary(tokens[j]) {
			return false
		}
		if s.isNegator(tokens[j]) {
			return true
		}
	}
	return false
}

func isClauseBoundary(tok string) bool {
	switch tok {
	case ".", "!", "?", ";", "...":
		return true
	}
	return false
}

// isNegator also recognises contractions however the tokenizer split them.
func (s *Scorer) isNegator(tok string) bool {
	return s.lexicon.IsNegator(tok) || strings.HasSuffix(tok, "n't") || tok == "'t"
}

// Tokens splits text into lower-cased word tokens.
func Tokens(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = strings.ReplaceAll(text, "\u2019", "'")
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logger.Debug("prose tokenization failed, falling back to fields", zap.Error(err))
		return fieldTokens(text)
	}

	raw := doc.Tokens()
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		t := strings.ToLower(tok.Text)
		if t == "" {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

var (
	segmenterOnce sync.Once
	segmenter     *sentences.DefaultSentenceTokenizer
)

// sentenceTokenizer loads the punkt English training once per process.
func sentenceTokenizer() *sentences.DefaultSentenceTokenizer {
	segmenterOnce.Do(func() {
		tok, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			logger.Error("Failed to load sentence tokenizer", zap.Error(err))
			return
		}
		segmenter = tok
	})
	return segmenter
}

// Sentences segments text into sentences.
func Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tok := sentenceTokenizer()
	if tok == nil {
		return []string{text}
	}

	var out []string
	for _, sent := range tok.Tokenize(text) {
		if t := strings.TrimSpace(sent.Text); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

func fieldTokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
