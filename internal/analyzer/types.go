package analyzer

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/pkg/logger"
)

const (
	MinRating = 1
	MaxRating = 5
)

// TextUnit is one review or page of marketing copy.
type TextUnit struct {
	Text        string     `json:"text"`
	Rating      *int       `json:"rating,omitempty"`
	Language    string     `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewTextUnit validates a scraped record once at the ingestion boundary.
// Ratings outside 1..5 are dropped rather than rejected.
func NewTextUnit(text string, rating *int, language string, publishedAt *time.Time) TextUnit {
	unit := TextUnit{
		Text:        strings.TrimSpace(text),
		Language:    strings.ToLower(strings.TrimSpace(language)),
		PublishedAt: publishedAt,
	}

	if rating != nil {
		if ValidRating(*rating) {
			r := *rating
			unit.Rating = &r
		} else {
			logger.Warn("Dropping out-of-range rating", zap.Int("rating", *rating))
		}
	}

	return unit
}

func (u TextUnit) HasRating() bool {
	return u.Rating != nil && ValidRating(*u.Rating)
}

func (u TextUnit) HasText() bool {
	return strings.TrimSpace(u.Text) != ""
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// ThemeScoreResult is the score of one text unit against one theme. Sentiment is
// zero when the theme has no keyword matches.
type ThemeScoreResult struct {
	ThemeKey        string   `json:"theme_key"`
	Relevance       float64  `json:"relevance"`
	Sentiment       float64  `json:"sentiment"`
	Matches         int      `json:"matches"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

func (r ThemeScoreResult) Matched() bool {
	return r.Matches > 0
}
