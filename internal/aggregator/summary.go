package aggregator

import (
	"sort"

	"github.com/gambia-creative/assessment/internal/analyzer"
)

const (
	MentionThreshold   = 0.1
	PositiveThreshold  = 0.1
	NegativeThreshold  = -0.1
	CriticalSentiment  = -0.1
	CriticalMinMention = 3
	MaxQuotes          = 5
	QuoteLength        = 200
)

type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (d *Distribution) add(sentiment float64) {
	switch {
	case sentiment > PositiveThreshold:
		d.Positive++
	case sentiment < NegativeThreshold:
		d.Negative++
	default:
		d.Neutral++
	}
}

type Quote struct {
	Text      string  `json:"text"`
	Sentiment float64 `json:"sentiment"`
}

type EntityThemeSummary struct {
	ThemeKey         string       `json:"theme_key"`
	DisplayName      string       `json:"display_name"`
	AverageRelevance float64      `json:"average_relevance"`
	AverageSentiment float64      `json:"average_sentiment"`
	MentionCount     int          `json:"mention_count"`
	Distribution     Distribution `json:"sentiment_distribution"`
	SampleQuotes     []Quote      `json:"sample_quotes"`

	relevanceSum float64
	sentimentSum float64
}

type CriticalArea struct {
	ThemeKey         string  `json:"theme"`
	DisplayName      string  `json:"display_name"`
	AverageSentiment float64 `json:"avg_sentiment"`
	MentionCount     int     `json:"mention_count"`
}

// EntitySummary accumulates the analyses of one entity's text units. It has no
// internal locking: fold into a given summary from one goroutine only.
type EntitySummary struct {
	EntityID         string                         `json:"entity_id"`
	TotalTextUnits   int                            `json:"total_text_units"`
	SentimentUnits   int                            `json:"sentiment_units"`
	OverallSentiment float64                        `json:"overall_sentiment"`
	RatedUnits       int                            `json:"rated_units"`
	AverageRating    float64                        `json:"average_rating"`
	PositiveRate     float64                        `json:"positive_rate"`
	Themes           map[string]*EntityThemeSummary `json:"themes"`
	CriticalAreas    []CriticalArea                 `json:"critical_areas"`

	sentimentSum float64
	ratingSum    float64
	positive     int
}

func NewEntitySummary(entityID string) *EntitySummary {
	return &EntitySummary{
		EntityID:      entityID,
		Themes:        make(map[string]*EntityThemeSummary),
		CriticalAreas: []CriticalArea{},
	}
}

// Fold adds one unit and its theme scores to the summary. lexical is the
// unit's whole-text lexical polarity; it is ignored when the unit has no text.
func (s *EntitySummary) Fold(unit analyzer.TextUnit, lexical float64, scores map[string]analyzer.ThemeScoreResult) {
	s.TotalTextUnits++

	hasText := unit.HasText()
	hasRating := unit.HasRating()

	if hasRating {
		s.RatedUnits++
		s.ratingSum += float64(*unit.Rating)
	}

	if hasText || hasRating {
		var unitSentiment float64
		if hasText {
			unitSentiment = analyzer.Blend(lexical, unit.Rating)
		} else {
			unitSentiment = analyzer.RatingPolarity(*unit.Rating)
		}
		s.SentimentUnits++
		s.sentimentSum += unitSentiment
		if unitSentiment > PositiveThreshold {
			s.positive++
		}
	}

	if !hasText {
		return
	}

	for key, score := range scores {
		if score.Relevance <= MentionThreshold {
			continue
		}

		theme, ok := s.Themes[key]
		if !ok {
			theme = &EntityThemeSummary{ThemeKey: key, DisplayName: key, SampleQuotes: []Quote{}}
			s.Themes[key] = theme
		}

		theme.MentionCount++
		theme.relevanceSum += score.Relevance
		theme.sentimentSum += score.Sentiment
		theme.Distribution.add(score.Sentiment)
		theme.insertQuote(Quote{Text: Truncate(unit.Text, QuoteLength), Sentiment: score.Sentiment})
	}

	s.updateAverages()
}

// insertQuote keeps the MaxQuotes most polarized quotes, ordered by |sentiment|
// descending. Equal magnitudes keep arrival order.
func (t *EntityThemeSummary) insertQuote(q Quote) {
	mag := abs(q.Sentiment)
	idx := sort.Search(len(t.SampleQuotes), func(i int) bool {
		return abs(t.SampleQuotes[i].Sentiment) < mag
	})
	if idx >= MaxQuotes {
		return
	}

	t.SampleQuotes = append(t.SampleQuotes, Quote{})
	copy(t.SampleQuotes[idx+1:], t.SampleQuotes[idx:])
	t.SampleQuotes[idx] = q

	if len(t.SampleQuotes) > MaxQuotes {
		t.SampleQuotes = t.SampleQuotes[:MaxQuotes]
	}
}

func (s *EntitySummary) updateAverages() {
	for _, theme := range s.Themes {
		if theme.MentionCount > 0 {
			n := float64(theme.MentionCount)
			theme.AverageRelevance = theme.relevanceSum / n
			theme.AverageSentiment = theme.sentimentSum / n
		}
	}
}

// Finalize computes entity-level averages and the critical areas. It is safe
// to call more than once.
func (s *EntitySummary) Finalize() *EntitySummary {
	if s.SentimentUnits > 0 {
		s.OverallSentiment = s.sentimentSum / float64(s.SentimentUnits)
		s.PositiveRate = float64(s.positive) / float64(s.SentimentUnits)
	}
	if s.RatedUnits > 0 {
		s.AverageRating = s.ratingSum / float64(s.RatedUnits)
	}

	s.updateAverages()
	s.CriticalAreas = CriticalAreas(s.Themes)
	return s
}

// Clone returns a deep copy, running sums included.
func (s *EntitySummary) Clone() *EntitySummary {
	out := *s
	out.Themes = make(map[string]*EntityThemeSummary, len(s.Themes))
	for key, theme := range s.Themes {
		t := *theme
		t.SampleQuotes = append([]Quote(nil), theme.SampleQuotes...)
		out.Themes[key] = &t
	}
	out.CriticalAreas = append([]CriticalArea(nil), s.CriticalAreas...)
	return &out
}

// CriticalAreas returns themes with average sentiment below -0.1 and at least
// three mentions, worst first.
func CriticalAreas(themes map[string]*EntityThemeSummary) []CriticalArea {
	areas := []CriticalArea{}
	for _, theme := range themes {
		if theme.AverageSentiment < CriticalSentiment && theme.MentionCount >= CriticalMinMention {
			areas = append(areas, CriticalArea{
				ThemeKey:         theme.ThemeKey,
				DisplayName:      theme.DisplayName,
				AverageSentiment: theme.AverageSentiment,
				MentionCount:     theme.MentionCount,
			})
		}
	}

	sort.Slice(areas, func(i, j int) bool {
		if areas[i].AverageSentiment != areas[j].AverageSentiment {
			return areas[i].AverageSentiment < areas[j].AverageSentiment
		}
		return areas[i].ThemeKey < areas[j].ThemeKey
	})
	return areas
}

// Truncate shortens text to at most n runes.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
