package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gambia-creative/assessment/internal/scoring"
)

// Entity is an assessed stakeholder: a business, venue, artist or public body.
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThemeSummary is one row of an entity's per-theme results, flattened for
// cross-entity queries.
type ThemeSummary struct {
	EntityID         string    `json:"entity_id"`
	ThemeKey         string    `json:"theme_key"`
	AverageRelevance float64   `json:"average_relevance"`
	AverageSentiment float64   `json:"average_sentiment"`
	MentionCount     int       `json:"mention_count"`
	Positive         int       `json:"positive"`
	Neutral          int       `json:"neutral"`
	Negative         int       `json:"negative"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DigitalScore is one persisted run of the weighted score combinator.
type DigitalScore struct {
	ID                  string    `json:"id"`
	EntityID            string    `json:"entity_id,omitempty"`
	Sector              string    `json:"sector"`
	ResolvedSector      string    `json:"resolved_sector"`
	SectorFallback      bool      `json:"sector_fallback"`
	SocialMedia         float64   `json:"social_media"`
	Website             float64   `json:"website"`
	VisualContent       float64   `json:"visual_content"`
	Discoverability     float64   `json:"discoverability"`
	DigitalSales        float64   `json:"digital_sales"`
	PlatformIntegration float64   `json:"platform_integration"`
	ExternalTotal       float64   `json:"external_total"`
	SurveyTotal         *float64  `json:"survey_total,omitempty"`
	CombinedScore       float64   `json:"combined_score"`
	MaxPossible         float64   `json:"max_possible"`
	Percentage          float64   `json:"percentage"`
	MaturityLevel       string    `json:"maturity_level"`
	CreatedAt           time.Time `json:"created_at"`
}

type SectorAverage struct {
	Sector            string  `json:"sector"`
	Assessments       int     `json:"assessments"`
	AverageExternal   float64 `json:"average_external"`
	AverageCombined   float64 `json:"average_combined"`
	AveragePercentage float64 `json:"average_percentage"`
}

// NewDigitalScore flattens a combinator result for storage. Fallback rows keep
// an empty ResolvedSector.
func NewDigitalScore(entityID string, weighted scoring.WeightedScoreResult, combined scoring.CombinedScore) *DigitalScore {
	return &DigitalScore{
		ID:                  uuid.New().String(),
		EntityID:            entityID,
		Sector:              weighted.Sector,
		ResolvedSector:      weighted.ResolvedSector,
		SectorFallback:      weighted.SectorFallback,
		SocialMedia:         weighted.Raw.SocialMedia,
		Website:             weighted.Raw.Website,
		VisualContent:       weighted.Raw.VisualContent,
		Discoverability:     weighted.Raw.Discoverability,
		DigitalSales:        weighted.Raw.DigitalSales,
		PlatformIntegration: weighted.Raw.PlatformIntegration,
		ExternalTotal:       combined.ExternalTotal,
		SurveyTotal:         combined.SurveyTotal,
		CombinedScore:       combined.CombinedScore,
		MaxPossible:         combined.MaxPossible,
		Percentage:          combined.Percentage,
		MaturityLevel:       combined.MaturityLevel,
		CreatedAt:           time.Now().UTC(),
	}
}
