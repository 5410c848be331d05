package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, c.InitSchema())
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleSummary(entityID string) *aggregator.EntitySummary {
	s := aggregator.NewEntitySummary(entityID)
	s.TotalTextUnits = 4
	s.SentimentUnits = 4
	s.OverallSentiment = -0.2
	s.RatedUnits = 2
	s.AverageRating = 2.5
	s.PositiveRate = 0.25
	s.Themes["facilities"] = &aggregator.EntityThemeSummary{
		ThemeKey:         "facilities",
		DisplayName:      "Facilities",
		AverageRelevance: 0.6,
		AverageSentiment: -0.25,
		MentionCount:     3,
		Distribution:     aggregator.Distribution{Negative: 3},
		SampleQuotes:     []aggregator.Quote{{Text: "rooms were dirty", Sentiment: -0.4}},
	}
	s.Themes["food_cuisine"] = &aggregator.EntityThemeSummary{
		ThemeKey:         "food_cuisine",
		DisplayName:      "Food & Cuisine",
		AverageRelevance: 0.3,
		AverageSentiment: 0.5,
		MentionCount:     1,
		Distribution:     aggregator.Distribution{Positive: 1},
		SampleQuotes:     []aggregator.Quote{},
	}
	s.CriticalAreas = aggregator.CriticalAreas(s.Themes)
	return s
}

func TestSchemaIsIdempotent(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.InitSchema())
	assert.NoError(t, c.Ping())
}

func TestUpsertEntity(t *testing.T) {
	c := newTestClient(t)

	e := &models.Entity{ID: "kachikally", Name: "Kachikally Crocodile Pool", Sector: "Cultural Heritage Sites"}
	require.NoError(t, c.UpsertEntity(e))

	e.Website = "https://example.gm"
	require.NoError(t, c.UpsertEntity(e))

	got, err := c.GetEntity("kachikally")
	require.NoError(t, err)
	assert.Equal(t, "Kachikally Crocodile Pool", got.Name)
	assert.Equal(t, "https://example.gm", got.Website)

	_, err = c.GetEntity("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndGetEntitySummary(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.SaveEntitySummary(sampleSummary("lodge-1")))

	got, err := c.GetEntitySummary("lodge-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalTextUnits)
	assert.Equal(t, 0.25, got.PositiveRate)
	require.Contains(t, got.Themes, "facilities")
	assert.Equal(t, 3, got.Themes["facilities"].MentionCount)
	assert.Equal(t, "rooms were dirty", got.Themes["facilities"].SampleQuotes[0].Text)
	require.Len(t, got.CriticalAreas, 1)
	assert.Equal(t, "facilities", got.CriticalAreas[0].ThemeKey)

	entity, err := c.GetEntity("lodge-1")
	require.NoError(t, err)
	assert.Equal(t, "lodge-1", entity.Name)
}

func TestSaveEntitySummaryReplacesThemes(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.SaveEntitySummary(sampleSummary("lodge-1")))

	updated := sampleSummary("lodge-1")
	delete(updated.Themes, "food_cuisine")
	require.NoError(t, c.SaveEntitySummary(updated))

	food, err := c.ListThemeSummaries("food_cuisine")
	require.NoError(t, err)
	assert.Empty(t, food)

	facilities, err := c.ListThemeSummaries("facilities")
	require.NoError(t, err)
	require.Len(t, facilities, 1)
	assert.Equal(t, 3, facilities[0].Negative)
}

func TestListThemeSummariesOrdering(t *testing.T) {
	c := newTestClient(t)

	worse := sampleSummary("b")
	worse.Themes["facilities"].AverageSentiment = -0.6
	require.NoError(t, c.SaveEntitySummary(sampleSummary("a")))
	require.NoError(t, c.SaveEntitySummary(worse))

	rows, err := c.ListThemeSummaries("facilities")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].EntityID)
	assert.Equal(t, "a", rows[1].EntityID)
}

func TestGetEntitySummaryNotFound(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetEntitySummary("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveEntitySummaryRequiresID(t *testing.T) {
	c := newTestClient(t)
	assert.Error(t, c.SaveEntitySummary(aggregator.NewEntitySummary("")))
	assert.Error(t, c.SaveEntitySummary(nil))
}

func storeScore(t *testing.T, c *Client, combinator *scoring.Combinator, entityID, sector string, raw scoring.RawCategoryScores, survey *float64) {
	t.Helper()
	weighted := combinator.ApplyWeights(raw, sector)
	combined := scoring.Combine(weighted, survey)
	score := models.NewDigitalScore(entityID, weighted, combined)
	require.NoError(t, c.SaveDigitalScore(score))
}

func TestDigitalScores(t *testing.T) {
	c := newTestClient(t)
	table, err := scoring.DefaultWeightTable()
	require.NoError(t, err)
	combinator := scoring.NewCombinator(table)

	survey := 22.0
	storeScore(t, c, combinator, "kora-band", "Music & Performing Arts", scoring.RawCategoryScores{SocialMedia: 8, Website: 5, VisualContent: 9, Discoverability: 6, DigitalSales: 3, PlatformIntegration: 4}, &survey)
	time.Sleep(time.Millisecond)
	storeScore(t, c, combinator, "", "music & performing arts", scoring.RawCategoryScores{SocialMedia: 10, Website: 10, VisualContent: 10, Discoverability: 10, DigitalSales: 10, PlatformIntegration: 10}, nil)
	time.Sleep(time.Millisecond)
	storeScore(t, c, combinator, "mystery", "Space Tourism", scoring.RawCategoryScores{}, nil)

	all, err := c.ListDigitalScores("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "mystery", all[0].EntityID)
	assert.True(t, all[0].SectorFallback)
	assert.Empty(t, all[1].EntityID)

	music, err := c.ListDigitalScores("MUSIC & PERFORMING ARTS")
	require.NoError(t, err)
	require.Len(t, music, 2)
	oldest := music[1]
	assert.InDelta(t, 48.0, oldest.ExternalTotal, 1e-9)
	require.NotNil(t, oldest.SurveyTotal)
	assert.Equal(t, 22.0, *oldest.SurveyTotal)
	assert.InDelta(t, 70.0, oldest.Percentage, 1e-9)
	assert.Nil(t, music[0].SurveyTotal)

	averages, err := c.SectorAverages()
	require.NoError(t, err)
	require.Len(t, averages, 2)
	assert.Equal(t, DefaultSectorLabel, averages[0].Sector)
	assert.Equal(t, 1, averages[0].Assessments)
	assert.Equal(t, "Music & Performing Arts", averages[1].Sector)
	assert.Equal(t, 2, averages[1].Assessments)
	assert.InDelta(t, (70.0+70.0)/2, averages[1].AverageCombined, 1e-9)
	assert.InDelta(t, 85.0, averages[1].AveragePercentage, 1e-9)
}

func TestUpsertEntityKeepsKnownFields(t *testing.T) {
	c := newTestClient(t)
	table, err := scoring.DefaultWeightTable()
	require.NoError(t, err)

	storeScore(t, c, scoring.NewCombinator(table), "kora-band", "Music & Performing Arts", scoring.RawCategoryScores{SocialMedia: 5, Website: 5, VisualContent: 5, Discoverability: 5, DigitalSales: 5, PlatformIntegration: 5}, nil)

	// Page ingestion knows the name and website but not the sector.
	require.NoError(t, c.UpsertEntity(&models.Entity{ID: "kora-band", Name: "Kora Band", Website: "https://kora.example.gm"}))
	got, err := c.GetEntity("kora-band")
	require.NoError(t, err)
	assert.Equal(t, "Music & Performing Arts", got.Sector)
	assert.Equal(t, "Kora Band", got.Name)

	require.NoError(t, c.UpsertEntity(&models.Entity{ID: "kora-band", Sector: "Festivals & Events"}))
	got, err = c.GetEntity("kora-band")
	require.NoError(t, err)
	assert.Equal(t, "Festivals & Events", got.Sector)
	assert.Equal(t, "Kora Band", got.Name)
	assert.Equal(t, "https://kora.example.gm", got.Website)
}
