package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func musicVector(t *testing.T) SectorWeightVector {
	t.Helper()
	w, err := NewSectorWeightVector(2.2, 0.8, 1.8, 1.0, 0.6, 0.6)
	require.NoError(t, err)
	return w
}

func testCombinator(t *testing.T, opts ...Option) *Combinator {
	t.Helper()
	defaults, err := NewSectorWeightVector(1.5, 1.2, 1.2, 1.2, 1.0, 0.9)
	require.NoError(t, err)

	table, err := NewWeightTable(map[string]SectorWeightVector{
		"Music & Performing Arts": musicVector(t),
	}, defaults)
	require.NoError(t, err)
	return NewCombinator(table, opts...)
}

func TestApplyWeightsScenario(t *testing.T) {
	c := testCombinator(t)
	raw, err := NewRawCategoryScores(8, 5, 9, 6, 3, 4)
	require.NoError(t, err)

	result := c.ApplyWeights(raw, "Music & Performing Arts")

	assert.Equal(t, MatchExact.String(), result.Match)
	assert.False(t, result.SectorFallback)
	assert.InDelta(t, 17.6, result.Weighted.SocialMedia, 1e-9)
	assert.InDelta(t, 4.0, result.Weighted.Website, 1e-9)
	assert.InDelta(t, 16.2, result.Weighted.VisualContent, 1e-9)
	assert.InDelta(t, 6.0, result.Weighted.Discoverability, 1e-9)
	assert.InDelta(t, 1.8, result.Weighted.DigitalSales, 1e-9)
	assert.InDelta(t, 2.4, result.Weighted.PlatformIntegration, 1e-9)
	assert.InDelta(t, 48.0, result.ExternalTotal, 1e-9)

	combined := Combine(result, floatPtr(22))
	assert.InDelta(t, 70.0, combined.CombinedScore, 1e-9)
	assert.Equal(t, 100.0, combined.MaxPossible)
	assert.InDelta(t, 70.0, combined.Percentage, 1e-9)
	assert.Equal(t, LevelAdvanced, combined.MaturityLevel)
	require.NotNil(t, combined.SurveyTotal)
	assert.Equal(t, 22.0, *combined.SurveyTotal)
}

func TestCombineWithoutSurvey(t *testing.T) {
	combined := Combine(WeightedScoreResult{ExternalTotal: 35}, nil)
	assert.Equal(t, 70.0, combined.MaxPossible)
	assert.Equal(t, 35.0, combined.CombinedScore)
	assert.InDelta(t, 50.0, combined.Percentage, 1e-9)
	assert.Nil(t, combined.SurveyTotal)
}

func TestApplyWeightsBounds(t *testing.T) {
	table, err := DefaultWeightTable()
	require.NoError(t, err)
	c := NewCombinator(table)

	full := RawCategoryScores{10, 10, 10, 10, 10, 10}
	for _, sector := range append(table.Sectors(), "unknown sector") {
		assert.InDelta(t, 70.0, c.ApplyWeights(full, sector).ExternalTotal, 1e-9, sector)
		assert.Equal(t, 0.0, c.ApplyWeights(RawCategoryScores{}, sector).ExternalTotal, sector)
	}
}

func TestLookupResolution(t *testing.T) {
	c := testCombinator(t)

	tests := []struct {
		sector   string
		match    LookupMatch
		resolved string
	}{
		{"Music & Performing Arts", MatchExact, "Music & Performing Arts"},
		{"music & performing arts", MatchCaseInsensitive, "Music & Performing Arts"},
		{"  MUSIC & PERFORMING ARTS ", MatchCaseInsensitive, "Music & Performing Arts"},
		{"Space Tourism", MatchDefault, ""},
		{"", MatchDefault, ""},
	}

	for _, tt := range tests {
		t.Run(tt.sector, func(t *testing.T) {
			_, resolved, match := c.Table().Lookup(tt.sector)
			assert.Equal(t, tt.match, match)
			assert.Equal(t, tt.resolved, resolved)
		})
	}
}

func TestApplyWeightsUnknownSectorFallsBack(t *testing.T) {
	c := testCombinator(t)
	raw := RawCategoryScores{10, 10, 10, 10, 10, 10}

	result := c.ApplyWeights(raw, "Space Tourism")
	assert.True(t, result.SectorFallback)
	assert.Equal(t, c.Table().Default(), result.Weights)
	assert.NotEmpty(t, result.Warnings)
	assert.InDelta(t, 70.0, result.ExternalTotal, 1e-9)
}

func TestApplyWeightsOutOfRange(t *testing.T) {
	raw := RawCategoryScores{SocialMedia: 12, Website: -1}

	passthrough := testCombinator(t).ApplyWeights(raw, "Music & Performing Arts")
	assert.InDelta(t, 12*2.2-0.8, passthrough.ExternalTotal, 1e-9)
	assert.NotEmpty(t, passthrough.Warnings)

	clamped := testCombinator(t, WithClamping(true)).ApplyWeights(raw, "Music & Performing Arts")
	assert.InDelta(t, 10*2.2, clamped.ExternalTotal, 1e-9)
	assert.Equal(t, 12.0, clamped.Raw.SocialMedia, "raw input is reported as given")
}

func TestPercentageMonotonic(t *testing.T) {
	prev := -1.0
	for total := 0.0; total <= 70; total += 3.5 {
		p := Combine(WeightedScoreResult{ExternalTotal: total}, floatPtr(10)).Percentage
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestNewRawCategoryScoresValidation(t *testing.T) {
	_, err := NewRawCategoryScores(0, 10, 5, 5, 5, 5)
	assert.NoError(t, err)

	_, err = NewRawCategoryScores(11, 0, 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrScoreOutOfRange)

	_, err = NewRawCategoryScores(0, 0, 0, 0, 0, -0.1)
	assert.ErrorIs(t, err, ErrScoreOutOfRange)
}

func TestNewSectorWeightVectorValidation(t *testing.T) {
	_, err := NewSectorWeightVector(1, 1, 1, 1, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewSectorWeightVector(8, -1, 0, 0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidWeights)

	w, err := NewSectorWeightVector(1.5, 1.2, 1.2, 1.2, 1.0, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, w.Sum(), 1e-9)
}

func TestNewWeightTableValidation(t *testing.T) {
	good := SectorWeightVector{1.5, 1.2, 1.2, 1.2, 1.0, 0.9}
	bad := SectorWeightVector{1, 1, 1, 1, 1, 1}

	_, err := NewWeightTable(nil, bad)
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewWeightTable(map[string]SectorWeightVector{"Crafts": bad}, good)
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = NewWeightTable(map[string]SectorWeightVector{"Crafts": good, "crafts": good}, good)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestDefaultWeightTable(t *testing.T) {
	table, err := DefaultWeightTable()
	require.NoError(t, err)

	assert.Contains(t, table.Sectors(), "Music & Performing Arts")
	assert.IsIncreasing(t, table.Sectors())
	vec, _, match := table.Lookup("Music & Performing Arts")
	assert.Equal(t, MatchExact, match)
	assert.Equal(t, 2.2, vec.SocialMedia)
}

func TestLoadWeightTable(t *testing.T) {
	content := `
default: {social_media: 1.5, website: 1.2, visual_content: 1.2, discoverability: 1.2, digital_sales: 1.0, platform_integration: 0.9}
sectors:
  Crafts:
    social_media: 2.0
    website: 0.8
    visual_content: 2.0
    discoverability: 1.0
    digital_sales: 0.8
    platform_integration: 0.4
`
	path := filepath.Join(t.TempDir(), "weights.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := LoadWeightTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Crafts"}, table.Sectors())

	require.NoError(t, os.WriteFile(path, []byte("default: {social_media: 1}\n"), 0644))
	_, err = LoadWeightTable(path)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestMaturityLevel(t *testing.T) {
	assert.Equal(t, LevelAbsent, MaturityLevel(0))
	assert.Equal(t, LevelEmerging, MaturityLevel(20))
	assert.Equal(t, LevelDeveloping, MaturityLevel(59.9))
	assert.Equal(t, LevelAdvanced, MaturityLevel(60))
	assert.Equal(t, LevelLeading, MaturityLevel(100))
}
