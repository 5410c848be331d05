package evaluation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/analyzer"
	"github.com/gambia-creative/assessment/internal/assessment"
	"github.com/gambia-creative/assessment/internal/lexicon"
	"github.com/gambia-creative/assessment/internal/scoring"
	"github.com/gambia-creative/assessment/internal/storage/sqlite"
)

func newTestEvaluator(t *testing.T, workers int) (*Evaluator, *sqlite.Client) {
	t.Helper()

	store, err := lexicon.Default()
	require.NoError(t, err)
	table, err := scoring.DefaultWeightTable()
	require.NoError(t, err)

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "eval.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })

	svc := assessment.NewService(assessment.Deps{
		Analyzer:   analyzer.New(store),
		Combinator: scoring.NewCombinator(table),
		Store:      db,
	})
	return NewEvaluator(svc, workers), db
}

const dataset = `[
  {"entity_id": "lodge-1", "units": [
    {"text": "dirty room", "rating": 1},
    {"text": "the shower was dirty", "rating": 2},
    {"text": "dirty bathroom"}
  ]},
  {"entity_id": "band-1", "sector": "Music & Performing Arts",
   "raw": {"social_media": 10, "website": 10, "visual_content": 10, "discoverability": 10, "digital_sales": 10, "platform_integration": 10},
   "units": [{"text": "", "rating": 5}, {"rating": 9}]}
]`

func TestLoadDataset(t *testing.T) {
	ds, err := LoadDataset([]byte(dataset))
	require.NoError(t, err)
	require.Len(t, ds.Items, 2)
	assert.NotNil(t, ds.Items[1].Raw)
	// The out-of-range rating is dropped at load time.
	assert.Nil(t, ds.Items[1].Units[1].Rating)

	wrapped, err := LoadDataset([]byte(`{"items":[{"entity_id":"a","units":[]}]}`))
	require.NoError(t, err)
	assert.Len(t, wrapped.Items, 1)

	_, err = LoadDataset([]byte(`[{"units":[]}]`))
	assert.Error(t, err)

	_, err = LoadDataset([]byte(`not json`))
	assert.Error(t, err)
}

func TestRunDataset(t *testing.T) {
	e, db := newTestEvaluator(t, 2)
	ds, err := LoadDataset([]byte(dataset))
	require.NoError(t, err)

	report, err := e.RunDataset(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalEntities)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.PositiveCount)
	assert.Equal(t, 1, report.NegativeCount)
	assert.Equal(t, 1, report.EntitiesWithCriticalAreas)
	require.NotEmpty(t, report.CriticalThemes)
	assert.Equal(t, "facilities", report.CriticalThemes[0].ThemeKey)
	assert.Equal(t, 1, report.ScoredEntities)
	assert.InDelta(t, 100.0, report.AvgPercentage, 1e-9)

	// Results keep dataset order regardless of completion order.
	assert.Equal(t, "lodge-1", report.Entities[0].EntityID)
	assert.Equal(t, "band-1", report.Entities[1].EntityID)

	_, err = db.GetEntitySummary("band-1")
	assert.NoError(t, err)
	scores, err := db.ListDigitalScores("")
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	text := GenerateReport(report)
	assert.Contains(t, text, "Portfolio Report")
	assert.Contains(t, text, "lodge-1")
	assert.Contains(t, text, "Facilities & Infrastructure: 1")
}

func TestRunDatasetManyEntities(t *testing.T) {
	e, _ := newTestEvaluator(t, 4)

	ds := &Dataset{}
	for i := 0; i < 20; i++ {
		ds.Items = append(ds.Items, DatasetItem{
			EntityID: fmt.Sprintf("entity-%02d", i),
			Units:    []analyzer.TextUnit{{Text: "friendly staff and great food"}},
		})
	}

	report, err := e.RunDataset(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 20, report.TotalEntities)
	assert.Equal(t, 0, report.Failed)
	for i, r := range report.Entities {
		assert.Equal(t, fmt.Sprintf("entity-%02d", i), r.EntityID)
	}
}

func TestRunDatasetCancelled(t *testing.T) {
	e, _ := newTestEvaluator(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RunDataset(ctx, &Dataset{Items: []DatasetItem{{EntityID: "a"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildReportCountsFailures(t *testing.T) {
	neutral := aggregator.NewEntitySummary("ok").Finalize()

	report := BuildReport([]EntityResult{
		{EntityID: "ok", Summary: neutral},
		{EntityID: "broken", Error: "store unavailable"},
	})

	assert.Equal(t, 2, report.TotalEntities)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.NeutralCount)
	assert.InDelta(t, 100.0, report.NeutralPercentage, 1e-9)
	assert.Zero(t, report.AvgRating)
	assert.Contains(t, GenerateReport(report), "error: store unavailable")
	assert.NotContains(t, GenerateReport(report), "Briefing")

	report.Narrative = "Facilities need attention."
	assert.Contains(t, GenerateReport(report), "Briefing\n--------\nFacilities need attention.")
}
