package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gambia-creative/assessment/internal/aggregator"
	"github.com/gambia-creative/assessment/internal/storage/models"
	"github.com/gambia-creative/assessment/pkg/logger"
)

var ErrNotFound = errors.New("not found")

// DefaultSectorLabel groups scores that fell back to the default weights.
const DefaultSectorLabel = "(default weights)"

type Client struct {
	db *sql.DB
}

// NewClient opens the database with foreign keys, WAL and a busy timeout set
// on the DSN so every pooled connection carries them. Writes are serialized
// through a single connection.
func NewClient(dbPath string) (*Client, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sector TEXT,
		website TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entities_sector ON entities(sector);

	CREATE TABLE IF NOT EXISTS entity_summaries (
		entity_id TEXT PRIMARY KEY,
		total_text_units INTEGER NOT NULL,
		overall_sentiment REAL NOT NULL,
		positive_rate REAL NOT NULL,
		average_rating REAL,
		critical_areas INTEGER NOT NULL,
		payload TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS theme_summaries (
		entity_id TEXT NOT NULL,
		theme_key TEXT NOT NULL,
		average_relevance REAL NOT NULL,
		average_sentiment REAL NOT NULL,
		mention_count INTEGER NOT NULL,
		positive INTEGER NOT NULL,
		neutral INTEGER NOT NULL,
		negative INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (entity_id, theme_key),
		FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_theme_summaries_theme ON theme_summaries(theme_key);

	CREATE TABLE IF NOT EXISTS digital_scores (
		id TEXT PRIMARY KEY,
		entity_id TEXT,
		sector TEXT NOT NULL,
		resolved_sector TEXT NOT NULL,
		sector_fallback INTEGER DEFAULT 0,
		social_media REAL NOT NULL,
		website REAL NOT NULL,
		visual_content REAL NOT NULL,
		discoverability REAL NOT NULL,
		digital_sales REAL NOT NULL,
		platform_integration REAL NOT NULL,
		external_total REAL NOT NULL,
		survey_total REAL,
		combined_score REAL NOT NULL,
		max_possible REAL NOT NULL,
		percentage REAL NOT NULL,
		maturity_level TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE SET NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scores_sector ON digital_scores(resolved_sector);
	CREATE INDEX IF NOT EXISTS idx_scores_created ON digital_scores(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertEntity(entity *models.Entity) error {
	query := `
		INSERT INTO entities (id, name, sector, website, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(NULLIF(excluded.name, ''), entities.name),
			sector = COALESCE(NULLIF(excluded.sector, ''), entities.sector),
			website = COALESCE(NULLIF(excluded.website, ''), entities.website),
			updated_at = excluded.updated_at
	`

	now := time.Now()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	_, err := c.db.Exec(
		query,
		entity.ID,
		entity.Name,
		entity.Sector,
		entity.Website,
		entity.CreatedAt.Unix(),
		entity.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}

	logger.Debug("Entity upserted", zap.String("entity_id", entity.ID), zap.String("sector", entity.Sector))
	return nil
}

func (c *Client) GetEntity(id string) (*models.Entity, error) {
	query := `SELECT id, name, sector, website, created_at, updated_at FROM entities WHERE id = ?`

	var e models.Entity
	var sector, website sql.NullString
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, id).Scan(&e.ID, &e.Name, &sector, &website, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	e.Sector = sector.String
	e.Website = website.String
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)

	return &e, nil
}

// ensureEntity creates a placeholder entity row named after its id so that
// results can be stored for entities nobody registered first.
func ensureEntity(tx *sql.Tx, id, sector string) error {
	now := time.Now().Unix()
	_, err := tx.Exec(
		`INSERT OR IGNORE INTO entities (id, name, sector, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, id, sector, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure entity: %w", err)
	}
	return nil
}

// SaveEntitySummary replaces the stored summary and theme rows of an entity.
func (c *Client) SaveEntitySummary(summary *aggregator.EntitySummary) error {
	if summary == nil || summary.EntityID == "" {
		return fmt.Errorf("failed to save summary: missing entity id")
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ensureEntity(tx, summary.EntityID, ""); err != nil {
		return err
	}

	now := time.Now().Unix()

	var avgRating sql.NullFloat64
	if summary.RatedUnits > 0 {
		avgRating = sql.NullFloat64{Float64: summary.AverageRating, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO entity_summaries (entity_id, total_text_units, overall_sentiment, positive_rate,
			average_rating, critical_areas, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			total_text_units = excluded.total_text_units,
			overall_sentiment = excluded.overall_sentiment,
			positive_rate = excluded.positive_rate,
			average_rating = excluded.average_rating,
			critical_areas = excluded.critical_areas,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`,
		summary.EntityID,
		summary.TotalTextUnits,
		summary.OverallSentiment,
		summary.PositiveRate,
		avgRating,
		len(summary.CriticalAreas),
		string(payload),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save entity summary: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM theme_summaries WHERE entity_id = ?`, summary.EntityID); err != nil {
		return fmt.Errorf("failed to clear theme summaries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO theme_summaries (entity_id, theme_key, average_relevance, average_sentiment,
			mention_count, positive, neutral, negative, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare theme insert: %w", err)
	}
	defer stmt.Close()

	for key, theme := range summary.Themes {
		_, err := stmt.Exec(
			summary.EntityID,
			key,
			theme.AverageRelevance,
			theme.AverageSentiment,
			theme.MentionCount,
			theme.Distribution.Positive,
			theme.Distribution.Neutral,
			theme.Distribution.Negative,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert theme summary %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary: %w", err)
	}

	logger.Info("Entity summary stored",
		zap.String("entity_id", summary.EntityID),
		zap.Int("text_units", summary.TotalTextUnits),
		zap.Int("themes", len(summary.Themes)),
		zap.Int("critical_areas", len(summary.CriticalAreas)),
	)

	return nil
}

// GetEntitySummary returns the stored, finalized summary of an entity.
func (c *Client) GetEntitySummary(entityID string) (*aggregator.EntitySummary, error) {
	var payload string
	err := c.db.QueryRow(`SELECT payload FROM entity_summaries WHERE entity_id = ?`, entityID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary for %s: %w", entityID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity summary: %w", err)
	}

	var summary aggregator.EntitySummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode entity summary: %w", err)
	}
	if summary.Themes == nil {
		summary.Themes = make(map[string]*aggregator.EntityThemeSummary)
	}

	return &summary, nil
}

// ListThemeSummaries returns every entity's result for one theme, most
// negative first.
func (c *Client) ListThemeSummaries(themeKey string) ([]models.ThemeSummary, error) {
	query := `
		SELECT entity_id, theme_key, average_relevance, average_sentiment, mention_count,
			positive, neutral, negative, updated_at
		FROM theme_summaries
		WHERE theme_key = ?
		ORDER BY average_sentiment ASC, entity_id ASC
	`

	rows, err := c.db.Query(query, themeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list theme summaries: %w", err)
	}
	defer rows.Close()

	summaries := []models.ThemeSummary{}
	for rows.Next() {
		var t models.ThemeSummary
		var updatedAt int64

		err := rows.Scan(&t.EntityID, &t.ThemeKey, &t.AverageRelevance, &t.AverageSentiment,
			&t.MentionCount, &t.Positive, &t.Neutral, &t.Negative, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		t.UpdatedAt = time.Unix(updatedAt, 0)
		summaries = append(summaries, t)
	}

	return summaries, rows.Err()
}

func (c *Client) SaveDigitalScore(score *models.DigitalScore) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var entityID sql.NullString
	if score.EntityID != "" {
		entityID = sql.NullString{String: score.EntityID, Valid: true}
		if err := ensureEntity(tx, score.EntityID, score.Sector); err != nil {
			return err
		}
	}

	var survey sql.NullFloat64
	if score.SurveyTotal != nil {
		survey = sql.NullFloat64{Float64: *score.SurveyTotal, Valid: true}
	}

	fallback := 0
	if score.SectorFallback {
		fallback = 1
	}

	if score.CreatedAt.IsZero() {
		score.CreatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO digital_scores (id, entity_id, sector, resolved_sector, sector_fallback,
			social_media, website, visual_content, discoverability, digital_sales, platform_integration,
			external_total, survey_total, combined_score, max_possible, percentage, maturity_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		score.ID,
		entityID,
		score.Sector,
		score.ResolvedSector,
		fallback,
		score.SocialMedia,
		score.Website,
		score.VisualContent,
		score.Discoverability,
		score.DigitalSales,
		score.PlatformIntegration,
		score.ExternalTotal,
		survey,
		score.CombinedScore,
		score.MaxPossible,
		score.Percentage,
		score.MaturityLevel,
		score.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert digital score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit digital score: %w", err)
	}

	logger.Info("Digital score recorded",
		zap.String("score_id", score.ID),
		zap.String("sector", score.Sector),
		zap.Float64("combined", score.CombinedScore),
		zap.String("maturity", score.MaturityLevel),
	)

	return nil
}

// ListDigitalScores returns stored scores newest first. A non-empty sector
// filters on the resolved sector name, case-insensitively.
func (c *Client) ListDigitalScores(sector string) ([]models.DigitalScore, error) {
	query := `
		SELECT id, entity_id, sector, resolved_sector, sector_fallback,
			social_media, website, visual_content, discoverability, digital_sales, platform_integration,
			external_total, survey_total, combined_score, max_possible, percentage, maturity_level, created_at
		FROM digital_scores
	`
	var args []interface{}
	if sector = strings.TrimSpace(sector); sector != "" {
		query += ` WHERE lower(resolved_sector) = lower(?)`
		args = append(args, sector)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list digital scores: %w", err)
	}
	defer rows.Close()

	scores := []models.DigitalScore{}
	for rows.Next() {
		var s models.DigitalScore
		var entityID sql.NullString
		var survey sql.NullFloat64
		var fallback int
		var createdAt int64

		err := rows.Scan(
			&s.ID, &entityID, &s.Sector, &s.ResolvedSector, &fallback,
			&s.SocialMedia, &s.Website, &s.VisualContent, &s.Discoverability, &s.DigitalSales, &s.PlatformIntegration,
			&s.ExternalTotal, &survey, &s.CombinedScore, &s.MaxPossible, &s.Percentage, &s.MaturityLevel, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		s.EntityID = entityID.String
		s.SectorFallback = fallback == 1
		if survey.Valid {
			v := survey.Float64
			s.SurveyTotal = &v
		}
		s.CreatedAt = time.Unix(0, createdAt)
		scores = append(scores, s)
	}

	return scores, rows.Err()
}

// SectorAverages groups stored scores by resolved sector. Scores computed with
// the default weights are grouped under DefaultSectorLabel.
func (c *Client) SectorAverages() ([]models.SectorAverage, error) {
	query := `
		SELECT CASE WHEN resolved_sector = '' THEN ? ELSE resolved_sector END AS label,
			COUNT(*), AVG(external_total), AVG(combined_score), AVG(percentage)
		FROM digital_scores
		GROUP BY label
		ORDER BY label
	`

	rows, err := c.db.Query(query, DefaultSectorLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sector averages: %w", err)
	}
	defer rows.Close()

	averages := []models.SectorAverage{}
	for rows.Next() {
		var a models.SectorAverage
		if err := rows.Scan(&a.Sector, &a.Assessments, &a.AverageExternal, &a.AverageCombined, &a.AveragePercentage); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		averages = append(averages, a)
	}

	return averages, rows.Err()
}
