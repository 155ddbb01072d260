// Package confidence persists a calibration log of every piece of advice:
// the stated confidence score, the query it answered, and (once feedback
// arrives) whether the advice worked out. The Brier score over that log
// measures how well-calibrated the model's confidence is.
package confidence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/draftwise/draftwise/internal/schema"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS confidence_log (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	response_id      TEXT,
	user_query       TEXT NOT NULL,
	response_text    TEXT NOT NULL,
	confidence_score REAL NOT NULL,
	model_used       TEXT NOT NULL,
	web_search_used  INTEGER NOT NULL DEFAULT 0,
	outcome          INTEGER,
	feedback_notes   TEXT,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_confidence_log_response_id ON confidence_log(response_id);
CREATE INDEX IF NOT EXISTS idx_confidence_log_created_at ON confidence_log(created_at);
`

// defaultConfidence is assumed when advice carries no confidence score, so
// the calibration log stays dense.
const defaultConfidence = 0.5

// Entry is one logged response.
type Entry struct {
	ID              int64    `json:"id"`
	ResponseID      string   `json:"response_id,omitempty"`
	UserQuery       string   `json:"user_query"`
	ResponseText    string   `json:"response_text"`
	ConfidenceScore float64  `json:"confidence_score"`
	ModelUsed       string   `json:"model_used"`
	WebSearchUsed   bool     `json:"web_search_used"`
	Outcome         *bool    `json:"outcome,omitempty"`
	FeedbackNotes   string   `json:"feedback_notes,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// BrierStats summarises calibration over a window of scored entries.
type BrierStats struct {
	BrierScore   float64 `json:"brier_score"`
	SampleCount  int     `json:"sample_count"`
	PeriodDays   int     `json:"period_days"`
	MeanForecast float64 `json:"mean_forecast"`
}

type Service struct {
	db *sql.DB
}

// NewService opens (creating if needed) the SQLite confidence log at path.
func NewService(path string) (*Service, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open confidence database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise confidence schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Confidence log initialised")
	return &Service{db: db}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// LogResponse records one finalized advice payload. Returns the entry id.
func (s *Service) LogResponse(ctx context.Context, advice schema.StructuredAdvice, userQuery, responseID string, webSearchUsed bool) (int64, error) {
	score := defaultConfidence
	if advice.ConfidenceScore != nil {
		score = *advice.ConfidenceScore
	}

	text := advice.MainAdvice
	if advice.Reasoning != "" {
		text = text + " | " + advice.Reasoning
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO confidence_log
			(response_id, user_query, response_text, confidence_score, model_used, web_search_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		responseID, userQuery, text, score, advice.ModelIdentifier, webSearchUsed,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert confidence entry: %w", err)
	}
	return result.LastInsertId()
}

// UpdateOutcome records user feedback against a response identifier. Returns
// false when no entry matches.
func (s *Service) UpdateOutcome(ctx context.Context, responseID string, outcome bool, notes string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE confidence_log SET outcome = ?, feedback_notes = ? WHERE response_id = ?`,
		outcome, notes, responseID,
	)
	if err != nil {
		return false, fmt.Errorf("update outcome: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// BrierScore computes mean squared error between stated confidence and the
// recorded outcome over the trailing window. Lower is better calibrated.
func (s *Service) BrierScore(ctx context.Context, daysBack int) (BrierStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -daysBack).Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx, `
		SELECT confidence_score, outcome FROM confidence_log
		WHERE outcome IS NOT NULL AND created_at >= ?`, since)
	if err != nil {
		return BrierStats{}, fmt.Errorf("query confidence entries: %w", err)
	}
	defer rows.Close()

	var (
		sumSquares  float64
		sumForecast float64
		count       int
	)
	for rows.Next() {
		var (
			score   float64
			outcome bool
		)
		if err := rows.Scan(&score, &outcome); err != nil {
			return BrierStats{}, err
		}
		actual := 0.0
		if outcome {
			actual = 1.0
		}
		sumSquares += (score - actual) * (score - actual)
		sumForecast += score
		count++
	}
	if err := rows.Err(); err != nil {
		return BrierStats{}, err
	}

	stats := BrierStats{SampleCount: count, PeriodDays: daysBack}
	if count > 0 {
		stats.BrierScore = sumSquares / float64(count)
		stats.MeanForecast = sumForecast / float64(count)
	}
	return stats, nil
}

// RecentEntries returns the newest entries for monitoring, newest first.
func (s *Service) RecentEntries(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(response_id, ''), user_query, response_text, confidence_score,
		       model_used, web_search_used, outcome, COALESCE(feedback_notes, ''), created_at
		FROM confidence_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			outcome sql.NullBool
		)
		if err := rows.Scan(&entry.ID, &entry.ResponseID, &entry.UserQuery, &entry.ResponseText,
			&entry.ConfidenceScore, &entry.ModelUsed, &entry.WebSearchUsed, &outcome,
			&entry.FeedbackNotes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if outcome.Valid {
			entry.Outcome = &outcome.Bool
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
