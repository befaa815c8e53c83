package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// journalWriter is the append-only activity journal. Text fields are
// truncated to the journal cap before persisting.
type journalWriter struct {
	db *sql.DB
}

// NewJournalWriter creates the activity journal over db.
func NewJournalWriter(db *sql.DB) (repo.ActivityJournal, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			campaign_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			chat_title TEXT NOT NULL DEFAULT '',
			message_id INTEGER NOT NULL,
			matched_keyword TEXT NOT NULL DEFAULT '',
			original_message TEXT NOT NULL DEFAULT '',
			agent_response TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity_log table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_activity_log_campaign ON activity_log(campaign_id, created_at)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &journalWriter{db: db}, nil
}

// Append persists one record. Records are immutable afterwards.
func (w *journalWriter) Append(ctx context.Context, rec *domain.ActivityRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, campaign_id, chat_id, chat_title, message_id,
			matched_keyword, original_message, agent_response, status, error,
			duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.CampaignID,
		rec.ChatID,
		rec.ChatTitle,
		rec.MessageID,
		rec.MatchedKeyword,
		domain.Truncate(rec.OriginalMessage, domain.MaxJournalText),
		domain.Truncate(rec.AgentResponse, domain.MaxJournalText),
		string(rec.Status),
		rec.Error,
		rec.DurationMS,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append activity record: %w", err)
	}
	return nil
}
