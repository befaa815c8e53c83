package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"telegram-campaign-engine/internal/biz/domain"
	"telegram-campaign-engine/internal/biz/repo"
)

// campaignStore reads the campaign table the administrative collaborator
// maintains. Set-valued fields are JSON columns.
type campaignStore struct {
	db *sql.DB
}

// NewCampaignStore creates the read-only campaign store over db.
func NewCampaignStore(db *sql.DB) (repo.CampaignStore, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS campaigns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			target_chats TEXT NOT NULL DEFAULT '[]',
			keywords TEXT NOT NULL DEFAULT '[]',
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			context_depth INTEGER NOT NULL DEFAULT 0,
			system_instruction TEXT NOT NULL DEFAULT '',
			example_replies TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaigns table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_campaigns_active ON campaigns(active)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &campaignStore{db: db}, nil
}

// ListActive returns the full active campaign set in id order.
func (s *campaignStore) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, target_chats, keywords, provider, model,
		       context_depth, system_instruction, example_replies,
		       created_at, updated_at
		FROM campaigns
		WHERE active = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repo.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		var (
			c                         domain.Campaign
			targetsJSON, keywordsJSON string
			examplesJSON              string
			createdAt, updatedAt      int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &targetsJSON, &keywordsJSON, &c.Provider, &c.Model,
			&c.ContextDepth, &c.SystemInstruction, &examplesJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", repo.ErrStoreUnavailable, err)
		}

		var targets []string
		if err := json.Unmarshal([]byte(targetsJSON), &targets); err != nil {
			return nil, fmt.Errorf("campaign %d: bad target_chats: %w", c.ID, err)
		}
		for _, t := range targets {
			ref := domain.ParseChatRef(t)
			if !ref.IsZero() {
				c.TargetChats = append(c.TargetChats, ref)
			}
		}

		if err := json.Unmarshal([]byte(keywordsJSON), &c.Keywords); err != nil {
			return nil, fmt.Errorf("campaign %d: bad keywords: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(examplesJSON), &c.ExampleReplies); err != nil {
			return nil, fmt.Errorf("campaign %d: bad example_replies: %w", c.ID, err)
		}

		c.Active = true
		c.CreatedAt = time.Unix(createdAt, 0)
		c.UpdatedAt = time.Unix(updatedAt, 0)
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", repo.ErrStoreUnavailable, err)
	}

	return campaigns, nil
}
