package conversations

import (
	"context"
	"fmt"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, identity, display_name, last_message_preview, last_activity_at
		FROM conversations
		ORDER BY last_activity_at DESC, key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var ms int64
		if err := rows.Scan(&c.Key, &c.Identity, &c.DisplayName, &c.LastMessagePreview, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		if ms > 0 {
			c.LastActivityAt = time.UnixMilli(ms).UTC()
		}
		c.Origin = models.OriginLocal
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, c models.Conversation) error {
	return save(ctx, r.db, c)
}

func save(ctx context.Context, db dbx.DBTX, c models.Conversation) error {
	if c.Key == "" {
		return fmt.Errorf("failed to save conversation: empty key")
	}
	var ms int64
	if !c.LastActivityAt.IsZero() {
		ms = c.LastActivityAt.UnixMilli()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO conversations (key, identity, display_name, last_message_preview, last_activity_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			identity = excluded.identity,
			display_name = excluded.display_name,
			last_message_preview = excluded.last_message_preview,
			last_activity_at = MAX(conversations.last_activity_at, excluded.last_activity_at)
	`, c.Key, c.Identity, c.DisplayName, c.LastMessagePreview, ms)
	if err != nil {
		return fmt.Errorf("failed to save conversation[%s]: %w", c.Key, err)
	}
	return nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, convs []models.Conversation) error {
	return dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
			return fmt.Errorf("failed to clear conversations: %w", err)
		}
		for _, c := range convs {
			if err := save(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete conversation[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations`)
	if err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}
	return nil
}
