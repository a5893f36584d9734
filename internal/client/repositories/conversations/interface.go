// Package conversations caches conversations that exist only on this
// device, so a chat started offline survives a restart until the backend
// knows about it.
package conversations

import (
	"context"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

type Repository interface {
	// List returns the cached conversations, most recent first. Every
	// returned conversation has local origin.
	List(ctx context.Context) ([]models.Conversation, error)
	// Save inserts or updates one conversation by key.
	Save(ctx context.Context, c models.Conversation) error
	// Replace makes the cache hold exactly convs.
	Replace(ctx context.Context, convs []models.Conversation) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
