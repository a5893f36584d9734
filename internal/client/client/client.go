package client

import (
	"context"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

// SendRequest is one outbound message.
type SendRequest struct {
	To       string
	Body     string
	MediaURL string
	// ClientID is echoed back by the backend on the pushed copy.
	ClientID string
}

// SendResult is the backend acknowledgment of a send.
type SendResult struct {
	ID     string
	Status string
	Error  string
}

// EventStream is an open push channel. Recv blocks until the next envelope.
type EventStream interface {
	Recv() (models.Record, error)
	Close() error
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	ListConversations(ctx context.Context) ([]models.Record, error)
	ListMessages(ctx context.Context, identity string, limit int) ([]models.Record, error)
	SendMessage(ctx context.Context, req SendRequest) (SendResult, error)
	MarkRead(ctx context.Context, identity string) error
	UpdateMessageStatus(ctx context.Context, ids []string, status string) error
	DeleteMessage(ctx context.Context, id string) error
	GetPresence(ctx context.Context, identity string) (models.Record, error)
	SendTyping(ctx context.Context, identity string, typing bool) error
	Subscribe(ctx context.Context) (EventStream, error)
}
