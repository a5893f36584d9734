package engine

import (
	"errors"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/store"
)

var (
	ErrInvalidIdentity = errors.New("identity has no usable key")
	ErrEmptyMessage    = errors.New("message has neither body nor media")
	ErrUnknownSend     = errors.New("no pending send with this id")
	ErrSendInFlight    = errors.New("message is still being sent")
	ErrNotDeletable    = errors.New("message cannot be deleted for everyone")
	ErrNotFound        = store.ErrNotFound
)
