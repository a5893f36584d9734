package normalize

import "errors"

var (
	ErrMissingID      = errors.New("record has no message id")
	ErrNoConversation = errors.New("record has no conversation identity")
	ErrNilRecord      = errors.New("nil record")
)
