package common

import "errors"

// Errors shared by the server and the client. Transport layers translate
// them to and from gRPC status codes.
var (
	ErrorNotFound     = errors.New("not found")
	ErrorInvalidInput = errors.New("invalid input")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorInternal     = errors.New("internal error")
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
