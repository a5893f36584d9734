// Package client contains the transport and local persistence bootstrap of
// the dialer client.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) for the
//     messaging backend: conversation and history fetches, sends, read and
//     status sync, deletion, presence, typing and the push channel.
//  2. A concrete gRPC implementation (see GRPCClient). Requests and replies
//     are google.protobuf.Struct values; nothing here interprets them beyond
//     picking the list out of a reply, normalization happens upstream.
//     The access token travels in metadata, injected by unary and stream
//     interceptors, and gRPC status codes are mapped to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations): an SQLite
//     database with embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrRejected, ErrNotFound.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation; unary calls additionally get the
// configured per-call timeout.
package client
