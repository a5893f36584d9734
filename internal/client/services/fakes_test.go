package services

import (
	"context"
	"sync"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/client"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
)

// fakeClient implements client.Client for service tests. Unset funcs
// succeed with empty results.
type fakeClient struct {
	mu sync.Mutex

	token string

	PingErr             error
	ListConversationsFn func() ([]models.Record, error)
	ListMessagesFn      func(identity string) ([]models.Record, error)
	SendMessageFn       func(req client.SendRequest) (client.SendResult, error)
	DeleteErr           error
	StatusErr           error
	GetPresenceFn       func(identity string) (models.Record, error)
	SubscribeFn         func(ctx context.Context) (client.EventStream, error)

	sent     []client.SendRequest
	markRead []string
	deleted  []string
	typing   []bool
	statuses []statusCall
	closed   bool
}

type statusCall struct {
	IDs    []string
	Status string
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) SetAccessToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) ListConversations(ctx context.Context) ([]models.Record, error) {
	if f.ListConversationsFn == nil {
		return nil, nil
	}
	return f.ListConversationsFn()
}

func (f *fakeClient) ListMessages(ctx context.Context, identity string, limit int) ([]models.Record, error) {
	if f.ListMessagesFn == nil {
		return nil, nil
	}
	return f.ListMessagesFn(identity)
}

func (f *fakeClient) SendMessage(ctx context.Context, req client.SendRequest) (client.SendResult, error) {
	f.mu.Lock()
	f.sent = append(f.sent, req)
	f.mu.Unlock()
	if f.SendMessageFn == nil {
		return client.SendResult{ID: "SM1", Status: "sent"}, nil
	}
	return f.SendMessageFn(req)
}

func (f *fakeClient) MarkRead(ctx context.Context, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markRead = append(f.markRead, identity)
	return nil
}

func (f *fakeClient) MarkedRead() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.markRead...)
}

func (f *fakeClient) UpdateMessageStatus(ctx context.Context, ids []string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, statusCall{IDs: append([]string(nil), ids...), Status: status})
	return f.StatusErr
}

func (f *fakeClient) Statuses() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusCall(nil), f.statuses...)
}

func (f *fakeClient) Typing() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.typing...)
}

func (f *fakeClient) DeleteMessage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.DeleteErr
}

func (f *fakeClient) GetPresence(ctx context.Context, identity string) (models.Record, error) {
	if f.GetPresenceFn == nil {
		return models.Record{"online": false}, nil
	}
	return f.GetPresenceFn(identity)
}

func (f *fakeClient) SendTyping(ctx context.Context, identity string, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, typing)
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context) (client.EventStream, error) {
	if f.SubscribeFn == nil {
		return newFakeStream(ctx), nil
	}
	return f.SubscribeFn(ctx)
}

// fakeStream hands out envelopes pushed into ch until its context ends.
type fakeStream struct {
	ctx context.Context
	ch  chan models.Record
}

func newFakeStream(ctx context.Context) *fakeStream {
	return &fakeStream{ctx: ctx, ch: make(chan models.Record, 16)}
}

func (s *fakeStream) Recv() (models.Record, error) {
	select {
	case env := <-s.ch:
		return env, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *fakeStream) Close() error { return nil }

type fakeConvRepo struct {
	mu    sync.Mutex
	rows  map[string]models.Conversation
	saves int
}

func newFakeConvRepo(seed ...models.Conversation) *fakeConvRepo {
	r := &fakeConvRepo{rows: make(map[string]models.Conversation)}
	for _, c := range seed {
		r.rows[c.Key] = c
	}
	return r
}

func (r *fakeConvRepo) List(ctx context.Context) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Conversation, 0, len(r.rows))
	for _, c := range r.rows {
		c.Origin = models.OriginLocal
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeConvRepo) Save(ctx context.Context, c models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.Key] = c
	r.saves++
	return nil
}

func (r *fakeConvRepo) Replace(ctx context.Context, convs []models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[string]models.Conversation)
	for _, c := range convs {
		r.rows[c.Key] = c
	}
	return nil
}

func (r *fakeConvRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, key)
	return nil
}

func (r *fakeConvRepo) Clear(ctx context.Context) error {
	return r.Replace(ctx, nil)
}

func (r *fakeConvRepo) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[key]
	return ok
}

func (r *fakeConvRepo) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type fakeMetaRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeMetaRepo() *fakeMetaRepo {
	return &fakeMetaRepo{values: make(map[string]string)}
}

func (r *fakeMetaRepo) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[key], nil
}

func (r *fakeMetaRepo) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *fakeMetaRepo) SetMany(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		_ = r.Set(ctx, k, v)
	}
	return nil
}

func (r *fakeMetaRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

func (r *fakeMetaRepo) List(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *fakeMetaRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = make(map[string]string)
	return nil
}
