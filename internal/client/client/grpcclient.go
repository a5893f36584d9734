package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
)

// DefaultTimeout bounds unary calls when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// conn is the part of *grpc.ClientConn the client uses.
type conn interface {
	grpc.ClientConnInterface
	Close() error
}

type GRPCClient struct {
	endpointURL string
	timeout     time.Duration
	dialOpts    []grpc.DialOption
	conn        conn

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	return invoker(withAccessToken(ctx, s.AccessToken()), method, req, reply, cc, opts...)
}

func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, s.AccessToken()), desc, cc, method, opts...)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended to the defaults (insecure transport, token interceptors).
func NewGRPCClient(endpointURL string, timeout time.Duration, extra ...grpc.DialOption) (*GRPCClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &GRPCClient{endpointURL: endpointURL, timeout: timeout, dialOpts: extra}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	return nil
}

// SetAccessToken replaces the token attached to every call.
func (s *GRPCClient) SetAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// call performs one unary request with the configured timeout.
func (s *GRPCClient) call(ctx context.Context, method string, req map[string]any) (models.Record, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := &structpb.Struct{}
	if err := s.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, s.mapError(err)
	}
	return out.AsMap(), nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.call(ctx, common.MethodPing, map[string]any{})
	if err != nil {
		return err
	}
	if st, _ := resp["status"].(string); st != common.PingOK {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) ListConversations(ctx context.Context) ([]models.Record, error) {
	resp, err := s.call(ctx, common.MethodListConversations, map[string]any{})
	if err != nil {
		return nil, err
	}
	return records(resp, "conversations"), nil
}

func (s *GRPCClient) ListMessages(ctx context.Context, identity string, limit int) ([]models.Record, error) {
	req := map[string]any{"identity": identity}
	if limit > 0 {
		req["limit"] = limit
	}
	resp, err := s.call(ctx, common.MethodListMessages, req)
	if err != nil {
		return nil, err
	}
	return records(resp, "messages"), nil
}

func (s *GRPCClient) SendMessage(ctx context.Context, r SendRequest) (SendResult, error) {
	req := map[string]any{"to": r.To, "body": r.Body, "clientId": r.ClientID}
	if r.MediaURL != "" {
		req["mediaUrl"] = r.MediaURL
	}
	resp, err := s.call(ctx, common.MethodSendMessage, req)
	if err != nil {
		return SendResult{}, err
	}

	res := SendResult{
		ID:     firstString(resp, "sid", "messageId", "id"),
		Status: firstString(resp, "status"),
		Error:  firstString(resp, "errorMessage", "error"),
	}
	if res.ID == "" {
		return SendResult{}, fmt.Errorf("%w: acknowledgment without message id", ErrRejected)
	}
	return res, nil
}

func (s *GRPCClient) MarkRead(ctx context.Context, identity string) error {
	_, err := s.call(ctx, common.MethodMarkRead, map[string]any{"identity": identity})
	return err
}

func (s *GRPCClient) UpdateMessageStatus(ctx context.Context, ids []string, st string) error {
	list := make([]any, len(ids))
	for i, id := range ids {
		list[i] = id
	}
	_, err := s.call(ctx, common.MethodUpdateMessageStatus, map[string]any{"messageIds": list, "status": st})
	return err
}

func (s *GRPCClient) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.call(ctx, common.MethodDeleteMessage, map[string]any{"messageId": id})
	return err
}

func (s *GRPCClient) GetPresence(ctx context.Context, identity string) (models.Record, error) {
	return s.call(ctx, common.MethodGetPresence, map[string]any{"identity": identity})
}

func (s *GRPCClient) SendTyping(ctx context.Context, identity string, typing bool) error {
	_, err := s.call(ctx, common.MethodSendTyping, map[string]any{"identity": identity, "typing": typing})
	return err
}

var subscribeDesc = &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}

// Subscribe opens the push channel. The stream lives until ctx is done or
// Close is called; no per-call timeout applies.
func (s *GRPCClient) Subscribe(ctx context.Context) (EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)
	cs, err := s.conn.NewStream(ctx, subscribeDesc, common.MethodSubscribe)
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}
	if err := cs.SendMsg(&structpb.Struct{}); err != nil {
		cancel()
		return nil, s.mapError(err)
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, s.mapError(err)
	}
	return &eventStream{cs: cs, cancel: cancel, mapErr: s.mapError}, nil
}

type eventStream struct {
	cs     grpc.ClientStream
	cancel context.CancelFunc
	mapErr func(error) error
}

func (e *eventStream) Recv() (models.Record, error) {
	msg := &structpb.Struct{}
	if err := e.cs.RecvMsg(msg); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, e.mapErr(err)
	}
	return msg.AsMap(), nil
}

func (e *eventStream) Close() error {
	e.cancel()
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	case codes.NotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

// records picks the list under field out of a reply.
func records(resp models.Record, field string) []models.Record {
	list, _ := resp[field].([]any)
	out := make([]models.Record, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstString(rec models.Record, keys ...string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
