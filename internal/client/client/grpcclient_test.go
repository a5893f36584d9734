package client

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
)

/*************
 * Fake connection
 *************/

type fakeConn struct {
	lastMethod string
	lastReq    map[string]any
	deadline   bool

	resp map[string]any
	err  error

	stream    *fakeStream
	streamErr error
	closed    bool
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	f.lastMethod = method
	f.lastReq = args.(*structpb.Struct).AsMap()
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	out, err := structpb.NewStruct(f.resp)
	if err != nil {
		return err
	}
	proto.Merge(reply.(*structpb.Struct), out)
	return nil
}

func (f *fakeConn) NewStream(ctx context.Context, _ *grpc.StreamDesc, method string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
	f.lastMethod = method
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	f.stream.ctx = ctx
	return f.stream, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type fakeStream struct {
	ctx    context.Context
	msgs   []map[string]any
	end    error
	sent   int
	closed bool
}

func (s *fakeStream) Header() (metadata.MD, error) { return nil, nil }
func (s *fakeStream) Trailer() metadata.MD         { return nil }
func (s *fakeStream) CloseSend() error             { s.closed = true; return nil }
func (s *fakeStream) Context() context.Context     { return s.ctx }
func (s *fakeStream) SendMsg(any) error            { s.sent++; return nil }

func (s *fakeStream) RecvMsg(m any) error {
	if len(s.msgs) == 0 {
		return s.end
	}
	out, err := structpb.NewStruct(s.msgs[0])
	if err != nil {
		return err
	}
	s.msgs = s.msgs[1:]
	proto.Merge(m.(*structpb.Struct), out)
	return nil
}

func newTestClient(f *fakeConn) *GRPCClient {
	return &GRPCClient{conn: f, timeout: time.Second}
}

/*************
 * interceptor tests
 *************/

func TestInterceptor_AttachesAccessToken(t *testing.T) {
	c := &GRPCClient{}
	c.SetAccessToken("A1")

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		toks := md.Get(common.AccessTokenHeaderName)
		require.Equal(t, []string{"A1"}, toks)
		return nil
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "stale")
	require.NoError(t, c.accessTokenInterceptor(ctx, "/svc/Method", nil, nil, nil, invoker))
}

func TestInterceptor_NoTokenNoMetadata(t *testing.T) {
	c := &GRPCClient{}

	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Empty(t, md.Get(common.AccessTokenHeaderName))
		return nil
	}
	require.NoError(t, c.accessTokenInterceptor(context.Background(), "/svc/Method", nil, nil, nil, invoker))
}

func TestStreamInterceptor_AttachesAccessToken(t *testing.T) {
	c := &GRPCClient{}
	c.SetAccessToken("S1")

	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		md, _ := metadata.FromOutgoingContext(ctx)
		require.Equal(t, []string{"S1"}, md.Get(common.AccessTokenHeaderName))
		return nil, nil
	}
	_, err := c.streamAccessTokenInterceptor(context.Background(), subscribeDesc, nil, common.MethodSubscribe, streamer)
	require.NoError(t, err)
}

/*************
 * error mapping
 *************/

func TestMapError(t *testing.T) {
	c := &GRPCClient{}

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "x"), ErrUnauthorized},
		{"permission", status.Error(codes.PermissionDenied, "x"), ErrUnauthorized},
		{"unavailable", status.Error(codes.Unavailable, "x"), ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), ErrUnavailable},
		{"invalid", status.Error(codes.InvalidArgument, "bad number"), ErrRejected},
		{"precondition", status.Error(codes.FailedPrecondition, "x"), ErrRejected},
		{"not found", status.Error(codes.NotFound, "x"), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, c.mapError(tt.in), tt.want)
		})
	}

	require.NoError(t, c.mapError(nil))

	other := c.mapError(status.Error(codes.Internal, "boom"))
	require.Error(t, other)
	require.Contains(t, other.Error(), "rpc error")
}

/*************
 * unary calls
 *************/

func TestPing(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"status": "OK"}}
	c := newTestClient(f)

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, common.MethodPing, f.lastMethod)
	assert.True(t, f.deadline, "unary calls carry a deadline")

	f.resp = map[string]any{"status": "DEGRADED"}
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)

	f.err = status.Error(codes.Unavailable, "down")
	require.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestListConversations(t *testing.T) {
	f := &fakeConn{resp: map[string]any{
		"conversations": []any{
			map[string]any{"identity": "+15551234567", "unreadCount": 2},
			"garbage",
			map[string]any{"identity": "+15557654321"},
		},
	}}
	c := newTestClient(f)

	recs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "+15551234567", recs[0]["identity"])
	assert.Equal(t, float64(2), recs[0]["unreadCount"])
	assert.Equal(t, common.MethodListConversations, f.lastMethod)
}

func TestListMessages(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"messages": []any{map[string]any{"sid": "SM1"}}}}
	c := newTestClient(f)

	recs, err := c.ListMessages(context.Background(), "+15551234567", 50)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"identity": "+15551234567", "limit": float64(50)}, f.lastReq)

	_, err = c.ListMessages(context.Background(), "+15551234567", 0)
	require.NoError(t, err)
	assert.NotContains(t, f.lastReq, "limit")

	f.err = status.Error(codes.Unauthenticated, "expired")
	_, err = c.ListMessages(context.Background(), "+15551234567", 0)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSendMessage(t *testing.T) {
	f := &fakeConn{resp: map[string]any{"sid": "SM99", "status": "queued"}}
	c := newTestClient(f)

	res, err := c.SendMessage(context.Background(), SendRequest{To: "+15551234567", Body: "hi", ClientID: "c1", MediaURL: "https://x/y.png"})
	require.NoError(t, err)
	assert.Equal(t, SendResult{ID: "SM99", Status: "queued"}, res)
	assert.Equal(t, map[string]any{"to": "+15551234567", "body": "hi", "clientId": "c1", "mediaUrl": "https://x/y.png"}, f.lastReq)

	f.resp = map[string]any{"status": "failed"}
	_, err = c.SendMessage(context.Background(), SendRequest{To: "+15551234567", Body: "hi"})
	require.ErrorIs(t, err, ErrRejected)

	f.err = status.Error(codes.InvalidArgument, "invalid number")
	_, err = c.SendMessage(context.Background(), SendRequest{To: "1", Body: "hi"})
	require.ErrorIs(t, err, ErrRejected)
	require.Contains(t, err.Error(), "invalid number")
}

func TestSmallCalls(t *testing.T) {
	f := &fakeConn{resp: map[string]any{}}
	c := newTestClient(f)
	ctx := context.Background()

	require.NoError(t, c.MarkRead(ctx, "+15551234567"))
	assert.Equal(t, common.MethodMarkRead, f.lastMethod)
	assert.Equal(t, map[string]any{"identity": "+15551234567"}, f.lastReq)

	require.NoError(t, c.UpdateMessageStatus(ctx, []string{"SM1", "SM2"}, "read"))
	assert.Equal(t, common.MethodUpdateMessageStatus, f.lastMethod)
	assert.Equal(t, []any{"SM1", "SM2"}, f.lastReq["messageIds"])

	require.NoError(t, c.DeleteMessage(ctx, "SM1"))
	assert.Equal(t, common.MethodDeleteMessage, f.lastMethod)
	assert.Equal(t, "SM1", f.lastReq["messageId"])

	require.NoError(t, c.SendTyping(ctx, "+15551234567", true))
	assert.Equal(t, common.MethodSendTyping, f.lastMethod)
	assert.Equal(t, true, f.lastReq["typing"])

	f.resp = map[string]any{"online": true}
	rec, err := c.GetPresence(ctx, "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, true, rec["online"])

	f.err = status.Error(codes.NotFound, "no such message")
	require.ErrorIs(t, c.DeleteMessage(ctx, "SM404"), ErrNotFound)
}

/*************
 * push channel
 *************/

func TestSubscribe_ReceivesUntilEOF(t *testing.T) {
	st := &fakeStream{
		msgs: []map[string]any{{"type": "typing_start", "payload": map[string]any{"identity": "+15551234567"}}},
		end:  io.EOF,
	}
	f := &fakeConn{stream: st}
	c := newTestClient(f)

	es, err := c.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, common.MethodSubscribe, f.lastMethod)
	assert.Equal(t, 1, st.sent)
	assert.True(t, st.closed)

	rec, err := es.Recv()
	require.NoError(t, err)
	assert.Equal(t, "typing_start", rec["type"])

	_, err = es.Recv()
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, es.Close())
	require.ErrorIs(t, st.ctx.Err(), context.Canceled)
}

func TestSubscribe_MapsErrors(t *testing.T) {
	f := &fakeConn{streamErr: status.Error(codes.Unauthenticated, "nope")}
	c := newTestClient(f)

	_, err := c.Subscribe(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	f.streamErr = nil
	f.stream = &fakeStream{end: status.Error(codes.Unavailable, "gone")}
	es, err := c.Subscribe(context.Background())
	require.NoError(t, err)
	_, err = es.Recv()
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestClose(t *testing.T) {
	f := &fakeConn{}
	c := newTestClient(f)
	require.NoError(t, c.Close())
	require.True(t, f.closed)
}

func TestNewGRPCClient_DefaultTimeout(t *testing.T) {
	c, err := NewGRPCClient("passthrough:///localhost:0", 0)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, DefaultTimeout, c.timeout)
}
