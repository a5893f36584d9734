package grpc

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/client"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/auth"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/messaging"
)

const (
	testSecret = "e2e-secret"
	alice      = "+15550000001"
	bob        = "+15550000002"
)

type backend struct {
	lis *bufconn.Listener
}

func startBackend(t *testing.T, cfg messaging.Config) *backend {
	t.Helper()
	svc := messaging.NewService(cfg, logging.Nop{})
	srv, err := NewGRPCServer("bufnet", logging.Nop{}, svc, testSecret)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	t.Cleanup(func() {
		cancel()
		<-done
		svc.Close()
	})
	return &backend{lis: lis}
}

// dial returns a client signed in as phone, or anonymous when phone is "".
func (b *backend) dial(t *testing.T, phone string) *client.GRPCClient {
	t.Helper()
	c, err := client.NewGRPCClient("passthrough:///bufnet", time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return b.lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	if phone != "" {
		tok, err := auth.GenerateToken(phone, []byte(testSecret), time.Hour)
		require.NoError(t, err)
		c.SetAccessToken(tok)
	}
	return c
}

func recvKind(t *testing.T, s client.EventStream, kind string) models.Record {
	t.Helper()
	for {
		rec, err := s.Recv()
		require.NoError(t, err)
		if rec["type"] == kind {
			p, _ := rec["payload"].(map[string]any)
			return p
		}
	}
}

func TestE2E_PingAndAuth(t *testing.T) {
	b := startBackend(t, messaging.Config{DeliveryDelay: time.Hour})
	ctx := context.Background()

	anon := b.dial(t, "")
	require.NoError(t, anon.Ping(ctx))

	_, err := anon.ListConversations(ctx)
	require.ErrorIs(t, err, client.ErrUnauthorized)

	s, err := anon.Subscribe(ctx)
	if err == nil {
		defer s.Close()
		_, err = s.Recv()
	}
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestE2E_SendReachesRecipientPushChannel(t *testing.T) {
	b := startBackend(t, messaging.Config{DeliveryDelay: 20 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := b.dial(t, alice)
	bb := b.dial(t, bob)

	toAlice, err := a.Subscribe(ctx)
	require.NoError(t, err)
	defer toAlice.Close()
	toBob, err := bb.Subscribe(ctx)
	require.NoError(t, err)
	defer toBob.Close()

	// Both push channels are registered once presence can be observed.
	require.Eventually(t, func() bool {
		ra, errA := bb.GetPresence(ctx, alice)
		rb, errB := a.GetPresence(ctx, bob)
		return errA == nil && errB == nil && ra["status"] == "online" && rb["status"] == "online"
	}, 2*time.Second, 10*time.Millisecond)

	res, err := a.SendMessage(ctx, client.SendRequest{To: bob, Body: "hello", ClientID: "c-1"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ID, "SM"))
	assert.Len(t, res.ID, 34)
	assert.Equal(t, "sent", res.Status)

	in := recvKind(t, toBob, messaging.EventIncomingMessage)
	assert.Equal(t, res.ID, in["sid"])
	assert.Equal(t, "hello", in["body"])

	echo := recvKind(t, toAlice, messaging.EventIncomingMessage)
	assert.Equal(t, "c-1", echo["clientId"])

	st := recvKind(t, toAlice, messaging.EventStatusUpdate)
	assert.Equal(t, res.ID, st["messageId"])
	assert.Equal(t, "delivered", st["status"])

	convs, err := bb.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, alice, convs[0]["identity"])
	assert.Equal(t, float64(1), convs[0]["unreadCount"])

	require.NoError(t, bb.MarkRead(ctx, alice))
	read := recvKind(t, toAlice, messaging.EventStatusUpdate)
	assert.Equal(t, "read", read["status"])

	require.NoError(t, bb.SendTyping(ctx, alice, true))
	typing := recvKind(t, toAlice, messaging.EventTypingStart)
	assert.Equal(t, bob, typing["identity"])
}

func TestE2E_HistoryAndDeletion(t *testing.T) {
	b := startBackend(t, messaging.Config{DeliveryDelay: time.Hour})
	ctx := context.Background()
	a := b.dial(t, alice)
	bb := b.dial(t, bob)

	first, err := a.SendMessage(ctx, client.SendRequest{To: bob, Body: "one"})
	require.NoError(t, err)
	_, err = a.SendMessage(ctx, client.SendRequest{To: bob, Body: "two", MediaURL: "https://example.com/a.png"})
	require.NoError(t, err)

	msgs, err := bb.ListMessages(ctx, alice, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "https://example.com/a.png", msgs[1]["mediaUrl"])

	msgs, err = bb.ListMessages(ctx, alice, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "two", msgs[0]["body"])

	require.ErrorIs(t, bb.DeleteMessage(ctx, first.ID), client.ErrRejected)
	require.ErrorIs(t, a.DeleteMessage(ctx, "SM404"), client.ErrNotFound)
	require.NoError(t, a.DeleteMessage(ctx, first.ID))

	msgs, err = bb.ListMessages(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, true, msgs[0]["deleted"])

	require.NoError(t, bb.UpdateMessageStatus(ctx, []string{msgs[1]["sid"].(string)}, "delivered"))
	require.ErrorIs(t, bb.UpdateMessageStatus(ctx, nil, "bogus"), client.ErrRejected)

	_, err = a.SendMessage(ctx, client.SendRequest{To: "12", Body: "x"})
	require.ErrorIs(t, err, client.ErrRejected)
}
