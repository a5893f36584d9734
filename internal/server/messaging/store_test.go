package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/common"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/server/models"
)

const (
	alice = "+15550000001"
	bob   = "+15550000002"
	carol = "+15550000003"
)

var t0 = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

func msg(sid, from, to string, at time.Duration) models.Message {
	return models.Message{SID: sid, From: from, To: to, Body: sid, Status: models.StatusSent, SentAt: t0.Add(at)}
}

func TestStore_MessagesMatchByKey(t *testing.T) {
	s := NewStore()
	s.Add(msg("SM2", alice, bob, 2*time.Minute))
	s.Add(msg("SM1", "(555) 000-0002", "5550000001", time.Minute))
	s.Add(msg("SM3", alice, carol, 3*time.Minute))

	got := s.Messages(alice, bob, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "SM1", got[0].SID)
	assert.Equal(t, "SM2", got[1].SID)

	got = s.Messages(bob, alice, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "SM2", got[0].SID, "limit keeps the newest")
}

func TestStore_Conversations(t *testing.T) {
	s := NewStore()
	s.Add(msg("SM1", bob, alice, time.Minute))
	s.Add(msg("SM2", bob, alice, 2*time.Minute))
	s.Add(msg("SM3", alice, carol, 3*time.Minute))

	convs := s.Conversations(alice)
	require.Len(t, convs, 2)
	assert.Equal(t, carol, convs[0].Identity)
	assert.Zero(t, convs[0].UnreadCount)
	assert.Equal(t, bob, convs[1].Identity)
	assert.Equal(t, 2, convs[1].UnreadCount)
	assert.Equal(t, "SM2", convs[1].LastMessage.SID)

	assert.Equal(t, 1, len(s.Conversations(carol)))
	assert.Empty(t, s.Conversations("+15559999999"))
}

func TestStore_MarkRead(t *testing.T) {
	s := NewStore()
	s.Add(msg("SM1", bob, alice, time.Minute))
	s.Add(msg("SM2", alice, bob, 2*time.Minute))

	updated := s.MarkRead(alice, bob)
	require.Len(t, updated, 1)
	assert.Equal(t, "SM1", updated[0].SID)
	assert.Equal(t, models.StatusRead, updated[0].Status)

	assert.Empty(t, s.MarkRead(alice, bob))
	assert.Zero(t, s.Conversations(alice)[0].UnreadCount)
}

func TestStore_UpdateUnknown(t *testing.T) {
	s := NewStore()
	_, _, err := s.Update("SM404", func(*models.Message) bool { return true })
	require.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.Get("SM404")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestStore_Counterparts(t *testing.T) {
	s := NewStore()
	s.Add(msg("SM1", bob, alice, time.Minute))
	s.Add(msg("SM2", alice, carol, 2*time.Minute))
	s.Add(msg("SM3", "+1 555 000 0002", alice, 3*time.Minute))

	assert.Equal(t, []string{"5550000002", "5550000003"}, s.Counterparts(alice))
}

func TestHub_PublishAndCancel(t *testing.T) {
	h := NewHub()
	a, first := h.Subscribe("5550000001")
	require.True(t, first)
	b, first := h.Subscribe("5550000001")
	require.False(t, first)

	assert.Equal(t, 2, h.Publish("5550000001", newEvent(EventPresence, nil)))
	assert.Equal(t, 0, h.Publish("5550000002", newEvent(EventPresence, nil)))

	assert.False(t, h.Cancel(a))
	assert.False(t, h.Cancel(a), "cancel is idempotent")
	assert.True(t, h.Online("5550000001"))
	assert.True(t, h.Cancel(b))
	assert.False(t, h.Online("5550000001"))
	assert.False(t, h.LastSeen("5550000001").IsZero())

	_, open := <-b.C
	assert.True(t, open, "buffered events are still readable")
	_, open = <-b.C
	assert.False(t, open)
}
