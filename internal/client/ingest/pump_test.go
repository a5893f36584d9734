package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

type fakeStream struct {
	recs   []models.Record
	closed bool
}

func (s *fakeStream) Recv() (models.Record, error) {
	if len(s.recs) == 0 {
		return nil, io.EOF
	}
	r := s.recs[0]
	s.recs = s.recs[1:]
	return r, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

var errExpired = errors.New("session expired")

func TestPump_DecodesReconnectsAndStops(t *testing.T) {
	first := &fakeStream{recs: []models.Record{
		{"type": "typing_start", "identity": "+15551234567"},
		{"type": "nonsense"},
		{"type": "typing_stop", "identity": "+15551234567"},
	}}

	var mu sync.Mutex
	dials := 0
	dial := func(ctx context.Context) (Stream, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		switch dials {
		case 1:
			return first, nil
		case 2:
			return nil, errors.New("connection refused")
		default:
			return nil, errExpired
		}
	}

	p := NewPump(dial, newDecoder(), PumpConfig{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Permanent:      func(err error) bool { return errors.Is(err, errExpired) },
	}, logging.Nop{})

	var events []Event
	var drops []error
	var states []bool
	p.OnEvent = func(ev Event) { events = append(events, ev) }
	p.OnDrop = func(err error) { drops = append(drops, err) }
	p.OnState = func(up bool) { states = append(states, up) }

	err := p.Run(context.Background())
	require.ErrorIs(t, err, errExpired)

	assert.Equal(t, 3, dials)
	assert.True(t, first.closed)
	require.Len(t, events, 2)
	assert.Equal(t, KindTypingStart, events[0].Kind())
	assert.Equal(t, KindTypingStop, events[1].Kind())
	require.Len(t, drops, 1)
	assert.ErrorIs(t, drops[0], ErrUnknownKind)
	assert.Equal(t, []bool{true, false}, states)
}

func TestPump_CancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dial := func(context.Context) (Stream, error) {
		cancel()
		return nil, errors.New("down")
	}
	p := NewPump(dial, newDecoder(), PumpConfig{InitialBackoff: time.Hour}, logging.Nop{})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop")
	}
}
