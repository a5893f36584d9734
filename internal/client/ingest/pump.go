package ingest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
)

// Stream is an open push channel.
type Stream interface {
	Recv() (models.Record, error)
	Close() error
}

// Dialer opens a fresh push channel.
type Dialer func(ctx context.Context) (Stream, error)

// PumpConfig tunes reconnection.
type PumpConfig struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Permanent reports errors that end the pump instead of reconnecting,
	// e.g. an expired session.
	Permanent func(error) bool
}

// Pump keeps a push channel open, decodes envelopes and hands events to a
// sink. Malformed envelopes are dropped and reported through OnDrop.
type Pump struct {
	dial   Dialer
	dec    *Decoder
	cfg    PumpConfig
	logger logging.Logger

	// OnEvent receives every decoded event. It must not block for long.
	OnEvent func(Event)
	// OnState is told when the channel goes up or down.
	OnState func(connected bool)
	// OnDrop is told about every rejected envelope.
	OnDrop func(err error)
}

func NewPump(dial Dialer, dec *Decoder, cfg PumpConfig, logger logging.Logger) *Pump {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Pump{
		dial:    dial,
		dec:     dec,
		cfg:     cfg,
		logger:  logger.With("module", "push"),
		OnEvent: func(Event) {},
		OnState: func(bool) {},
		OnDrop:  func(error) {},
	}
}

// Run blocks until ctx is done or a permanent error occurs. It returns nil
// on cancellation.
func (p *Pump) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialBackoff
	b.MaxInterval = p.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	bo := backoff.WithContext(b, ctx)

	for {
		err := p.session(ctx, bo)
		if ctx.Err() != nil {
			return nil
		}
		if p.cfg.Permanent != nil && p.cfg.Permanent(err) {
			p.logger.Error(ctx, "push channel closed permanently", "error", err)
			return err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return nil
		}
		p.logger.Warn(ctx, "push channel lost, reconnecting", "error", err, "retry_in", wait)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// session runs one connection until it fails.
func (p *Pump) session(ctx context.Context, bo backoff.BackOff) error {
	stream, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	bo.Reset()
	p.OnState(true)
	defer p.OnState(false)
	p.logger.Info(ctx, "push channel connected")

	for {
		env, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		ev, err := p.dec.Decode(env)
		if err != nil {
			p.logger.Warn(ctx, "dropping push event", "error", err)
			p.OnDrop(err)
			continue
		}
		p.OnEvent(ev)
	}
}
