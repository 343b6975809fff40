package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/danmuck/packetizer/internal/protocol/framer"
	"github.com/rs/zerolog/log"
)

// DialFunc opens one input connection.
type DialFunc func(ctx context.Context) (io.ReadCloser, error)

// Redial pumps successive connections from dial until ctx is done or
// cfg.MaxAttempts consecutive attempts fail. The framer is cleared between
// connections so a frame cut by a disconnect is never completed with bytes
// from the next connection.
func (p *Pump) Redial(ctx context.Context, dial DialFunc, cfg BackoffConfig) (Stats, error) {
	var total Stats
	if p.Framer == nil {
		return total, ErrNoFramer
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var lastErr error
		rc, err := dial(ctx)
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Int("attempt", failures+1).Msg("input dial failed")
		} else {
			stats, runErr := p.runConn(ctx, rc)
			total.Reads += stats.Reads
			total.Bytes += stats.Bytes
			p.Framer.Clear()

			if ctxErr := ctx.Err(); ctxErr != nil {
				return total, ctxErr
			}
			if errors.Is(runErr, framer.ErrNoBuffer) || errors.Is(runErr, framer.ErrInvalidSize) {
				return total, runErr
			}
			lastErr = runErr
			if lastErr == nil {
				lastErr = io.EOF
			}
			if stats.Bytes > 0 {
				failures = 0
			}
			log.Warn().Err(lastErr).Uint64("bytes", stats.Bytes).Msg("input disconnected")
		}

		failures++
		if cfg.MaxAttempts > 0 && failures >= cfg.MaxAttempts {
			return total, fmt.Errorf("stream: giving up after %d attempts: %w", failures, lastErr)
		}

		timer := time.NewTimer(NextBackoffDelay(cfg, failures, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return total, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Pump) runConn(ctx context.Context, rc io.ReadCloser) (Stats, error) {
	stop := CloseOnDone(ctx, rc)
	defer stop()
	defer rc.Close()
	return p.Run(ctx, rc)
}
