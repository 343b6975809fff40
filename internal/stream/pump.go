package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/packetizer/internal/protocol/framer"
)

const DefaultChunkSize = 256

var ErrNoFramer = errors.New("stream: no framer")

// Stats counts what a pump moved into its framer.
type Stats struct {
	Reads uint64
	Bytes uint64
}

// Pump drains a reader into a Framer in chunks.
type Pump struct {
	Framer    *framer.Framer
	ChunkSize int

	// OnChunk, when set, is called after each chunk has been framed.
	OnChunk func(n int)
}

// Run reads until EOF, a read error or ctx is done. EOF is a clean stop and
// returns a nil error. Cancellation is observed between reads; a reader that
// blocks must be unblocked by the caller, see CloseOnDone.
func (p *Pump) Run(ctx context.Context, r io.Reader) (Stats, error) {
	var stats Stats
	if p.Framer == nil {
		return stats, ErrNoFramer
	}
	size := p.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			stats.Reads++
			stats.Bytes += uint64(n)
			if ferr := p.Framer.Append(buf[:n]); ferr != nil {
				return stats, fmt.Errorf("stream: append: %w", ferr)
			}
			if p.OnChunk != nil {
				p.OnChunk(n)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			return stats, fmt.Errorf("stream: read: %w", err)
		}
	}
}

// CloseOnDone closes c once ctx is done, unblocking a pending Read. The
// returned stop func detaches it.
func CloseOnDone(ctx context.Context, c io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
}
