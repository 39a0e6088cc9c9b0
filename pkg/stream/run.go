package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

var errStopped = errors.New("stream: consumer stopped")

// Chunks returns a lazy sequence over the chunks read from r. The sequence
// reads only as fast as it is consumed and yields chunks in arrival order.
//
// When the transport fails, or ctx is done between reads, the sequence yields
// one final (Chunk{}, err) pair and ends. Reaching EOF ends it without an
// error. Cancelling ctx does not interrupt a read that is already blocked.
//
// Example:
//
//	dec := stream.NewDecoder(stream.DecoderOptions{})
//	for chunk, err := range dec.Chunks(ctx, body) {
//		if err != nil {
//			return err
//		}
//		handle(chunk)
//	}
func (d *Decoder) Chunks(ctx context.Context, r io.Reader) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		emit := func(c Chunk) error {
			if !yield(c, nil) {
				return errStopped
			}
			return nil
		}

		buf := make([]byte, d.opts.ReadSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(Chunk{}, err)
				return
			}

			n, err := r.Read(buf)
			if n > 0 {
				if cerr := d.Consume(buf[:n], emit); cerr != nil {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				_ = d.Flush(emit)
				return
			}
			if err != nil {
				yield(Chunk{}, fmt.Errorf("failed to read stream: %w", err))
				return
			}
		}
	}
}

// Events receives the outcome of Run. Exactly one of OnComplete or OnError is
// called, once, after the last OnChunk.
type Events struct {
	OnChunk    func(Chunk) error
	OnComplete func()
	OnError    func(error)
}

// Run decodes r to the end and reports each chunk and the terminal outcome
// through events. An error returned by OnChunk ends the run as a failure.
// The returned error is the one passed to OnError, or nil on completion.
func Run(ctx context.Context, r io.Reader, opts DecoderOptions, events Events) (Stats, error) {
	d := NewDecoder(opts)

	fail := func(err error) (Stats, error) {
		if events.OnError != nil {
			events.OnError(err)
		}
		return d.Stats(), err
	}

	for chunk, err := range d.Chunks(ctx, r) {
		if err != nil {
			return fail(err)
		}
		if events.OnChunk == nil {
			continue
		}
		if err := events.OnChunk(chunk); err != nil {
			return fail(err)
		}
	}

	if events.OnComplete != nil {
		events.OnComplete()
	}
	return d.Stats(), nil
}
