package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

type fragmentReader struct {
	parts []string
	err   error
}

func (r *fragmentReader) Read(p []byte) (int, error) {
	if len(r.parts) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.parts[0])
	if n < len(r.parts[0]) {
		r.parts[0] = r.parts[0][n:]
	} else {
		r.parts = r.parts[1:]
	}
	return n, nil
}

func TestChunksYieldsInOrder(t *testing.T) {
	body := entitiesLineJSON + "\n" + propertiesLineJSON + "\n"
	d := NewDecoder(DecoderOptions{ReadSize: 7})

	var types []ChunkType
	for chunk, err := range d.Chunks(context.Background(), strings.NewReader(body)) {
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		types = append(types, chunk.Type)
	}
	if len(types) != 2 || types[0] != ChunkTypeEntities || types[1] != ChunkTypeProperties {
		t.Fatalf("types = %v", types)
	}
}

func TestChunksEarlyBreak(t *testing.T) {
	body := strings.Repeat(entitiesLineJSON+"\n", 5)
	d := NewDecoder(DecoderOptions{})

	seen := 0
	for _, err := range d.Chunks(context.Background(), strings.NewReader(body)) {
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Fatalf("seen = %d, want 2", seen)
	}
}

func TestChunksStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fragmentReader{parts: []string{entitiesLineJSON + "\n", propertiesLineJSON + "\n"}}

	d := NewDecoder(DecoderOptions{})
	var chunks int
	var lastErr error
	for _, err := range d.Chunks(ctx, r) {
		if err != nil {
			lastErr = err
			continue
		}
		chunks++
		cancel()
	}
	if chunks != 1 {
		t.Fatalf("chunks = %d, want 1", chunks)
	}
	if !errors.Is(lastErr, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", lastErr)
	}
}

func TestRunCompletesOnce(t *testing.T) {
	r := &fragmentReader{parts: []string{entitiesLineJSON[:20], entitiesLineJSON[20:] + "\n" + propertiesLineJSON}}

	var chunks, completes, failures int
	stats, err := Run(context.Background(), r, DecoderOptions{}, Events{
		OnChunk:    func(Chunk) error { chunks++; return nil },
		OnComplete: func() { completes++ },
		OnError:    func(error) { failures++ },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if chunks != 2 || completes != 1 || failures != 0 {
		t.Fatalf("chunks=%d completes=%d failures=%d", chunks, completes, failures)
	}
	if stats.Chunks != 2 {
		t.Fatalf("stats.Chunks = %d, want 2", stats.Chunks)
	}
}

func TestRunReportsTransportFailureOnce(t *testing.T) {
	broken := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(entitiesLineJSON+"\n"), iotest.ErrReader(broken))

	var chunks, completes int
	var got []error
	_, err := Run(context.Background(), r, DecoderOptions{}, Events{
		OnChunk:    func(Chunk) error { chunks++; return nil },
		OnComplete: func() { completes++ },
		OnError:    func(err error) { got = append(got, err) },
	})
	if !errors.Is(err, broken) {
		t.Fatalf("Run() error = %v, want %v", err, broken)
	}
	if chunks != 1 || completes != 0 || len(got) != 1 {
		t.Fatalf("chunks=%d completes=%d errors=%v", chunks, completes, got)
	}
}

func TestRunStopsOnChunkError(t *testing.T) {
	reject := errors.New("reject")
	body := entitiesLineJSON + "\n" + propertiesLineJSON + "\n"

	var chunks, failures int
	_, err := Run(context.Background(), strings.NewReader(body), DecoderOptions{}, Events{
		OnChunk: func(Chunk) error { chunks++; return reject },
		OnError: func(error) { failures++ },
	})
	if !errors.Is(err, reject) {
		t.Fatalf("Run() error = %v, want reject", err)
	}
	if chunks != 1 || failures != 1 {
		t.Fatalf("chunks=%d failures=%d", chunks, failures)
	}
}
