package stream

import (
	"bytes"

	"github.com/OFFIS-RIT/ownernet/internal/util"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"

	"github.com/kaptinlin/jsonrepair"
)

const (
	DefaultMaxLineBytes = 16 << 20
	DefaultReadSize     = 32 << 10
)

// MalformedLine describes a line that was dropped because it is not a JSON
// object.
type MalformedLine struct {
	Line int
	Text string
	Err  error
}

// DecoderOptions configures a Decoder.
//
// RepairLines lets the decoder run a malformed line through jsonrepair once
// before dropping it. MaxLineBytes bounds how much of a single unterminated
// line is buffered; a longer line is dropped. ReadSize is the transport read
// size used by Chunks and Run. OnMalformed, if set, is called for every
// dropped line.
type DecoderOptions struct {
	RepairLines  bool
	MaxLineBytes int
	ReadSize     int
	OnMalformed  func(MalformedLine)
}

// Stats counts what a Decoder has seen so far.
type Stats struct {
	Lines          int `json:"lines"`
	Chunks         int `json:"chunks"`
	Malformed      int `json:"malformed"`
	Repaired       int `json:"repaired"`
	Oversized      int `json:"oversized"`
	SkippedRecords int `json:"skipped_records"`
}

// Decoder turns fragments of a newline-delimited JSON stream into chunks.
// Fragments may split lines anywhere; the incomplete tail is held back until
// the rest arrives.
//
// A Decoder is owned by a single load and is not safe for concurrent use.
type Decoder struct {
	opts       DecoderOptions
	buffer     []byte
	discarding bool
	line       int
	stats      Stats
}

// NewDecoder creates a Decoder with the given options. Zero values select the
// defaults.
func NewDecoder(opts DecoderOptions) *Decoder {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = DefaultMaxLineBytes
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = DefaultReadSize
	}
	return &Decoder{opts: opts}
}

// Stats returns the counters collected so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Consume appends fragment to the buffer and emits a chunk for every complete
// line, in order. Malformed lines are reported and skipped. An error returned
// by emit stops consumption and is returned unchanged.
func (d *Decoder) Consume(fragment []byte, emit func(Chunk) error) error {
	d.buffer = append(d.buffer, fragment...)

	start := 0
	for {
		idx := bytes.IndexByte(d.buffer[start:], '\n')
		if idx == -1 {
			break
		}
		line := d.buffer[start : start+idx]
		start += idx + 1

		if d.discarding {
			d.discarding = false
			d.line++
			continue
		}
		if err := d.handleLine(line, emit); err != nil {
			d.buffer = append(d.buffer[:0], d.buffer[start:]...)
			return err
		}
	}
	d.buffer = append(d.buffer[:0], d.buffer[start:]...)

	if len(d.buffer) > d.opts.MaxLineBytes {
		if !d.discarding {
			d.stats.Oversized++
			logger.Warn("[Stream] Dropping oversized line", "line", d.line+1, "limit", d.opts.MaxLineBytes)
		}
		d.discarding = true
		d.buffer = d.buffer[:0]
	}

	return nil
}

// Flush handles a final line that was not terminated by a newline. It must
// be called once the stream has ended.
func (d *Decoder) Flush(emit func(Chunk) error) error {
	if d.discarding {
		d.discarding = false
		d.line++
		d.buffer = d.buffer[:0]
		return nil
	}
	if len(d.buffer) == 0 {
		return nil
	}
	line := d.buffer
	d.buffer = nil
	return d.handleLine(line, emit)
}

func (d *Decoder) handleLine(raw []byte, emit func(Chunk) error) error {
	d.line++
	text := util.SanitizeText(string(bytes.TrimSpace(raw)))
	if text == "" {
		return nil
	}
	d.stats.Lines++

	chunk, err := parseChunk([]byte(text))
	if err != nil && d.opts.RepairLines {
		if repaired, rerr := jsonrepair.JSONRepair(text); rerr == nil {
			if c, perr := parseChunk([]byte(repaired)); perr == nil {
				chunk, err = c, nil
				d.stats.Repaired++
				logger.Debug("[Stream] Repaired malformed line", "line", d.line)
			}
		}
	}
	if err != nil {
		d.stats.Malformed++
		logger.Warn("[Stream] Dropping malformed line", "line", d.line, "err", err)
		if d.opts.OnMalformed != nil {
			d.opts.OnMalformed(MalformedLine{Line: d.line, Text: text, Err: err})
		}
		return nil
	}

	if !chunk.Known() {
		logger.Debug("[Stream] Ignoring chunk of unknown type", "line", d.line, "type", chunk.Type)
	}
	if chunk.Skipped > 0 {
		d.stats.SkippedRecords += chunk.Skipped
		logger.Warn("[Stream] Skipped undecodable records", "line", d.line, "type", chunk.Type, "count", chunk.Skipped)
	}

	chunk.Line = d.line
	d.stats.Chunks++
	return emit(chunk)
}
