package journal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
)

// Kind names the state transition an entry records.
type Kind string

const (
	KindPriceAppend   Kind = "price.append"
	KindReserveAppend Kind = "reserve.append"
	KindReserveAmend  Kind = "reserve.amend"
)

// Entry captures one committed transition. Amounts are raw integer strings.
type Entry struct {
	Seq         uint64    `json:"seq" msgpack:"seq"`
	Kind        Kind      `json:"kind" msgpack:"kind"`
	Key         string    `json:"key,omitempty" msgpack:"key,omitempty"`
	RoundID     uint64    `json:"round_id,omitempty" msgpack:"round_id,omitempty"`
	Counter     uint64    `json:"counter,omitempty" msgpack:"counter,omitempty"`
	Price       string    `json:"price,omitempty" msgpack:"price,omitempty"`
	Quote       string    `json:"quote,omitempty" msgpack:"quote,omitempty"`
	Base        string    `json:"base,omitempty" msgpack:"base,omitempty"`
	Timestamp   uint64    `json:"timestamp" msgpack:"timestamp"`
	BlockHeight uint64    `json:"block_height,omitempty" msgpack:"block_height,omitempty"`
	RecordedAt  time.Time `json:"recorded_at" msgpack:"recorded_at"`
}

// Writer appends entries to a single msgpack stream file.
type Writer struct {
	mu    sync.Mutex
	path  string
	f     *os.File
	seq   uint64
	size  int64
	nowFn func() time.Time
}

// Open opens (or creates) the journal at path and resumes its sequence.
func Open(path string) (*Writer, error) {
	if path == "" {
		return nil, errors.New("journal: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir: %w", err)
	}
	var last uint64
	end, err := scan(path, func(e Entry) error {
		last = e.Seq
		return nil
	})
	switch {
	case err == nil, errors.Is(err, os.ErrNotExist):
	case errors.Is(err, io.ErrUnexpectedEOF):
		// A crash mid-append leaves a partial entry; drop it so new entries
		// follow the last complete one.
		if terr := os.Truncate(path, end); terr != nil {
			return nil, fmt.Errorf("journal: truncate torn tail of %s: %w", path, terr)
		}
		logx.Infof("journal: truncated torn entry in %s at offset %d (last seq %d)", path, end, last)
	default:
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Writer{path: path, f: f, seq: last, size: end, nowFn: time.Now}, nil
}

// Path returns the journal file location.
func (w *Writer) Path() string { return w.path }

// Seq returns the sequence number of the last written entry.
func (w *Writer) Seq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Write stamps e with the next sequence number and appends it.
func (w *Writer) Write(e *Entry) (uint64, error) {
	if e == nil {
		return 0, fmt.Errorf("journal: nil entry")
	}
	seqs, err := w.WriteBatch([]*Entry{e})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

// WriteBatch stamps and appends entries with a single write. On failure the
// file is cut back to its previous length, so either every entry lands or
// none does.
func (w *Writer) WriteBatch(entries []*Entry) ([]uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil, errors.New("journal: writer closed")
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	stamped := make([]Entry, len(entries))
	seqs := make([]uint64, len(entries))
	for i, e := range entries {
		if e == nil {
			return nil, fmt.Errorf("journal: nil entry")
		}
		rec := *e
		rec.Seq = w.seq + uint64(i) + 1
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = w.nowFn().UTC()
		}
		if err := enc.Encode(&rec); err != nil {
			return nil, fmt.Errorf("journal: encode: %w", err)
		}
		stamped[i] = rec
		seqs[i] = rec.Seq
	}
	if _, err := w.f.Write(buf.Bytes()); err != nil {
		if terr := w.f.Truncate(w.size); terr != nil {
			logx.Errorf("journal: roll back %s to %d: %v", w.path, w.size, terr)
		}
		return nil, fmt.Errorf("journal: write: %w", err)
	}
	w.size += int64(buf.Len())
	for i, e := range entries {
		*e = stamped[i]
	}
	if n := len(seqs); n > 0 {
		w.seq = seqs[n-1]
	}
	return seqs, nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Sync()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	w.f = nil
	return err
}

// Replay decodes every entry in path in order and hands it to fn, stopping
// at the first error fn returns. A partial trailing entry is reported as
// io.ErrUnexpectedEOF after every complete entry has been delivered.
func Replay(path string, fn func(Entry) error) error {
	_, err := scan(path, fn)
	return err
}

// scan is Replay that also returns the offset just past the last complete
// entry.
func scan(path string, fn func(Entry) error) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("journal: %w", err)
	}
	defer f.Close()

	r := &countingReader{r: bufio.NewReader(f)}
	dec := msgpack.NewDecoder(r)
	for {
		start := r.n
		var e Entry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) && r.n == start {
				return start, nil
			}
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return start, fmt.Errorf("journal: decode %s: %w", path, err)
		}
		if err := fn(e); err != nil {
			return r.n, err
		}
	}
}

// countingReader tracks how many bytes the decoder has consumed. It
// implements io.ByteScanner so msgpack reads it directly instead of adding
// its own read-ahead buffer.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

func (c *countingReader) UnreadByte() error {
	if err := c.r.UnreadByte(); err != nil {
		return err
	}
	c.n--
	return nil
}
