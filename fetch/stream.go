package fetch

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"sync"
)

// DefaultChunkSize bounds the chunks pulled from an io.Reader source.
const DefaultChunkSize = 32 * 1024

var (
	// ErrLocked is returned by GetReader when another reader holds the stream.
	ErrLocked = errors.New("fetch: stream is locked to a reader")
	// ErrReleased is returned by Next after the reader released its claim.
	ErrReleased = errors.New("fetch: reader has been released")
)

// Stream is a pull-based byte stream. A single StreamReader may claim it
// at a time; chunks are produced only when the reader asks for the next
// one, so a slow consumer never causes buffering on the producer side.
type Stream struct {
	mu     sync.Mutex
	pull   func() ([]byte, error)
	cancel func() error
	locked bool
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewStream adapts an io.Reader without reading it. When r is an io.Closer
// it is closed by Close.
func NewStream(r io.Reader) *Stream {
	src := &readerSource{r: r, buf: make([]byte, DefaultChunkSize)}
	s := &Stream{pull: src.next}
	if c, ok := r.(io.Closer); ok {
		s.cancel = c.Close
	}
	return s
}

// NewBytesStream returns a finite stream yielding b as a single chunk.
func NewBytesStream(b []byte) *Stream {
	if len(b) == 0 {
		return NewChunkStream()
	}
	return NewChunkStream(b)
}

// TextStream is NewBytesStream for a string.
func TextStream(s string) *Stream {
	return NewBytesStream([]byte(s))
}

// NewChunkStream returns a stream yielding each chunk in order. Empty
// chunks are skipped.
func NewChunkStream(chunks ...[]byte) *Stream {
	i := 0
	return &Stream{pull: func() ([]byte, error) {
		for i < len(chunks) {
			c := chunks[i]
			i++
			if len(c) > 0 {
				return c, nil
			}
		}
		return nil, io.EOF
	}}
}

// NewSeqStream wraps a chunk sequence. The sequence is advanced one chunk
// per pull and stopped by Close, which lets a producer goroutine unwind.
func NewSeqStream(seq iter.Seq2[[]byte, error]) *Stream {
	next, stop := iter.Pull2(seq)
	return &Stream{
		pull: func() ([]byte, error) {
			for {
				chunk, err, ok := next()
				if !ok {
					return nil, io.EOF
				}
				if err != nil {
					return nil, err
				}
				if len(chunk) > 0 {
					return chunk, nil
				}
			}
		},
		cancel: func() error {
			stop()
			return nil
		},
	}
}

// GetReader claims the stream. It fails with ErrLocked while another
// reader holds the claim.
func (s *Stream) GetReader() (*StreamReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil, ErrLocked
	}
	s.locked = true
	return &StreamReader{s: s}, nil
}

// Locked reports whether a reader currently holds the stream.
func (s *Stream) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Close cancels the stream and closes the underlying source. It is safe
// to call more than once; only the first call reaches the source.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.cancel != nil {
			s.closeErr = s.cancel()
		}
	})
	return s.closeErr
}

// Bytes drains the stream into memory.
func (s *Stream) Bytes() ([]byte, error) {
	rd, err := s.GetReader()
	if err != nil {
		return nil, err
	}
	defer rd.Release()

	var buf bytes.Buffer
	for {
		chunk, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return buf.Bytes(), err
		}
		buf.Write(chunk)
	}
}

// StreamReader holds the claim on a Stream.
type StreamReader struct {
	s        *Stream
	once     sync.Once
	released bool
}

// Next pulls the next chunk. It returns io.EOF once the source is
// exhausted or the stream was closed. The returned slice is only valid
// until the following call.
func (r *StreamReader) Next() ([]byte, error) {
	r.s.mu.Lock()
	if r.released {
		r.s.mu.Unlock()
		return nil, ErrReleased
	}
	if r.s.closed {
		r.s.mu.Unlock()
		return nil, io.EOF
	}
	r.s.mu.Unlock()

	return r.s.pull()
}

// Release gives the claim back to the stream. Only the first call has an
// effect.
func (r *StreamReader) Release() {
	r.once.Do(func() {
		r.s.mu.Lock()
		r.released = true
		r.s.locked = false
		r.s.mu.Unlock()
	})
}

type readerSource struct {
	r   io.Reader
	buf []byte
	err error
}

func (rs *readerSource) next() ([]byte, error) {
	if rs.err != nil {
		return nil, rs.err
	}
	for empty := 0; empty < 100; empty++ {
		n, err := rs.r.Read(rs.buf)
		if err != nil {
			rs.err = err
		}
		if n > 0 {
			return rs.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	rs.err = io.ErrNoProgress
	return nil, rs.err
}
