package logging

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the number of pending lines an AsyncWriter holds
// before it starts dropping.
const DefaultBufferSize = 1024

// AsyncWriter hands each Write to a background goroutine through a bounded
// queue. When the queue is full the line is dropped and counted; Write never
// blocks on the underlying output.
type AsyncWriter struct {
	out     io.Writer
	closers []io.Closer
	lines   chan []byte
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewAsyncWriter starts the drain goroutine for out. The closers are closed
// after the queue drains in Close.
func NewAsyncWriter(out io.Writer, size int, closers ...io.Closer) *AsyncWriter {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if out == nil {
		out = io.Discard
	}
	w := &AsyncWriter{
		out:     out,
		closers: closers,
		lines:   make(chan []byte, size),
		done:    make(chan struct{}),
	}
	go w.drain()
	return w
}

func (w *AsyncWriter) drain() {
	defer close(w.done)
	for line := range w.lines {
		_, _ = w.out.Write(line)
	}
}

// Write queues a copy of p. It reports success even when the line is dropped.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped.Add(1)
		return len(p), nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	select {
	case w.lines <- line:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped returns the number of lines discarded so far.
func (w *AsyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Close stops accepting lines, waits for the queue to drain and closes the
// underlying outputs.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.lines)
	w.mu.Unlock()

	<-w.done

	var errs []error
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
