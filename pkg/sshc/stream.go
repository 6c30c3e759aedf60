package sshc

import (
	"bytes"
	"io"
	"sync"
)

// StreamKind tags how an output stream of a Command is bound.
type StreamKind int

const (
	// Buffered collects the output in memory, readable after Execute.
	Buffered StreamKind = iota
	// Aliased writes stderr to whatever stdout is bound to.
	Aliased
	// External writes to a caller supplied io.Writer.
	External
)

func (k StreamKind) String() string {
	switch k {
	case Buffered:
		return "buffered"
	case Aliased:
		return "aliased"
	case External:
		return "external"
	}
	return "unknown"
}

// syncBuffer is a bytes.Buffer safe for the concurrent stdout and stderr
// copiers of an exec channel.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// lockedWriter serializes writes to a shared external sink.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

type binding struct {
	kind StreamKind
	buf  *syncBuffer
	w    io.Writer
}

func bufferedBinding() binding {
	return binding{kind: Buffered, buf: &syncBuffer{}}
}

// externalBinding binds w; a nil w discards the stream.
func externalBinding(w io.Writer) binding {
	if w == nil {
		w = io.Discard
	}
	return binding{kind: External, w: w}
}

func (b binding) writer() io.Writer {
	if b.kind == Buffered {
		return b.buf
	}
	return b.w
}

func (b binding) text() (string, error) {
	if b.kind != Buffered {
		return "", ErrNotBuffered
	}
	return b.buf.String(), nil
}
