package core

import (
	"io"
	"sync/atomic"
)

// CountingReader wraps an io.Reader to track bytes read.
// Used for progress reporting while a file streams to the comparison service.
type CountingReader struct {
	reader   io.Reader
	read     atomic.Int64
	Total    int64 // If known (0 if unknown)
	onUpdate ProgressFunc
}

// NewCountingReader creates a counting reader with optional total size.
// onUpdate may be nil.
func NewCountingReader(r io.Reader, total int64, onUpdate ProgressFunc) *CountingReader {
	return &CountingReader{
		reader:   r,
		Total:    total,
		onUpdate: onUpdate,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		sent := r.read.Add(int64(n))
		if r.onUpdate != nil {
			r.onUpdate(sent, r.Total)
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *CountingReader) BytesRead() int64 {
	return r.read.Load()
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	pct := int(r.read.Load() * 100 / r.Total)
	if pct > 100 {
		return 100
	}
	return pct
}
