package background

import "sync"

// ringBuffer keeps the most recent max bytes of a stream. Writes past the cap
// drop the oldest bytes and set the truncated flag. Offsets are absolute over
// the lifetime of the stream so readers can resume where they left off even
// after a drop.
type ringBuffer struct {
	mu        sync.Mutex
	max       int64
	data      []byte
	start     int64 // absolute offset of data[0]
	truncated bool
}

func newRingBuffer(max int64) *ringBuffer {
	return &ringBuffer{max: max}
}

// Write implements io.Writer and never fails; overflow evicts from the front.
func (b *ringBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := int64(len(b.data)) + int64(len(p)) - b.max
	if int64(len(p)) >= b.max {
		// The write alone fills the buffer; keep only its tail.
		b.data = append(b.data[:0], p[len(p)-int(b.max):]...)
	} else {
		b.data = append(b.data, p...)
		if dropped > 0 {
			b.data = b.data[dropped:]
		}
	}
	if dropped > 0 {
		b.start += dropped
		b.truncated = true
	}
	return len(p), nil
}

// ReadFrom returns bytes at absolute offset and after, plus the next offset
// to read from. Offsets that fell off the front resume at the buffer head.
func (b *ringBuffer) ReadFrom(offset int64) ([]byte, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	end := b.start + int64(len(b.data))
	if offset >= end {
		return nil, end
	}
	if offset < b.start {
		offset = b.start
	}
	out := make([]byte, end-offset)
	copy(out, b.data[offset-b.start:])
	return out, end
}

// Tail returns up to n trailing lines of the buffered content.
func (b *ringBuffer) Tail(n int) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || len(b.data) == 0 {
		return string(b.data)
	}
	seen := 0
	i := len(b.data)
	for i > 0 {
		j := i - 1
		if b.data[j] == '\n' && i != len(b.data) {
			seen++
			if seen == n {
				return string(b.data[i:])
			}
		}
		i--
	}
	return string(b.data)
}

// Truncated reports whether any bytes have been dropped.
func (b *ringBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
