// ABOUTME: Byte ring buffer between the network and the render goroutine
// ABOUTME: Writers wait for space; readers either wait or take what is there
package stream

import (
	"io"
	"sync"
)

// RingBuffer provides a thread-safe circular buffer of audio bytes
type RingBuffer struct {
	buffer   []byte
	readPos  int
	writePos int
	size     int
	count    int // Number of bytes currently in buffer
	align    int // ReadAvailable returns multiples of this many bytes
	closed   bool
	err      error // Returned to readers once drained after close

	mu   sync.Mutex
	cond *sync.Cond
}

// NewRingBuffer creates a ring buffer with given capacity in bytes
func NewRingBuffer(capacity int) *RingBuffer {
	rb := &RingBuffer{
		buffer: make([]byte, capacity),
		size:   capacity,
		align:  1,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write adds all of p, waiting for space as needed.
// It fails with io.ErrClosedPipe once the buffer is closed.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(p) {
		for rb.count == rb.size && !rb.closed {
			rb.cond.Wait()
		}
		if rb.closed {
			return written, io.ErrClosedPipe
		}
		for written < len(p) && rb.count < rb.size {
			rb.buffer[rb.writePos] = p[written]
			rb.writePos = (rb.writePos + 1) % rb.size
			rb.count++
			written++
		}
		rb.cond.Broadcast()
	}
	return written, nil
}

// Read waits for at least one byte and returns what is available.
// After Close it returns the remaining bytes, then io.EOF or the error
// given to CloseWithError.
func (rb *RingBuffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 && !rb.closed {
		rb.cond.Wait()
	}
	if rb.count == 0 {
		return 0, rb.err
	}
	return rb.take(p, rb.count), nil
}

// ReadAvailable copies whatever is buffered into p without waiting. While
// the buffer is open it only returns whole multiples of the alignment, so an
// empty result with a nil error is an underrun. Once closed and drained it
// returns io.EOF or the close error.
func (rb *RingBuffer) ReadAvailable(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count == 0 {
		if rb.closed {
			return 0, rb.err
		}
		return 0, nil
	}

	n := min(len(p), rb.count)
	if !rb.closed {
		n -= n % rb.align
	}
	if n == 0 {
		return 0, nil
	}
	return rb.take(p, n), nil
}

// take moves up to n bytes into p. The caller holds mu.
func (rb *RingBuffer) take(p []byte, n int) int {
	read := 0
	for read < len(p) && read < n {
		p[read] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}
	rb.cond.Broadcast()
	return read
}

// SetAlignment makes ReadAvailable hand out whole frames of n bytes
func (rb *RingBuffer) SetAlignment(n int) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if n < 1 {
		n = 1
	}
	rb.align = n
}

// Close ends the stream; readers drain what is left, then see io.EOF
func (rb *RingBuffer) Close() error {
	return rb.CloseWithError(nil)
}

// CloseWithError ends the stream; readers drain what is left, then see err.
// A nil err means a clean end. Only the first close counts.
func (rb *RingBuffer) CloseWithError(err error) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closed {
		return nil
	}
	if err == nil {
		err = io.EOF
	}
	rb.closed = true
	rb.err = err
	rb.cond.Broadcast()
	return nil
}

// Available returns the number of bytes available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Free returns the number of free bytes in the buffer
func (rb *RingBuffer) Free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}
