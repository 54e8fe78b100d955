package ytutils

import (
	"strings"
	"sync"
)

// TailBuffer is an io.Writer that keeps only the last bytes written to it.
// It collects the stderr of helper processes for error messages.
type TailBuffer struct {
	mx   sync.Mutex
	size int
	buf  []byte
}

func NewTailBuffer(size int) *TailBuffer {
	return &TailBuffer{size: size, buf: make([]byte, 0, size)}
}

func (tb *TailBuffer) Write(p []byte) (int, error) {
	tb.mx.Lock()
	defer tb.mx.Unlock()

	if len(p) >= tb.size {
		tb.buf = append(tb.buf[:0], p[len(p)-tb.size:]...)
		return len(p), nil
	}
	if over := len(tb.buf) + len(p) - tb.size; over > 0 {
		n := copy(tb.buf, tb.buf[over:])
		tb.buf = tb.buf[:n]
	}
	tb.buf = append(tb.buf, p...)
	return len(p), nil
}

// String returns the kept output without surrounding whitespace.
func (tb *TailBuffer) String() string {
	tb.mx.Lock()
	defer tb.mx.Unlock()
	return strings.TrimSpace(string(tb.buf))
}
