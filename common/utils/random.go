package utils

import (
	"crypto/rand"
	"fmt"
	"io"
)

// RandReader returns r, or the system CSPRNG when r is nil.
func RandReader(r io.Reader) io.Reader {
	if r == nil {
		return rand.Reader
	}
	return r
}

// RandomBytes reads exactly n bytes from r (system CSPRNG when nil).
func RandomBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(RandReader(r), buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}
