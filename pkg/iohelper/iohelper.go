// Package iohelper provides bounded reads for response bodies.
package iohelper

import (
	"io"

	"github.com/pocscan/pocscan/pkg/defaults"
)

// ReadBody reads from r up to maxSize bytes.
// If r is nil, returns empty slice and no error.
// truncated reports whether more data remained past the limit.
func ReadBody(r io.Reader, maxSize int64) (data []byte, truncated bool, err error) {
	if r == nil {
		return []byte{}, false, nil
	}
	if maxSize <= 0 {
		maxSize = defaults.MaxBodySize
	}
	// One extra byte tells a body that exactly fits apart from one that overflows.
	data, err = io.ReadAll(io.LimitReader(r, maxSize+1))
	if int64(len(data)) > maxSize {
		return data[:maxSize], true, err
	}
	return data, false, err
}
