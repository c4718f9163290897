// Package cobs implements Consistent Overhead Byte Stuffing.
//
// Escaped data never contains the zero byte, so a single 0x00 can be used as an unambiguous
// frame delimiter. The overhead is at most one byte per 254 bytes of input.
package cobs

import (
	"bytes"
	"errors"
)

var (
	// ErrZeroByte is returned by [Decode] when the input contains a zero byte.
	ErrZeroByte = errors.New("cobs: unexpected zero byte")
	// ErrTruncated is returned by [Decode] when a block is shorter than its code claims.
	ErrTruncated = errors.New("cobs: truncated block")
)

const maxBlock = 0xFF

// MaxEncodedLen returns the largest possible length of n escaped bytes.
func MaxEncodedLen(n int) int {
	if n == 0 {
		return 0
	}
	return n + (n+253)/254
}

// Append escapes src and appends the result to dst.
//
// Empty input produces no output.
func Append(dst, src []byte) []byte {
	if len(src) == 0 {
		return dst
	}

	codeIdx := len(dst)
	dst = append(dst, 0)
	code := byte(1)

	for i, b := range src {
		if b != 0 {
			dst = append(dst, b)
			code++
		}
		if b != 0 && code != maxBlock {
			continue
		}

		dst[codeIdx] = code
		code = 1
		codeIdx = -1
		// A full block at the very end doesn't need a trailing empty block.
		if b == 0 || i < len(src)-1 {
			codeIdx = len(dst)
			dst = append(dst, 0)
		}
	}

	if codeIdx >= 0 {
		dst[codeIdx] = code
	}

	return dst
}

// Decode unescapes src and appends the result to dst.
//
// Both empty input and a single empty block (0x01) decode to nothing.
func Decode(dst, src []byte) ([]byte, error) {
	if bytes.IndexByte(src, 0) >= 0 {
		return dst, ErrZeroByte
	}

	for i := 0; i < len(src); {
		code := int(src[i])
		i++

		end := i + code - 1
		if end > len(src) {
			return dst, ErrTruncated
		}
		dst = append(dst, src[i:end]...)
		i = end

		if code != maxBlock && i < len(src) {
			dst = append(dst, 0)
		}
	}

	return dst, nil
}
