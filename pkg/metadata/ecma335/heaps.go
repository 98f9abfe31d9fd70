// SPDX-License-Identifier: MPL-2.0

package ecma335

import (
	"bytes"
	"fmt"

	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// heaps holds the #Strings and #Blob streams of a module.
type heaps struct {
	strings []byte
	blobs   []byte
}

// str reads the NUL-terminated UTF-8 string at offset i of #Strings.
func (h *heaps) str(i uint32) (string, error) {
	if int64(i) >= int64(len(h.strings)) {
		if i == 0 {
			return "", nil
		}
		return "", fmt.Errorf("%w: string index %#x out of range", metadata.ErrBadFormat, i)
	}
	end := bytes.IndexByte(h.strings[i:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %#x", metadata.ErrBadFormat, i)
	}
	return string(h.strings[i : int(i)+end]), nil
}

// blob reads the length-prefixed blob at offset i of #Blob
// (ECMA-335 II.24.2.4).
func (h *heaps) blob(i uint32) ([]byte, error) {
	if int64(i) >= int64(len(h.blobs)) {
		if i == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: blob index %#x out of range", metadata.ErrBadFormat, i)
	}
	b := h.blobs[i:]
	size, n, ok := compressedUint(b)
	if !ok || uint64(n)+uint64(size) > uint64(len(b)) {
		return nil, fmt.Errorf("%w: truncated blob at %#x", metadata.ErrBadFormat, i)
	}
	if size == 0 {
		return nil, nil
	}
	return b[n : n+int(size)], nil
}

// compressedUint decodes an ECMA-335 compressed unsigned integer and
// returns the value and the number of bytes it occupied.
func compressedUint(b []byte) (v uint32, n int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	switch {
	case b[0]&0x80 == 0:
		return uint32(b[0]), 1, true
	case b[0]&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, false
		}
		return uint32(b[0]&0x3F)<<8 | uint32(b[1]), 2, true
	case b[0]&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, false
		}
		return uint32(b[0]&0x1F)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4, true
	default:
		return 0, 0, false
	}
}
