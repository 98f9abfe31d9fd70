// SPDX-License-Identifier: MPL-2.0

package identity

import "encoding/hex"

// BytesToHex encodes b as lowercase hexadecimal, two characters per byte.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// HexToBytes decodes a hex string produced by BytesToHex.
//
// The input is not validated: callers only pass well-formed strings. A
// trailing odd nibble is dropped and non-hex characters decode to garbage
// rather than an error.
func HexToBytes(s string) []byte {
	out := make([]byte, len(s)>>1)
	for i := range out {
		out[i] = nibble(s[i<<1])<<4 | nibble(s[i<<1+1])
	}
	return out
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return c & 0x0f
	}
}
