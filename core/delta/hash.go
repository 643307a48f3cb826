// Package delta implements the rolling-hash, content-defined-chunking
// codec used to shrink blob-valued RBU update records: given a source
// byte string and a target byte string, Create produces a compact delta
// that Apply can later replay against the same source to reconstruct the
// target.
//
// The format and matching algorithm are copied verbatim (window size,
// hash function, search-limit heuristic, base-64 alphabet) from the
// encoder this package replaces; only Apply - the decoder - is new, the
// original having no need for one since it only ever emitted deltas into
// RBU records for SQLite's own applyupdate() extension to consume.
package delta

// windowSize is the width of the rolling hash window in bytes. The
// algorithm requires this to be a power of two.
const windowSize = 16

// hashState is the rolling hash described in fossil's delta codec: a is
// the sum of the window bytes, b is a position-weighted sum, both mod
// 2^16. Combining the two into a 32-bit value gives a hash sensitive to
// byte order, not just byte content.
type hashState struct {
	a, b uint16
	i    uint16
	z    [windowSize]byte
}

// initHash seeds the rolling hash from the first windowSize bytes of z.
func initHash(z []byte) hashState {
	var h hashState
	var a, b uint16
	for i := 0; i < windowSize; i++ {
		c := z[i]
		a += uint16(c)
		b += uint16(windowSize-i) * uint16(c)
		h.z[i] = c
	}
	h.a = a
	h.b = b
	h.i = 0
	return h
}

// next advances the window by one byte, dropping the oldest byte and
// admitting c.
func (h *hashState) next(c byte) {
	old := h.z[h.i]
	h.z[h.i] = c
	h.i = (h.i + 1) & (windowSize - 1)
	h.a = h.a - uint16(old) + uint16(c)
	h.b = h.b - windowSize*uint16(old) + h.a
}

// value returns the current 32-bit hash.
func (h *hashState) value() uint32 {
	return uint32(h.a) | uint32(h.b)<<16
}

// Checksum computes the 32-bit checksum fossil deltas append as their
// trailing verification record.
func Checksum(data []byte) uint32 {
	var sum0, sum1, sum2, sum3 uint32
	z := data
	n := len(z)
	for n >= 16 {
		sum0 += uint32(z[0]) + uint32(z[4]) + uint32(z[8]) + uint32(z[12])
		sum1 += uint32(z[1]) + uint32(z[5]) + uint32(z[9]) + uint32(z[13])
		sum2 += uint32(z[2]) + uint32(z[6]) + uint32(z[10]) + uint32(z[14])
		sum3 += uint32(z[3]) + uint32(z[7]) + uint32(z[11]) + uint32(z[15])
		z = z[16:]
		n -= 16
	}
	for n >= 4 {
		sum0 += uint32(z[0])
		sum1 += uint32(z[1])
		sum2 += uint32(z[2])
		sum3 += uint32(z[3])
		z = z[4:]
		n -= 4
	}
	sum3 += (sum2 << 8) + (sum1 << 16) + (sum0 << 24)
	switch n {
	case 3:
		sum3 += uint32(z[2]) << 8
		fallthrough
	case 2:
		sum3 += uint32(z[1]) << 16
		fallthrough
	case 1:
		sum3 += uint32(z[0]) << 24
	}
	return sum3
}

// base64Digits is the delta codec's own digit alphabet; it is not
// standard base64 since it must sort byte-for-byte the same as the
// integers it encodes within a literal text segment.
const base64Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz~"

var base64Values [256]int8

func init() {
	for i := range base64Values {
		base64Values[i] = -1
	}
	for i, c := range base64Digits {
		base64Values[c] = int8(i)
	}
}

// EncodeInt renders v in the delta codec's base-64 alphabet, most
// significant digit first, with no leading zero digits (except for the
// value zero itself, which encodes as "0").
func EncodeInt(v uint32) []byte {
	if v == 0 {
		return []byte{'0'}
	}
	var buf [11]byte
	i := 0
	for ; v > 0; v >>= 6 {
		buf[i] = base64Digits[v&0x3f]
		i++
	}
	out := make([]byte, i)
	for j := 0; j < i; j++ {
		out[j] = buf[i-1-j]
	}
	return out
}

// DigitCount returns the number of base-64 digits EncodeInt would emit
// for v.
func DigitCount(v uint32) int {
	return len(EncodeInt(v))
}

// decodeInt reads a run of base-64 digits from the start of data and
// returns the decoded value along with the number of bytes consumed. It
// returns ok=false if data does not begin with at least one digit.
func decodeInt(data []byte) (value uint32, consumed int, ok bool) {
	for consumed < len(data) {
		d := base64Values[data[consumed]]
		if d < 0 {
			break
		}
		value = value<<6 | uint32(d)
		consumed++
	}
	return value, consumed, consumed > 0
}
