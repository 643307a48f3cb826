package delta

import "fmt"

// Apply replays a delta produced by Create against src, reconstructing
// the target byte string and verifying it against the delta's trailing
// checksum record. It returns an error if the delta is malformed or the
// checksum does not match.
func Apply(src, delta []byte) ([]byte, error) {
	size, pos, ok := decodeInt(delta)
	if !ok || pos >= len(delta) || delta[pos] != '\n' {
		return nil, fmt.Errorf("delta: missing or malformed size header")
	}
	pos++

	out := make([]byte, 0, size)
	for pos < len(delta) {
		n, consumed, ok := decodeInt(delta[pos:])
		if !ok {
			return nil, fmt.Errorf("delta: expected a number at offset %d", pos)
		}
		pos += consumed
		if pos >= len(delta) {
			return nil, fmt.Errorf("delta: truncated after number at offset %d", pos)
		}
		op := delta[pos]
		pos++

		switch op {
		case ':':
			end := pos + int(n)
			if end > len(delta) {
				return nil, fmt.Errorf("delta: literal segment of %d bytes runs past end of delta", n)
			}
			out = append(out, delta[pos:end]...)
			pos = end

		case '@':
			offset, consumed, ok := decodeInt(delta[pos:])
			if !ok {
				return nil, fmt.Errorf("delta: expected source offset at offset %d", pos)
			}
			pos += consumed
			if pos >= len(delta) || delta[pos] != ',' {
				return nil, fmt.Errorf("delta: copy command missing ',' at offset %d", pos)
			}
			pos++

			count := int(n)
			if count == 0 {
				count = len(src) - int(offset)
			}
			end := int(offset) + count
			if offset > uint32(len(src)) || end > len(src) || count < 0 {
				return nil, fmt.Errorf("delta: copy command references bytes [%d,%d) outside source of length %d", offset, end, len(src))
			}
			out = append(out, src[offset:end]...)

		case ';':
			if uint32(len(out)) != size {
				return nil, fmt.Errorf("delta: reconstructed %d bytes, header declared %d", len(out), size)
			}
			if got := Checksum(out); got != n {
				return nil, fmt.Errorf("delta: checksum mismatch: got %#x, want %#x", got, n)
			}
			return out, nil

		default:
			return nil, fmt.Errorf("delta: unknown command byte %q at offset %d", op, pos-1)
		}
	}
	return nil, fmt.Errorf("delta: missing trailing checksum record")
}
