// Package encoding packs chunk block columns for snapshots.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrLength = errors.New("rle: decoded length mismatch")

// EncodeBlocks run-length encodes palette ids as base64 of uvarint
// (id, run) pairs. Chunks are mostly air and stone, so runs are long.
func EncodeBlocks(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	for i := 0; i < len(ids); {
		id := ids[i]
		j := i + 1
		for j < len(ids) && ids[j] == id {
			j++
		}
		buf.Write(tmp[:binary.PutUvarint(tmp[:], uint64(id))])
		buf.Write(tmp[:binary.PutUvarint(tmp[:], uint64(j-i))])
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeBlocks reverses EncodeBlocks. The result must hold exactly n ids.
func DecodeBlocks(s string, n int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("rle: %w", err)
	}
	out := make([]uint16, 0, n)
	for off := 0; off < len(raw); {
		id, k := binary.Uvarint(raw[off:])
		if k <= 0 {
			return nil, fmt.Errorf("rle: bad id varint at %d", off)
		}
		off += k
		run, k := binary.Uvarint(raw[off:])
		if k <= 0 {
			return nil, fmt.Errorf("rle: bad run varint at %d", off)
		}
		off += k
		if id > 0xFFFF {
			return nil, fmt.Errorf("rle: block id %d out of range", id)
		}
		if run == 0 || run > uint64(n-len(out)) {
			return nil, fmt.Errorf("%w: run %d with %d ids left", ErrLength, run, n-len(out))
		}
		for ; run > 0; run-- {
			out = append(out, uint16(id))
		}
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: got %d want %d", ErrLength, len(out), n)
	}
	return out, nil
}
