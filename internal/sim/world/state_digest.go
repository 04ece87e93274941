package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// stateDigest hashes terrain and every builder's resumable state.
func (w *World) stateDigest() string {
	h := sha256.New()
	h.Write([]byte(w.chunks.Digest()))

	var tmp [8]byte
	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
		h.Write(tmp[:])
	}
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
		h.Write(tmp[:])
	}
	writeStr := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}
	for _, id := range w.order {
		st := w.builders[id].Export()
		writeStr(id)
		writeInt(int(st.Mode))
		writeInt(int(st.Status))
		writeStr(st.Markers[0])
		writeStr(st.Markers[1])
		writeInt(st.Cursor.X)
		writeInt(st.Cursor.Y)
		writeInt(st.Cursor.Z)
		writeFloat(st.Charge)
		for _, s := range st.Slots {
			writeStr(s.Material)
			writeInt(s.Count)
		}
		writeInt(st.NextSlot)
	}
	return hex.EncodeToString(h.Sum(nil))
}
