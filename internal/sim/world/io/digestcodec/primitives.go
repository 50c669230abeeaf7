// Package digestcodec writes fixed-width little-endian values into a state
// hash so two worlds in the same state produce the same digest.
package digestcodec

import (
	"encoding/binary"
	"math"
)

type Writer interface {
	Write(p []byte) (n int, err error)
}

func WriteU64(w Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func WriteI64(w Writer, tmp *[8]byte, v int64) { WriteU64(w, tmp, uint64(v)) }

// WriteF64 writes the IEEE bits, so -0 and 0 differ.
func WriteF64(w Writer, tmp *[8]byte, v float64) { WriteU64(w, tmp, math.Float64bits(v)) }

func WriteBool(w Writer, v bool) { w.Write([]byte{BoolByte(v)}) }

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
