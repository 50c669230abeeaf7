// Package encoding packs per-cell grids for clients. Region terrain is
// mostly long runs of one value, so cells travel as base64 varint pairs.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes cells as base64((value, run) varint pairs).
func EncodeRLE(cells []byte) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	for i := 0; i < len(cells); {
		v := cells[i]
		run := 1
		for i+run < len(cells) && cells[i+run] == v {
			run++
		}
		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE reverses EncodeRLE. limit caps the decoded length; 0 means no cap.
func DecodeRLE(b64 string, limit int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var out []byte
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFF {
			return nil, fmt.Errorf("cell value too large: %d", v)
		}
		if run == 0 || (limit > 0 && uint64(len(out))+run > uint64(limit)) {
			return nil, fmt.Errorf("bad run length %d at %d", run, i)
		}
		out = append(out, bytes.Repeat([]byte{byte(v)}, int(run))...)
	}
	return out, nil
}
