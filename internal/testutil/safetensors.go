package testutil

import (
	"encoding/binary"
	"encoding/json"
)

// BuildSafetensors assembles a minimal safetensors-style container: an
// 8-byte little-endian header length, a JSON header holding the given
// __metadata__ entries and tensor keys, and a short payload. Returns nil
// if the header cannot be marshaled; callers pass plain string maps, so
// that does not happen in practice.
func BuildSafetensors(meta map[string]string, tensorKeys ...string) []byte {
	header := make(map[string]any, len(tensorKeys)+1)
	if meta != nil {
		header["__metadata__"] = meta
	}
	for _, k := range tensorKeys {
		header[k] = map[string]any{"dtype": "F16", "shape": []int{1}}
	}

	raw, err := json.Marshal(header)
	if err != nil {
		return nil
	}

	buf := make([]byte, 8, 8+len(raw)+4)
	binary.LittleEndian.PutUint64(buf, uint64(len(raw)))
	buf = append(buf, raw...)
	return append(buf, 0x00, 0x01, 0x02, 0x03)
}
