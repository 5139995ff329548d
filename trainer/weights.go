package trainer

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// writeBlocks stores float32 blocks, each prefixed by its uint32 length, little endian.
func writeBlocks(path string, blocks ...[]float32) error {
	size := 0
	for _, b := range blocks {
		size += 4 + len(b)*4
	}
	buf := make([]byte, size)
	off := 0
	for _, b := range blocks {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(b)))
		off += 4
		for _, v := range b {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readBlocks is the inverse of writeBlocks.
func readBlocks(path string, want int) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, 0, want)
	for len(out) < want {
		if len(data) < 4 {
			return nil, fmt.Errorf("weights file truncated: %s: %w", path, io.ErrUnexpectedEOF)
		}
		length := int(binary.LittleEndian.Uint32(data[:4]))
		data = data[4:]
		if len(data) < length*4 {
			return nil, fmt.Errorf("weights length mismatch: %s", path)
		}
		vec := make([]float32, length)
		for i := 0; i < length; i++ {
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
		}
		data = data[length*4:]
		out = append(out, vec)
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("weights file has %d trailing bytes: %s", len(data), path)
	}
	return out, nil
}
