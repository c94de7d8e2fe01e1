package renderer

import (
	"encoding/binary"
	stdmath "math"
)

// GPU records are tightly packed little endian float32/uint32 sequences.

func putFloat32s(dst []byte, values ...float32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, stdmath.Float32bits(v))
	}
	return dst
}

func putUint32s(dst []byte, values ...uint32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, v)
	}
	return dst
}
