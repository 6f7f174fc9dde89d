package crazyflie

import (
	"encoding/binary"
	"math"
)

// here we have to use interface as the return everywhere since the functions need to fit into a generic map
// everything is little endian

func bytesToUint8(b []byte) interface{} {
	return b[0]
}

func bytesToUint16(b []byte) interface{} {
	return binary.LittleEndian.Uint16(b)
}

func bytesToUint32(b []byte) interface{} {
	return binary.LittleEndian.Uint32(b)
}

func bytesToInt8(b []byte) interface{} {
	return int8(b[0])
}

func bytesToInt16(b []byte) interface{} {
	return int16(binary.LittleEndian.Uint16(b))
}

func bytesToInt32(b []byte) interface{} {
	return int32(binary.LittleEndian.Uint32(b))
}

func bytesToFloat32(b []byte) interface{} {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func bytesToFloat16(b []byte) interface{} {
	val := uint32(binary.LittleEndian.Uint16(b))

	s := val >> 15
	e := (val >> 10) & 0x1F
	m := val & 0x03FF

	var fp32 uint32
	switch {
	case e == 0x1F && m != 0:
		fp32 = 0x7FC00000 // NaN
	case e == 0x1F:
		fp32 = (s << 31) | 0x7F800000 // +/- Inf
	case e == 0 && m == 0:
		fp32 = s << 31 // +/- 0
	case e == 0:
		// subnormal half, normalise into a float32
		e = 127 - 15 + 1
		for m&0x0400 == 0 {
			m <<= 1
			e--
		}
		fp32 = (s << 31) | (e << 23) | ((m & 0x03FF) << 13)
	default:
		fp32 = (s << 31) | ((e + 127 - 15) << 23) | (m << 13)
	}

	return math.Float32frombits(fp32)
}

func uint8ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(uint8)
	return []byte{val}, ok
}

func uint16ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(uint16)
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, val)
	return b, ok
}

func uint32ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(uint32)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, val)
	return b, ok
}

func int8ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(int8)
	return []byte{byte(val)}, ok
}

func int16ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(int16)
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(val))
	return b, ok
}

func int32ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(int32)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(val))
	return b, ok
}

func float32ToBytes(v interface{}) ([]byte, bool) {
	val, ok := v.(float32)
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(val))
	return b, ok
}

// ValueToFloat64 widens any decoded param or log value for display and JSON.
func ValueToFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case float32:
		return float64(v), true
	}
	return 0, false
}

// splitName splits a TOC entry's "group\0name\0" into "group.name".
func splitName(b []byte) (string, bool) {
	var parts []string
	start := 0
	for i, c := range b {
		if c == 0 {
			parts = append(parts, string(b[start:i]))
			start = i + 1
			if len(parts) == 2 {
				break
			}
		}
	}
	if len(parts) < 2 {
		return "", false
	}
	return parts[0] + "." + parts[1], true
}
