package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
	ErrInvalidLength    = errors.New("tlv: invalid value length")
)

// Type IDs from tlv contract.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
	TypeF64    uint8 = 8
	TypeVec3   uint8 = 9  // 3 x float64
	TypeQuat   uint8 = 10 // w, x, y, z float64
	TypeCell   uint8 = 11 // 3 x int32
)

// Field is one decoded TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

func EncodeField(f Field) []byte {
	buf := make([]byte, HeaderLen+len(f.Value))
	binary.BigEndian.PutUint16(buf[0:2], f.ID)
	buf[2] = f.Type
	binary.BigEndian.PutUint32(buf[3:7], uint32(len(f.Value)))
	copy(buf[7:], f.Value)
	return buf
}

func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0)
	i := 0
	for i < len(payload) {
		if len(payload)-i < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := binary.BigEndian.Uint16(payload[i : i+2])
		typeID := payload[i+2]
		l := binary.BigEndian.Uint32(payload[i+3 : i+7])
		i += HeaderLen
		if uint32(len(payload)-i) < l {
			return nil, ErrShortFieldValue
		}
		val := make([]byte, l)
		copy(val, payload[i:i+int(l)])
		i += int(l)
		fields = append(fields, Field{ID: id, Type: typeID, Value: val})
	}
	return fields, nil
}

func EncodeFields(fields []Field) []byte {
	out := make([]byte, 0)
	for _, f := range fields {
		out = append(out, EncodeField(f)...)
	}
	return out
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("tlv: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}

func String(id uint16, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

func Bool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: TypeBool, Value: []byte{b}}
}

func U8(id uint16, v uint8) Field {
	return Field{ID: id, Type: TypeU8, Value: []byte{v}}
}

func U32(id uint16, v uint32) Field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return Field{ID: id, Type: TypeU32, Value: buf}
}

func F64(id uint16, v float64) Field {
	return Field{ID: id, Type: TypeF64, Value: putFloats(v)}
}

func Vec3(id uint16, v [3]float64) Field {
	return Field{ID: id, Type: TypeVec3, Value: putFloats(v[0], v[1], v[2])}
}

func Quat(id uint16, w, x, y, z float64) Field {
	return Field{ID: id, Type: TypeQuat, Value: putFloats(w, x, y, z)}
}

func Cell(id uint16, x, y, z int32) Field {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], uint32(x))
	binary.BigEndian.PutUint32(buf[4:8], uint32(y))
	binary.BigEndian.PutUint32(buf[8:12], uint32(z))
	return Field{ID: id, Type: TypeCell, Value: buf}
}

func U8FromBytes(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: u8 %d", ErrInvalidLength, len(b))
	}
	return b[0], nil
}

func U32FromBytes(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("%w: u32 %d", ErrInvalidLength, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

func BoolFromBytes(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, fmt.Errorf("%w: bool %d", ErrInvalidLength, len(b))
	}
	return b[0] == 1, nil
}

func F64FromBytes(b []byte) (float64, error) {
	vals, err := floats(b, 1)
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

func Vec3FromBytes(b []byte) ([3]float64, error) {
	vals, err := floats(b, 3)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{vals[0], vals[1], vals[2]}, nil
}

// QuatFromBytes returns w, x, y, z.
func QuatFromBytes(b []byte) ([4]float64, error) {
	vals, err := floats(b, 4)
	if err != nil {
		return [4]float64{}, err
	}
	return [4]float64{vals[0], vals[1], vals[2], vals[3]}, nil
}

func CellFromBytes(b []byte) ([3]int32, error) {
	if len(b) != 12 {
		return [3]int32{}, fmt.Errorf("%w: cell %d", ErrInvalidLength, len(b))
	}
	return [3]int32{
		int32(binary.BigEndian.Uint32(b[0:4])),
		int32(binary.BigEndian.Uint32(b[4:8])),
		int32(binary.BigEndian.Uint32(b[8:12])),
	}, nil
}

func putFloats(vals ...float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func floats(b []byte, n int) ([]float64, error) {
	if len(b) != 8*n {
		return nil, fmt.Errorf("%w: want %d floats got %d bytes", ErrInvalidLength, n, len(b))
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.BigEndian.Uint64(b[i*8:]))
	}
	return out, nil
}
