package tlv

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	in := []Field{
		String(1, "overworld"),
		{ID: 9999, Type: TypeBytes, Value: []byte{0xAA, 0xBB}}, // unknown field id
	}
	b := EncodeFields(in)
	out, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(out))
	}
	if out[1].ID != 9999 || out[1].Type != TypeBytes || !bytes.Equal(out[1].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[1])
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestVectorFieldsKeepExactBits(t *testing.T) {
	v := [3]float64{-0.5, math.Pi, 1e-12}
	got, err := Vec3FromBytes(Vec3(3, v).Value)
	if err != nil {
		t.Fatalf("vec3: %v", err)
	}
	if got != v {
		t.Fatalf("vec3 mismatch: %v vs %v", got, v)
	}

	q, err := QuatFromBytes(Quat(4, 1, 0, -0.25, 0.75).Value)
	if err != nil {
		t.Fatalf("quat: %v", err)
	}
	if q != [4]float64{1, 0, -0.25, 0.75} {
		t.Fatalf("quat mismatch: %v", q)
	}

	c, err := CellFromBytes(Cell(5, -3, 64, 2147483647).Value)
	if err != nil {
		t.Fatalf("cell: %v", err)
	}
	if c != [3]int32{-3, 64, 2147483647} {
		t.Fatalf("cell mismatch: %v", c)
	}
}

func TestScalarDecodersRejectWrongLength(t *testing.T) {
	if _, err := Vec3FromBytes(make([]byte, 16)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for vec3, got %v", err)
	}
	if _, err := CellFromBytes(make([]byte, 8)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for cell, got %v", err)
	}
	if _, err := U32FromBytes([]byte{1}); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for u32, got %v", err)
	}
	if _, err := BoolFromBytes(nil); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for bool, got %v", err)
	}
	if v, err := BoolFromBytes(Bool(1, true).Value); err != nil || !v {
		t.Fatalf("bool decode: %v %v", v, err)
	}
}
