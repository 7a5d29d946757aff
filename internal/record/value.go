package record

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tuannm99/tinydb/internal/bx"
)

const (
	MaxValueSize  = 64
	MaxColumnName = 32
	MaxTableName  = 64
	MaxColumns    = 8

	// ValueRecordSize is the fixed on-disk footprint of one Value:
	// type u8, isNull u8, pad[2], data[MaxValueSize].
	ValueRecordSize = 4 + MaxValueSize
)

// ErrTypeMismatch is returned when two values of different types are compared.
var ErrTypeMismatch = errors.New("record: cross-type value comparison")

type DataType uint8

const (
	TypeInt DataType = iota
	TypeVarchar
	TypeFloat
)

func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeVarchar:
		return "VARCHAR"
	case TypeFloat:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

// Value is the tagged variant carried in tuples and B+-tree keys.
// Exactly one of Int/Float/Str is meaningful, selected by Type.
type Value struct {
	Type   DataType
	IsNull bool
	Int    int32
	Float  float32
	Str    string
}

func NewInt(v int32) Value      { return Value{Type: TypeInt, Int: v} }
func NewFloat(v float32) Value  { return Value{Type: TypeFloat, Float: v} }
func NewVarchar(s string) Value { return Value{Type: TypeVarchar, Str: s} }
func NewNull(t DataType) Value  { return Value{Type: t, IsNull: true} }

// Compare orders a before/equal/after b. Ordering is defined only within
// the same type tag; mismatched tags return ErrTypeMismatch.
func Compare(a, b Value) (int, error) {
	if a.Type != b.Type {
		return 0, ErrTypeMismatch
	}

	switch a.Type {
	case TypeInt:
		switch {
		case a.Int < b.Int:
			return -1, nil
		case a.Int > b.Int:
			return 1, nil
		}
		return 0, nil
	case TypeFloat:
		switch {
		case a.Float < b.Float:
			return -1, nil
		case a.Float > b.Float:
			return 1, nil
		}
		return 0, nil
	case TypeVarchar:
		return strings.Compare(a.Str, b.Str), nil
	default:
		return 0, ErrTypeMismatch
	}
}

func (v Value) String() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Type {
	case TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case TypeVarchar:
		return v.Str
	case TypeFloat:
		return fmt.Sprintf("%.2f", v.Float)
	default:
		return "?"
	}
}

// EncodeValue writes v into dst (ValueRecordSize bytes).
func EncodeValue(dst []byte, v Value) {
	_ = dst[ValueRecordSize-1]

	clear(dst[:ValueRecordSize])
	dst[0] = byte(v.Type)
	if v.IsNull {
		dst[1] = 1
	}

	data := dst[4 : 4+MaxValueSize]
	switch v.Type {
	case TypeInt:
		bx.PutI32(data, v.Int)
	case TypeFloat:
		bx.PutU32(data, math.Float32bits(v.Float))
	case TypeVarchar:
		copy(data, v.Str)
	}
}

// DecodeValue reads a Value back from src (ValueRecordSize bytes).
func DecodeValue(src []byte) Value {
	_ = src[ValueRecordSize-1]

	v := Value{
		Type:   DataType(src[0]),
		IsNull: src[1] != 0,
	}

	data := src[4 : 4+MaxValueSize]
	switch v.Type {
	case TypeInt:
		v.Int = bx.I32(data)
	case TypeFloat:
		v.Float = math.Float32frombits(bx.U32(data))
	case TypeVarchar:
		end := 0
		for end < len(data) && data[end] != 0 {
			end++
		}
		v.Str = string(data[:end])
	}
	return v
}
