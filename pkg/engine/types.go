// Package engine holds the vocabulary shared between the logical-plan
// layer and the native incremental-computation engine: wire-level type
// tags, the row-key type, and the value wrappers that have no direct Go
// equivalent.
//
// The Golden Rule: pkg/engine imports only the standard library. Every
// other package may depend on it; it depends on nothing.
package engine

import (
	"fmt"
	"time"
)

// Type is the enumerated wire tag the engine understands. Lattice types
// with no engine-relevant distinction (None, Optional, Tuple, Callable)
// have no wire form and must be normalized before crossing the boundary.
type Type int

const (
	TypeAny Type = iota
	TypeInt
	TypeBool
	TypeString
	TypeFloat
	TypePointer
	TypeArray
	TypeJson
	TypeDateTimeNaive
	TypeDateTimeUtc
	TypeDuration
)

func (t Type) String() string {
	switch t {
	case TypeAny:
		return "ANY"
	case TypeInt:
		return "INT"
	case TypeBool:
		return "BOOL"
	case TypeString:
		return "STRING"
	case TypeFloat:
		return "FLOAT"
	case TypePointer:
		return "POINTER"
	case TypeArray:
		return "ARRAY"
	case TypeJson:
		return "JSON"
	case TypeDateTimeNaive:
		return "DATE_TIME_NAIVE"
	case TypeDateTimeUtc:
		return "DATE_TIME_UTC"
	case TypeDuration:
		return "DURATION"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Pointer is a row key: an opaque identity assigned by the engine to each
// row of a universe. Keys compare by value and are otherwise opaque.
type Pointer struct {
	Hi, Lo uint64
}

func (p Pointer) String() string {
	return fmt.Sprintf("^%016x%016x", p.Hi, p.Lo)
}

// Json wraps an arbitrary JSON payload flowing through a column.
type Json struct {
	Value any
}

// DateTimeNaive is a wall-clock timestamp with no zone attached.
type DateTimeNaive struct {
	time.Time
}

// DateTimeUtc is a zone-aware timestamp normalized to UTC.
type DateTimeUtc struct {
	time.Time
}
