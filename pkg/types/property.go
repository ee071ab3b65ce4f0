package types

import (
	"fmt"
	"math"
	"time"
)

// ValueType names the kind of scalar an attribute accepts.
type ValueType string

// Attribute value types determine what values an attribute accepts.
const (
	ValueTypeText      ValueType = "text"
	ValueTypeInteger   ValueType = "integer"
	ValueTypeReal      ValueType = "real"
	ValueTypeBoolean   ValueType = "boolean"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeAny       ValueType = "any"
)

// validValueTypes is the set of recognized attribute value types.
var validValueTypes = map[ValueType]bool{
	ValueTypeText:      true,
	ValueTypeInteger:   true,
	ValueTypeReal:      true,
	ValueTypeBoolean:   true,
	ValueTypeTimestamp: true,
	ValueTypeAny:       true,
}

// Unbounded is the upper bound of a property that accepts any number of
// values ("*" in a multiplicity).
const Unbounded = -1

// IsValidValueType reports whether the given value type is recognized.
func IsValidValueType(vt ValueType) bool {
	return validValueTypes[vt]
}

// ZeroValue returns the zero value stored for a value type. Returns nil for
// timestamp and any, "" for text, 0 for integer and real, false for boolean.
// Returns nil and ErrInvalidValueType if the type is not recognized.
func ZeroValue(vt ValueType) (any, error) {
	switch vt {
	case ValueTypeText:
		return "", nil
	case ValueTypeInteger:
		return int64(0), nil
	case ValueTypeReal:
		return float64(0), nil
	case ValueTypeBoolean:
		return false, nil
	case ValueTypeTimestamp, ValueTypeAny:
		return nil, nil
	default:
		return nil, ErrInvalidValueType
	}
}

// Normalize checks that v is an instance of vt and returns the canonical
// stored form: integers widen to int64, floats to float64. A nil value is
// returned unchanged. Returns ErrTypeMismatch otherwise.
func Normalize(vt ValueType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch vt {
	case ValueTypeText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ValueTypeInteger:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case uint:
			return unsignedInteger(uint64(n))
		case uint64:
			return unsignedInteger(n)
		case uintptr:
			return unsignedInteger(uint64(n))
		}
	case ValueTypeReal:
		switch f := v.(type) {
		case float32:
			return float64(f), nil
		case float64:
			return f, nil
		}
	case ValueTypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case ValueTypeTimestamp:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}
	case ValueTypeAny:
		return v, nil
	default:
		return nil, ErrInvalidValueType
	}
	return nil, fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, v, vt)
}

func unsignedInteger(n uint64) (any, error) {
	if n > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows integer", ErrTypeMismatch, n)
	}
	return int64(n), nil
}

// FormatBound renders a multiplicity bound, using "*" for Unbounded.
func FormatBound(b int) string {
	if b == Unbounded {
		return "*"
	}
	return fmt.Sprint(b)
}
