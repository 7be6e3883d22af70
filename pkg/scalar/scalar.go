// Package scalar classifies and formats primitive values for output sinks.
//
// The serializer core never writes Go values to a sink directly. Every leaf value
// is first classified with [Classify], which maps it onto one of a small set of
// wire kinds (null, bool, int, uint, float, string). Sinks then emit the
// normalized value with a typed method, so the same classification is shared by
// every encoding.
//
// Values that are not primitives (structs, pointers to structs, channels, ...) are
// classified as [KindString] and rendered with fmt's %v verb, which mirrors the
// "everything else is its string representation" rule of the serializer.
package scalar

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// NullString is the sentinel value that scripts and converters return to request
// an explicit null in the output. It is treated exactly like a nil value.
const NullString = "___NULL___"

// Kind is the wire-level category of a primitive value.
type Kind int

const (
	// KindNull is an absent value or the [NullString] sentinel.
	KindNull Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt is a signed integer.
	KindInt
	// KindUint is an unsigned integer.
	KindUint
	// KindFloat is a floating point number.
	KindFloat
	// KindString is text, or the string form of a non-primitive value.
	KindString
)

var kindNames = [...]string{"null", "bool", "int", "uint", "float", "string"}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a classified primitive. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Uint  uint64
	Float float64
	Str   string
}

// IsNull reports whether v should be emitted as a null leaf.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == NullString
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Classify normalizes v into a [Value].
//
// time.Time values are rendered as RFC 3339 strings with nanosecond precision and
// time.Duration values as their integer nanosecond count. Pointers to primitives
// are dereferenced. Non-finite floats are classified as null because none of the
// supported encodings can represent them portably.
func Classify(v any) Value {
	if IsNull(v) {
		return Value{Kind: KindNull}
	}

	switch x := v.(type) {
	case bool:
		return Value{Kind: KindBool, Bool: x}
	case string:
		return Value{Kind: KindString, Str: x}
	case int:
		return Value{Kind: KindInt, Int: int64(x)}
	case int64:
		return Value{Kind: KindInt, Int: x}
	case int32:
		return Value{Kind: KindInt, Int: int64(x)}
	case float64:
		return floatValue(x)
	case time.Time:
		return Value{Kind: KindString, Str: x.Format(time.RFC3339Nano)}
	case time.Duration:
		return Value{Kind: KindInt, Int: int64(x)}
	case fmt.Stringer:
		return Value{Kind: KindString, Str: x.String()}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Value{Kind: KindNull}
		}
		rv = rv.Elem()
	}

	//nolint:exhaustive // everything that is not a primitive falls through to its string form
	switch rv.Kind() {
	case reflect.Bool:
		return Value{Kind: KindBool, Bool: rv.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Kind: KindInt, Int: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{Kind: KindUint, Uint: rv.Uint()}
	case reflect.Float32, reflect.Float64:
		return floatValue(rv.Float())
	case reflect.String:
		if rv.String() == NullString {
			return Value{Kind: KindNull}
		}
		return Value{Kind: KindString, Str: rv.String()}
	}

	return Value{Kind: KindString, Str: fmt.Sprintf("%v", rv.Interface())}
}

func floatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{Kind: KindNull}
	}
	return Value{Kind: KindFloat, Float: f}
}

// IsPrimitive reports whether values of type t are always emitted as scalars.
// The serializer registry uses it to skip lookups for the common case.
func IsPrimitive(t reflect.Type) bool {
	if t == nil {
		return true
	}
	if t == timeType || t == durationType {
		return true
	}
	//nolint:exhaustive // only primitive kinds are listed
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// FormatDecimal formats f with exactly places digits after the decimal point,
// using '.' as separator regardless of locale. Negative places are treated as 0.
func FormatDecimal(f float64, places int) string {
	if places < 0 {
		places = 0
	}
	return strconv.FormatFloat(f, 'f', places, 64)
}

// FormatSeconds renders a duration in seconds with nine decimal places,
// e.g. 1.5ms becomes "0.001500000".
func FormatSeconds(d time.Duration) string {
	return FormatDecimal(d.Seconds(), 9)
}
