package sink

import (
	"io"
	"slices"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/scalar"
)

// Writer is the outbound event contract of the serializer.
//
// BeginObject and EndObject receive the object being emitted, or nil for plain
// maps and envelopes, so encodings can add type or id annotations.
type Writer interface {
	BeginDocument(baseURL, view string) error
	EndDocument() error

	BeginObject(obj graph.Object) error
	EndObject(obj graph.Object) error
	BeginArray() error
	EndArray() error

	// Name declares the key of the next value inside an open object.
	Name(name string) error

	String(v string) error
	Int(v int64) error
	Uint(v uint64) error
	Float(v float64) error
	Bool(v bool) error
	Null() error
}

// Supported format names.
const (
	FormatJSON    = "json"
	FormatBSON    = "bson"
	FormatExtJSON = "extjson"
)

// Formats lists the names accepted by [ByFormat].
var Formats = []string{FormatJSON, FormatBSON, FormatExtJSON}

// ByFormat returns a sink for format writing to w. The indent flag only
// affects JSON.
func ByFormat(format string, w io.Writer, indent bool) (Writer, error) {
	switch format {
	case FormatJSON, "":
		return NewJSON(w, indent), nil
	case FormatBSON:
		b, err := NewBSON(w)
		if err != nil {
			return nil, err
		}
		return b, nil
	case FormatExtJSON:
		b, err := NewExtJSON(w, false)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, errors.ValidateFormat(format, Formats)
}

// ContentType returns the HTTP media type of format.
func ContentType(format string) string {
	if format == FormatBSON {
		return "application/bson"
	}
	return "application/json"
}

// IsSupported reports whether format is a known format name.
func IsSupported(format string) bool {
	return slices.Contains(Formats, format)
}

// WriteScalar emits a classified value with the matching typed method.
func WriteScalar(w Writer, v scalar.Value) error {
	switch v.Kind {
	case scalar.KindBool:
		return w.Bool(v.Bool)
	case scalar.KindInt:
		return w.Int(v.Int)
	case scalar.KindUint:
		return w.Uint(v.Uint)
	case scalar.KindFloat:
		return w.Float(v.Float)
	case scalar.KindString:
		return w.String(v.Str)
	default:
		return w.Null()
	}
}

// WriteValue classifies v and emits it as a leaf.
func WriteValue(w Writer, v any) error {
	return WriteScalar(w, scalar.Classify(v))
}

func ioError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeSinkIO, err, "%s", op)
}
