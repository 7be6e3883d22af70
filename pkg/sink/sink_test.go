package sink

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/scalar"
)

// writeSample emits {"a":1,"b":["x",true,null],"c":{},"d":[]}.
func writeSample(t *testing.T, w Writer) {
	t.Helper()
	steps := []func() error{
		func() error { return w.BeginDocument("", "public") },
		func() error { return w.BeginObject(nil) },
		func() error { return w.Name("a") },
		func() error { return w.Int(1) },
		func() error { return w.Name("b") },
		w.BeginArray,
		func() error { return w.String("x") },
		func() error { return w.Bool(true) },
		w.Null,
		w.EndArray,
		func() error { return w.Name("c") },
		func() error { return w.BeginObject(nil) },
		func() error { return w.EndObject(nil) },
		func() error { return w.Name("d") },
		w.BeginArray,
		w.EndArray,
		func() error { return w.EndObject(nil) },
		w.EndDocument,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestJSONCompact(t *testing.T) {
	var buf bytes.Buffer
	writeSample(t, NewJSON(&buf, false))
	want := `{"a":1,"b":["x",true,null],"c":{},"d":[]}`
	if got := buf.String(); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestJSONIndent(t *testing.T) {
	var buf bytes.Buffer
	writeSample(t, NewJSON(&buf, true))
	want := "{\n" +
		"\t\"a\": 1,\n" +
		"\t\"b\": [\n" +
		"\t\t\"x\",\n" +
		"\t\ttrue,\n" +
		"\t\tnull\n" +
		"\t],\n" +
		"\t\"c\": {},\n" +
		"\t\"d\": []\n" +
		"}\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestJSONIndentUnit(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSON(&buf, true, WithIndentUnit("  "))
	_ = w.BeginObject(nil)
	_ = w.Name("k")
	_ = w.String("v")
	_ = w.EndObject(nil)
	_ = w.EndDocument()
	if got, want := buf.String(), "{\n  \"k\": \"v\"\n}\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJSONScalars(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *JSON) error
		want  string
	}{
		{"float", func(w *JSON) error { return w.Float(1.5) }, "1.5"},
		{"nan is null", func(w *JSON) error { return w.Float(math.NaN()) }, "null"},
		{"uint", func(w *JSON) error { return w.Uint(math.MaxUint64) }, "18446744073709551615"},
		{"negative int", func(w *JSON) error { return w.Int(-42) }, "-42"},
		{"html is not escaped", func(w *JSON) error { return w.String("<a & b>") }, `"<a & b>"`},
		{"quotes are escaped", func(w *JSON) error { return w.String(`say "hi"`) }, `"say \"hi\""`},
		{"scalar value", func(w *JSON) error { return WriteValue(w, int8(3)) }, "3"},
		{"null marker", func(w *JSON) error { return WriteValue(w, scalar.NullString) }, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewJSON(&buf, false)
			if err := tt.write(w); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := w.EndDocument(); err != nil {
				t.Fatalf("EndDocument: %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestJSONMisuse(t *testing.T) {
	tests := []struct {
		name  string
		steps func(w *JSON) error
	}{
		{"value without name", func(w *JSON) error {
			_ = w.BeginObject(nil)
			return w.Int(1)
		}},
		{"name in array", func(w *JSON) error {
			_ = w.BeginArray()
			return w.Name("x")
		}},
		{"mismatched end", func(w *JSON) error {
			_ = w.BeginObject(nil)
			return w.EndArray()
		}},
		{"dangling name", func(w *JSON) error {
			_ = w.BeginObject(nil)
			_ = w.Name("x")
			return w.EndObject(nil)
		}},
		{"unclosed document", func(w *JSON) error {
			_ = w.BeginArray()
			return w.EndDocument()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.steps(NewJSON(&bytes.Buffer{}, false))
			if !errors.Is(err, errors.ErrCodeInternal) {
				t.Errorf("got %v, want INTERNAL_ERROR", err)
			}
		})
	}
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestJSONWriteError(t *testing.T) {
	broken := stderrors.New("connection reset")
	w := NewJSON(failingWriter{broken}, false, WithFlushThreshold(1))
	err := w.BeginObject(nil)
	if !errors.Is(err, errors.ErrCodeSinkIO) {
		t.Fatalf("got %v, want SINK_IO", err)
	}
	if !stderrors.Is(err, broken) {
		t.Errorf("cause not preserved: %v", err)
	}
}

func TestBSON(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewBSON(&buf)
	if err != nil {
		t.Fatalf("NewBSON: %v", err)
	}
	writeSample(t, w)

	raw := bson.Raw(buf.Bytes())
	if err := raw.Validate(); err != nil {
		t.Fatalf("invalid document: %v", err)
	}
	if got := raw.Lookup("a").Int64(); got != 1 {
		t.Errorf("a = %d, want 1", got)
	}
	if got := raw.Lookup("b", "0").StringValue(); got != "x" {
		t.Errorf("b.0 = %q, want x", got)
	}
	if got := raw.Lookup("b", "1").Boolean(); !got {
		t.Error("b.1 should be true")
	}
}

func TestBSONTopLevel(t *testing.T) {
	w, _ := NewBSON(&bytes.Buffer{})
	if err := w.BeginArray(); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("top-level array: got %v, want UNSUPPORTED", err)
	}
	if err := w.String("x"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("top-level scalar: got %v, want UNSUPPORTED", err)
	}
}

func TestExtJSON(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewExtJSON(&buf, false)
	if err != nil {
		t.Fatalf("NewExtJSON: %v", err)
	}
	writeSample(t, w)

	var doc bson.M
	if err := bson.UnmarshalExtJSON(buf.Bytes(), false, &doc); err != nil {
		t.Fatalf("output is not extended JSON: %v\n%s", err, buf.String())
	}
	if got := fmt.Sprint(doc["a"]); got != "1" {
		t.Errorf("a = %s, want 1", got)
	}
	if _, ok := doc["c"]; !ok {
		t.Error("missing empty document c")
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	writeSample(t, r)
	want := `<doc public> { a: 1 b: [ "x" true null ] c: { } d: [ ] } </doc>`
	if got := r.Trace(); got != want {
		t.Errorf("trace = %s\nwant    %s", got, want)
	}
	if !r.Balanced() {
		t.Error("recorder should be balanced")
	}
}

func TestRecorderFailAfter(t *testing.T) {
	broken := stderrors.New("boom")
	r := NewRecorder().FailAfter(2, broken)
	_ = r.BeginDocument("", "public")
	_ = r.BeginObject(nil)
	err := r.Name("a")
	if !errors.Is(err, errors.ErrCodeSinkIO) || !stderrors.Is(err, broken) {
		t.Errorf("got %v, want SINK_IO wrapping boom", err)
	}
	if len(r.Events) != 2 {
		t.Errorf("recorded %d events, want 2", len(r.Events))
	}
}

func TestByFormat(t *testing.T) {
	for _, format := range Formats {
		if _, err := ByFormat(format, &bytes.Buffer{}, true); err != nil {
			t.Errorf("ByFormat(%q): %v", format, err)
		}
	}
	if _, err := ByFormat("yaml", &bytes.Buffer{}, true); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("ByFormat(yaml): got %v, want INVALID_FORMAT", err)
	}
	if got := ContentType(FormatBSON); got != "application/bson" {
		t.Errorf("ContentType(bson) = %s", got)
	}
}
