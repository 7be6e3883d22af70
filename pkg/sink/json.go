package sink

import (
	"io"
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
)

// DefaultIndentUnit is the indentation used by an indenting [JSON] sink.
const DefaultIndentUnit = "\t"

// DefaultFlushThreshold is the buffered byte count at which [JSON] flushes
// to the underlying writer.
const DefaultFlushThreshold = 32 * 1024

var jsonAPI = jsoniter.Config{EscapeHTML: false}.Froze()

// JSONOption configures a [JSON] sink.
type JSONOption func(*JSON)

// WithIndentUnit overrides the indentation string. It has no effect on
// compact sinks.
func WithIndentUnit(unit string) JSONOption {
	return func(j *JSON) {
		if j.indent != "" && unit != "" {
			j.indent = unit
		}
	}
}

// WithFlushThreshold sets the buffer size that triggers a flush.
func WithFlushThreshold(n int) JSONOption {
	return func(j *JSON) { j.threshold = n }
}

// WithHTMLEscape escapes <, > and & inside strings.
func WithHTMLEscape() JSONOption {
	return func(j *JSON) {
		j.stream = jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, j.out, 4096)
	}
}

type jsonFrame struct {
	object bool
	count  int
}

// JSON writes events as JSON text through a json-iterator stream. A stack of
// open frames tracks separators and indentation.
type JSON struct {
	out       io.Writer
	stream    *jsoniter.Stream
	indent    string
	threshold int
	frames    []jsonFrame
	named     bool
}

// NewJSON creates a JSON sink. When indent is true, nested values are placed
// on their own lines and indented with [DefaultIndentUnit].
func NewJSON(w io.Writer, indent bool, opts ...JSONOption) *JSON {
	j := &JSON{
		out:       w,
		stream:    jsoniter.NewStream(jsonAPI, w, 4096),
		threshold: DefaultFlushThreshold,
		frames:    make([]jsonFrame, 0, 16),
	}
	if indent {
		j.indent = DefaultIndentUnit
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *JSON) BeginDocument(string, string) error { return nil }

func (j *JSON) EndDocument() error {
	if len(j.frames) > 0 {
		return errors.New(errors.ErrCodeInternal, "json: %d unclosed containers at end of document", len(j.frames))
	}
	if j.indent != "" {
		j.stream.WriteRaw("\n")
	}
	return ioError(j.stream.Flush(), "json: flush")
}

func (j *JSON) BeginObject(graph.Object) error { return j.begin(true) }
func (j *JSON) EndObject(graph.Object) error   { return j.end(true) }
func (j *JSON) BeginArray() error              { return j.begin(false) }
func (j *JSON) EndArray() error                { return j.end(false) }

func (j *JSON) Name(name string) error {
	n := len(j.frames)
	if n == 0 || !j.frames[n-1].object {
		return errors.New(errors.ErrCodeInternal, "json: name %q outside of an object", name)
	}
	if j.named {
		return errors.New(errors.ErrCodeInternal, "json: name %q follows a name without a value", name)
	}
	top := &j.frames[n-1]
	if top.count > 0 {
		j.stream.WriteRaw(",")
	}
	top.count++
	j.newline()
	j.stream.WriteString(name)
	if j.indent != "" {
		j.stream.WriteRaw(": ")
	} else {
		j.stream.WriteRaw(":")
	}
	j.named = true
	return j.check()
}

func (j *JSON) String(v string) error {
	if err := j.prefix(); err != nil {
		return err
	}
	j.stream.WriteString(v)
	return j.check()
}

func (j *JSON) Int(v int64) error {
	if err := j.prefix(); err != nil {
		return err
	}
	j.stream.WriteInt64(v)
	return j.check()
}

func (j *JSON) Uint(v uint64) error {
	if err := j.prefix(); err != nil {
		return err
	}
	j.stream.WriteUint64(v)
	return j.check()
}

func (j *JSON) Float(v float64) error {
	if err := j.prefix(); err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		j.stream.WriteNil()
	} else {
		j.stream.WriteFloat64(v)
	}
	return j.check()
}

func (j *JSON) Bool(v bool) error {
	if err := j.prefix(); err != nil {
		return err
	}
	j.stream.WriteBool(v)
	return j.check()
}

func (j *JSON) Null() error {
	if err := j.prefix(); err != nil {
		return err
	}
	j.stream.WriteNil()
	return j.check()
}

// Depth returns the number of open containers.
func (j *JSON) Depth() int { return len(j.frames) }

func (j *JSON) begin(object bool) error {
	if err := j.prefix(); err != nil {
		return err
	}
	if object {
		j.stream.WriteRaw("{")
	} else {
		j.stream.WriteRaw("[")
	}
	j.frames = append(j.frames, jsonFrame{object: object})
	return j.check()
}

func (j *JSON) end(object bool) error {
	n := len(j.frames)
	if n == 0 || j.frames[n-1].object != object {
		return errors.New(errors.ErrCodeInternal, "json: unbalanced end of %s", containerName(object))
	}
	if j.named {
		return errors.New(errors.ErrCodeInternal, "json: object closed after a name without a value")
	}
	top := j.frames[n-1]
	j.frames = j.frames[:n-1]
	if top.count > 0 {
		j.newline()
	}
	if object {
		j.stream.WriteRaw("}")
	} else {
		j.stream.WriteRaw("]")
	}
	return j.check()
}

// prefix writes the separator and indentation that precede a value.
func (j *JSON) prefix() error {
	n := len(j.frames)
	if n == 0 {
		return nil
	}
	top := &j.frames[n-1]
	if top.object {
		if !j.named {
			return errors.New(errors.ErrCodeInternal, "json: value inside an object without a name")
		}
		j.named = false
		return nil
	}
	if top.count > 0 {
		j.stream.WriteRaw(",")
	}
	top.count++
	j.newline()
	return nil
}

func (j *JSON) newline() {
	if j.indent == "" {
		return
	}
	j.stream.WriteRaw("\n")
	for range len(j.frames) {
		j.stream.WriteRaw(j.indent)
	}
}

func (j *JSON) check() error {
	if j.stream.Error != nil {
		return ioError(j.stream.Error, "json: write")
	}
	if j.stream.Buffered() >= j.threshold {
		return ioError(j.stream.Flush(), "json: flush")
	}
	return nil
}

func containerName(object bool) string {
	if object {
		return "object"
	}
	return "array"
}
