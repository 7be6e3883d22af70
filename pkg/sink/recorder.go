package sink

import (
	"fmt"
	"strings"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/scalar"
)

// EventKind identifies a recorded sink call.
type EventKind int

const (
	EventBeginDocument EventKind = iota
	EventEndDocument
	EventBeginObject
	EventEndObject
	EventBeginArray
	EventEndArray
	EventName
	EventValue
)

// Event is one recorded sink call.
type Event struct {
	Kind    EventKind
	Name    string       // EventName, and the view for EventBeginDocument
	Value   scalar.Value // EventValue
	Object  graph.Object // EventBeginObject / EventEndObject, may be nil
	BaseURL string       // EventBeginDocument
}

// String renders the event in the compact trace notation used by
// [Recorder.Trace].
func (e Event) String() string {
	switch e.Kind {
	case EventBeginDocument:
		return "<doc " + e.Name + ">"
	case EventEndDocument:
		return "</doc>"
	case EventBeginObject:
		return "{"
	case EventEndObject:
		return "}"
	case EventBeginArray:
		return "["
	case EventEndArray:
		return "]"
	case EventName:
		return e.Name + ":"
	}
	switch e.Value.Kind {
	case scalar.KindString:
		return fmt.Sprintf("%q", e.Value.Str)
	case scalar.KindInt:
		return fmt.Sprint(e.Value.Int)
	case scalar.KindUint:
		return fmt.Sprint(e.Value.Uint)
	case scalar.KindFloat:
		return fmt.Sprint(e.Value.Float)
	case scalar.KindBool:
		return fmt.Sprint(e.Value.Bool)
	}
	return "null"
}

// Recorder is a [Writer] that keeps every call in memory. It checks the same
// structural rules as the real encodings and can be told to fail after a
// number of calls to simulate a broken connection.
type Recorder struct {
	Events []Event

	stack     []bool // true for objects
	named     bool
	failAfter int
	failErr   error
	calls     int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{failAfter: -1}
}

// FailAfter makes every call after the first n return err wrapped as SINK_IO.
func (r *Recorder) FailAfter(n int, err error) *Recorder {
	r.failAfter, r.failErr = n, err
	return r
}

// Depth returns the number of open containers.
func (r *Recorder) Depth() int { return len(r.stack) }

// Balanced reports whether every opened container has been closed and no
// name is left without a value.
func (r *Recorder) Balanced() bool { return len(r.stack) == 0 && !r.named }

// Trace joins all events with single spaces, e.g. `{ id: "a" }`.
func (r *Recorder) Trace() string {
	parts := make([]string, len(r.Events))
	for i, e := range r.Events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Names returns the names declared directly inside the first object that
// was begun for obj.
func (r *Recorder) Names(obj graph.Object) []string {
	var names []string
	depth := -1
	for _, e := range r.Events {
		switch e.Kind {
		case EventBeginObject, EventBeginArray:
			if depth >= 0 {
				depth++
			} else if e.Kind == EventBeginObject && e.Object != nil && e.Object.Identity() == obj.Identity() {
				depth = 0
			}
		case EventEndObject, EventEndArray:
			if depth == 0 {
				return names
			}
			if depth > 0 {
				depth--
			}
		case EventName:
			if depth == 0 {
				names = append(names, e.Name)
			}
		}
	}
	return names
}

func (r *Recorder) record(e Event) error {
	r.calls++
	if r.failAfter >= 0 && r.calls > r.failAfter {
		return errors.Wrap(errors.ErrCodeSinkIO, r.failErr, "recorder: write")
	}
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) value(v scalar.Value) error {
	if n := len(r.stack); n > 0 && r.stack[n-1] {
		if !r.named {
			return errors.New(errors.ErrCodeInternal, "recorder: value inside an object without a name")
		}
		r.named = false
	}
	return r.record(Event{Kind: EventValue, Value: v})
}

func (r *Recorder) BeginDocument(baseURL, view string) error {
	return r.record(Event{Kind: EventBeginDocument, Name: view, BaseURL: baseURL})
}

func (r *Recorder) EndDocument() error {
	if !r.Balanced() {
		return errors.New(errors.ErrCodeInternal, "recorder: %d unclosed containers at end of document", len(r.stack))
	}
	return r.record(Event{Kind: EventEndDocument})
}

func (r *Recorder) BeginObject(obj graph.Object) error {
	return r.begin(true, Event{Kind: EventBeginObject, Object: obj})
}

func (r *Recorder) EndObject(obj graph.Object) error {
	return r.end(true, Event{Kind: EventEndObject, Object: obj})
}

func (r *Recorder) BeginArray() error { return r.begin(false, Event{Kind: EventBeginArray}) }
func (r *Recorder) EndArray() error   { return r.end(false, Event{Kind: EventEndArray}) }

func (r *Recorder) Name(name string) error {
	if n := len(r.stack); n == 0 || !r.stack[n-1] {
		return errors.New(errors.ErrCodeInternal, "recorder: name %q outside of an object", name)
	}
	if r.named {
		return errors.New(errors.ErrCodeInternal, "recorder: name %q follows a name without a value", name)
	}
	if err := r.record(Event{Kind: EventName, Name: name}); err != nil {
		return err
	}
	r.named = true
	return nil
}

func (r *Recorder) String(v string) error { return r.value(scalar.Value{Kind: scalar.KindString, Str: v}) }
func (r *Recorder) Int(v int64) error     { return r.value(scalar.Value{Kind: scalar.KindInt, Int: v}) }
func (r *Recorder) Uint(v uint64) error   { return r.value(scalar.Value{Kind: scalar.KindUint, Uint: v}) }
func (r *Recorder) Float(v float64) error { return r.value(scalar.Value{Kind: scalar.KindFloat, Float: v}) }
func (r *Recorder) Bool(v bool) error     { return r.value(scalar.Value{Kind: scalar.KindBool, Bool: v}) }
func (r *Recorder) Null() error           { return r.value(scalar.Value{Kind: scalar.KindNull}) }

func (r *Recorder) begin(object bool, e Event) error {
	if n := len(r.stack); n > 0 && r.stack[n-1] {
		if !r.named {
			return errors.New(errors.ErrCodeInternal, "recorder: container inside an object without a name")
		}
		r.named = false
	}
	if err := r.record(e); err != nil {
		return err
	}
	r.stack = append(r.stack, object)
	return nil
}

func (r *Recorder) end(object bool, e Event) error {
	n := len(r.stack)
	if n == 0 || r.stack[n-1] != object {
		return errors.New(errors.ErrCodeInternal, "recorder: unbalanced end of %s", containerName(object))
	}
	if r.named {
		return errors.New(errors.ErrCodeInternal, "recorder: object closed after a name without a value")
	}
	if err := r.record(e); err != nil {
		return err
	}
	r.stack = r.stack[:n-1]
	return nil
}
