package serialize

import (
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

type openFrame struct {
	object bool
	obj    graph.Object
}

// balancedWriter sits between the traversal and the sink. It keeps the stack
// of open containers so a failed property can be unwound to the depth it
// started at, and it holds back each name until its value is written, so a
// property that fails before producing a value leaves no trace.
type balancedWriter struct {
	w       sink.Writer
	frames  []openFrame
	pending string
	named   bool
}

func newBalancedWriter(w sink.Writer) *balancedWriter {
	return &balancedWriter{w: w, frames: make([]openFrame, 0, 16)}
}

// mark returns the current depth for a later unwind.
func (b *balancedWriter) mark() int { return len(b.frames) }

// unwind drops a pending name and closes every container opened after mark.
func (b *balancedWriter) unwind(mark int) error {
	b.named = false
	for len(b.frames) > mark {
		top := b.frames[len(b.frames)-1]
		b.frames = b.frames[:len(b.frames)-1]
		var err error
		if top.object {
			err = b.w.EndObject(top.obj)
		} else {
			err = b.w.EndArray()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *balancedWriter) flush() error {
	if !b.named {
		return nil
	}
	b.named = false
	return b.w.Name(b.pending)
}

func (b *balancedWriter) BeginDocument(baseURL, view string) error {
	return b.w.BeginDocument(baseURL, view)
}

func (b *balancedWriter) EndDocument() error { return b.w.EndDocument() }

func (b *balancedWriter) BeginObject(obj graph.Object) error {
	if err := b.flush(); err != nil {
		return err
	}
	if err := b.w.BeginObject(obj); err != nil {
		return err
	}
	b.frames = append(b.frames, openFrame{object: true, obj: obj})
	return nil
}

func (b *balancedWriter) EndObject(obj graph.Object) error {
	b.named = false
	if n := len(b.frames); n > 0 {
		b.frames = b.frames[:n-1]
	}
	return b.w.EndObject(obj)
}

func (b *balancedWriter) BeginArray() error {
	if err := b.flush(); err != nil {
		return err
	}
	if err := b.w.BeginArray(); err != nil {
		return err
	}
	b.frames = append(b.frames, openFrame{})
	return nil
}

func (b *balancedWriter) EndArray() error {
	b.named = false
	if n := len(b.frames); n > 0 {
		b.frames = b.frames[:n-1]
	}
	return b.w.EndArray()
}

// Name replaces any name that is still waiting for its value.
func (b *balancedWriter) Name(name string) error {
	b.pending, b.named = name, true
	return nil
}

func (b *balancedWriter) String(v string) error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.String(v)
}

func (b *balancedWriter) Int(v int64) error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.Int(v)
}

func (b *balancedWriter) Uint(v uint64) error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.Uint(v)
}

func (b *balancedWriter) Float(v float64) error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.Float(v)
}

func (b *balancedWriter) Bool(v bool) error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.Bool(v)
}

func (b *balancedWriter) Null() error {
	if err := b.flush(); err != nil {
		return err
	}
	return b.w.Null()
}
