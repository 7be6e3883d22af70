package sink

import (
	"io"
	"math"

	"go.mongodb.org/mongo-driver/bson/bsonrw"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
)

// BSON adapts the MongoDB driver's streaming value writers to [Writer]. The
// same type backs both the binary and the Extended JSON encodings.
//
// BSON documents must have an object at the top level; a top-level array or
// scalar returns an UNSUPPORTED error. Unsigned integers that overflow int64
// are written as doubles.
type BSON struct {
	format string
	root   bsonrw.ValueWriter
	stack  []bsonFrame
	name   string
	named  bool
	done   bool
}

type bsonFrame struct {
	doc bsonrw.DocumentWriter
	arr bsonrw.ArrayWriter
}

// NewBSON creates a binary BSON sink.
func NewBSON(w io.Writer) (*BSON, error) {
	vw, err := bsonrw.NewBSONValueWriter(w)
	if err != nil {
		return nil, ioError(err, "bson: create writer")
	}
	return &BSON{format: FormatBSON, root: vw}, nil
}

// NewExtJSON creates an Extended JSON sink. Canonical output preserves BSON
// type information for every number; relaxed output uses plain JSON numbers
// where possible.
func NewExtJSON(w io.Writer, canonical bool) (*BSON, error) {
	vw, err := bsonrw.NewExtJSONValueWriter(w, canonical, false)
	if err != nil {
		return nil, ioError(err, "extjson: create writer")
	}
	return &BSON{format: FormatExtJSON, root: vw}, nil
}

func (b *BSON) BeginDocument(string, string) error { return nil }

func (b *BSON) EndDocument() error {
	if len(b.stack) > 0 {
		return errors.New(errors.ErrCodeInternal, "%s: %d unclosed containers at end of document", b.format, len(b.stack))
	}
	return nil
}

func (b *BSON) BeginObject(graph.Object) error {
	vw, err := b.next(true)
	if err != nil {
		return err
	}
	dw, err := vw.WriteDocument()
	if err != nil {
		return ioError(err, b.format+": begin document")
	}
	b.stack = append(b.stack, bsonFrame{doc: dw})
	return nil
}

func (b *BSON) EndObject(graph.Object) error {
	top, err := b.pop(true)
	if err != nil {
		return err
	}
	return ioError(top.doc.WriteDocumentEnd(), b.format+": end document")
}

func (b *BSON) BeginArray() error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	aw, err := vw.WriteArray()
	if err != nil {
		return ioError(err, b.format+": begin array")
	}
	b.stack = append(b.stack, bsonFrame{arr: aw})
	return nil
}

func (b *BSON) EndArray() error {
	top, err := b.pop(false)
	if err != nil {
		return err
	}
	return ioError(top.arr.WriteArrayEnd(), b.format+": end array")
}

func (b *BSON) Name(name string) error {
	if len(b.stack) == 0 || b.stack[len(b.stack)-1].doc == nil {
		return errors.New(errors.ErrCodeInternal, "%s: name %q outside of a document", b.format, name)
	}
	if b.named {
		return errors.New(errors.ErrCodeInternal, "%s: name %q follows a name without a value", b.format, name)
	}
	b.name, b.named = name, true
	return nil
}

func (b *BSON) String(v string) error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	return ioError(vw.WriteString(v), b.format+": write string")
}

func (b *BSON) Int(v int64) error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	return ioError(vw.WriteInt64(v), b.format+": write int")
}

func (b *BSON) Uint(v uint64) error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	if v > math.MaxInt64 {
		return ioError(vw.WriteDouble(float64(v)), b.format+": write uint")
	}
	return ioError(vw.WriteInt64(int64(v)), b.format+": write uint")
}

func (b *BSON) Float(v float64) error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	return ioError(vw.WriteDouble(v), b.format+": write double")
}

func (b *BSON) Bool(v bool) error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	return ioError(vw.WriteBoolean(v), b.format+": write bool")
}

func (b *BSON) Null() error {
	vw, err := b.next(false)
	if err != nil {
		return err
	}
	return ioError(vw.WriteNull(), b.format+": write null")
}

// next returns the value writer for the next value. Only a document may be
// written at the top level, and only once.
func (b *BSON) next(document bool) (bsonrw.ValueWriter, error) {
	if len(b.stack) == 0 {
		if !document {
			return nil, errors.New(errors.ErrCodeUnsupported, "%s: top-level value must be a document", b.format)
		}
		if b.done {
			return nil, errors.New(errors.ErrCodeUnsupported, "%s: only one top-level document per sink", b.format)
		}
		b.done = true
		return b.root, nil
	}
	top := b.stack[len(b.stack)-1]
	if top.doc != nil {
		if !b.named {
			return nil, errors.New(errors.ErrCodeInternal, "%s: value inside a document without a name", b.format)
		}
		b.named = false
		vw, err := top.doc.WriteDocumentElement(b.name)
		return vw, ioError(err, b.format+": write element "+b.name)
	}
	vw, err := top.arr.WriteArrayElement()
	return vw, ioError(err, b.format+": write array element")
}

func (b *BSON) pop(document bool) (bsonFrame, error) {
	n := len(b.stack)
	if n == 0 || (b.stack[n-1].doc != nil) != document {
		return bsonFrame{}, errors.New(errors.ErrCodeInternal, "%s: unbalanced end of %s", b.format, containerName(document))
	}
	if b.named {
		return bsonFrame{}, errors.New(errors.ErrCodeInternal, "%s: document closed after a name without a value", b.format)
	}
	top := b.stack[n-1]
	b.stack = b.stack[:n-1]
	return top, nil
}
