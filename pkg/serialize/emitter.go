package serialize

import (
	"context"
	"fmt"
	"reflect"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/observability"
	"github.com/matzehuels/graphwriter/pkg/scalar"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

// Emitter is the traversal state of one stream call. Custom serializers
// receive it to write through the same sink and to recurse into nested
// values.
type Emitter struct {
	ctx      context.Context
	opts     *Options
	out      *balancedWriter
	visits   tracker
	ranges   map[string]*graph.Range
	warnings []Warning
}

func newEmitter(ctx context.Context, opts *Options, out sink.Writer, ranges map[string]*graph.Range) *Emitter {
	return &Emitter{
		ctx:    ctx,
		opts:   opts,
		out:    newBalancedWriter(out),
		visits: make(tracker),
		ranges: ranges,
	}
}

// Context returns the context of the stream call.
func (e *Emitter) Context() context.Context { return e.ctx }

// Sink returns the writer that serializers must use.
func (e *Emitter) Sink() sink.Writer { return e.out }

// View returns the active view name.
func (e *Emitter) View() string { return e.opts.View }

// Expand reports whether containers at depth may emit their contents.
func (e *Emitter) Expand(depth int) bool { return depth <= e.opts.MaxDepth }

// Value emits an arbitrary value: null for nil and the null marker, the
// registered serializer when there is one, a scalar leaf otherwise.
func (e *Emitter) Value(v any, depth int) error {
	if scalar.IsNull(v) {
		return e.out.Null()
	}
	if s := e.opts.Registry.Resolve(reflect.TypeOf(v)); s != nil {
		return s.Serialize(e, v, depth)
	}
	return sink.WriteValue(e.out, v)
}

// Object emits one entity. Its properties are expanded while depth is within
// the bound; past it only the empty object frame is written.
func (e *Emitter) Object(obj graph.Object, depth int) error {
	if obj == nil || scalar.IsNull(obj) {
		return nil
	}
	id := obj.Identity()
	e.visits.enter(id)
	defer e.visits.leave(id)

	if err := e.out.BeginObject(obj); err != nil {
		return err
	}
	if e.Expand(depth) {
		keys := obj.PropertyKeys(e.opts.View)
		if keys != nil && depth > 0 && e.opts.CompactNestedProperties && graph.IsFullView(e.opts.View) {
			keys = graph.IdentityKeys()
		}
		for _, key := range keys {
			if err := e.entityProperty(obj, key, depth); err != nil {
				return err
			}
		}
	}
	return e.out.EndObject(obj)
}

// Property emits name and value of a declared key, applying the key's
// converter. Failures are recorded as warnings and the property is dropped.
func (e *Emitter) Property(typeName string, key graph.PropertyKey, value any, depth int) error {
	return e.guard(typeName, key.WireName(), &value, func() error {
		if err := e.out.Name(key.WireName()); err != nil {
			return err
		}
		return e.convertAndEmit(typeName, key, value, depth)
	})
}

func (e *Emitter) entityProperty(obj graph.Object, key graph.PropertyKey, depth int) error {
	var value any
	return e.guard(obj.Type(), key.WireName(), &value, func() error {
		r := e.ranges[key.WireName()]
		r.Reset()

		local := key
		if e.opts.View == graph.ViewGraph && graph.IsNameKey(key) && e.opts.KeyResolver != nil {
			if k, ok := e.opts.KeyResolver.Key(obj.Type(), graph.NameKey.WireName()); ok {
				local = k
			}
		}

		v, err := fetch(obj, local, r)
		value = v
		if err != nil {
			return err
		}
		if v == nil {
			if err := e.out.Name(local.WireName()); err != nil {
				return err
			}
			return e.out.Null()
		}
		if e.opts.ReduceRedundancy && e.visits.holds(v) {
			return nil
		}
		if err := e.out.Name(key.WireName()); err != nil {
			return err
		}
		return e.convertAndEmit(obj.Type(), local, v, depth+1)
	})
}

func fetch(obj graph.Object, key graph.PropertyKey, r *graph.Range) (any, error) {
	if r != nil {
		if ro, ok := obj.(graph.RangedObject); ok {
			return ro.PropertyRange(key, r)
		}
	}
	return obj.Property(key)
}

// convertAndEmit applies the key's converter and emits the result. A failed
// conversion keeps the partially converted value if there is one, else the
// original, and records a warning.
func (e *Emitter) convertAndEmit(typeName string, key graph.PropertyKey, value any, depth int) error {
	if convert := key.Converter(); convert != nil {
		converted, err := convert(value)
		if err != nil {
			e.warn(Warning{Type: typeName, Key: key.WireName(), Value: value, Err: err, Converted: true})
			if converted == nil {
				converted = value
			}
		}
		value = converted
	}
	return e.Value(value, depth)
}

// guard runs fn as one recoverable unit. Any error other than a sink failure,
// and any panic, unwinds the sink to the depth fn started at and becomes a
// warning.
func (e *Emitter) guard(typeName, key string, value *any, fn func() error) error {
	_, err := e.recoverable(typeName, key, value, fn)
	return err
}

// recoverable is guard that also reports whether fn failed and was unwound.
func (e *Emitter) recoverable(typeName, key string, value *any, fn func() error) (recovered bool, err error) {
	mark := e.out.mark()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil || errors.Has(err, errors.ErrCodeSinkIO) {
			return
		}
		w := Warning{Type: typeName, Key: key, Value: *value, Err: err}
		recovered = true
		err = e.out.unwind(mark)
		e.warn(w)
	}()
	return false, fn()
}

func (e *Emitter) warn(w Warning) {
	e.warnings = append(e.warnings, w)
	if w.Converted {
		e.opts.Logger.Debug("property conversion failed", "key", w.Key, "type", w.Type, "value", w.Value, "error", w.Err)
		return
	}
	e.opts.Logger.Warn("property serialization failed", "key", w.Key, "type", w.Type, "value", w.Value, "error", w.Err)
	observability.Stream().OnPropertyError(e.ctx, w.Type, w.Key, w.Err)
}
