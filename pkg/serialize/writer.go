package serialize

import (
	"context"
	"time"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/observability"
	"github.com/matzehuels/graphwriter/pkg/scalar"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

// Envelope field names.
const (
	FieldOutputNestingDepth = "output_nesting_depth"
	FieldPage               = "page"
	FieldPageCount          = "page_count"
	FieldPageSize           = "page_size"
	FieldQueryTime          = "query_time"
	FieldResultCount        = "result_count"
	FieldTruncated          = "truncated"
	FieldSearchString       = "search_string"
	FieldSortKey            = "sort_key"
	FieldSortOrder          = "sort_order"
	FieldMetaData           = "meta_data"
	FieldSerializationTime  = "serialization_time"
)

// Writer streams results with a fixed configuration. It is safe for
// concurrent use.
type Writer struct {
	opts Options
}

// New creates a writer. Zero string, duration and pointer fields of opts fall
// back to their defaults.
func New(opts Options) *Writer {
	return &Writer{opts: opts.normalized()}
}

// Options returns the effective configuration.
func (w *Writer) Options() Options { return w.opts }

// StreamSingle writes a document holding exactly one entity at depth 0.
func (w *Writer) StreamSingle(ctx context.Context, out sink.Writer, obj graph.Object) (Report, error) {
	start := w.opts.Clock()
	e := newEmitter(ctx, &w.opts, out, nil)

	emitted, err := w.streamSingle(e, obj)
	report := Report{Elapsed: w.opts.Clock().Sub(start), Warnings: e.warnings}
	if emitted {
		report.Emitted = 1
	}
	return report, err
}

// streamSingle reports whether obj was written in full.
func (w *Writer) streamSingle(e *Emitter, obj graph.Object) (bool, error) {
	if err := e.out.BeginDocument("", w.opts.View); err != nil {
		return false, err
	}
	var value any = obj
	recovered, err := e.recoverable(typeOf(obj), "", &value, func() error {
		return e.Object(obj, 0)
	})
	if err != nil {
		return false, err
	}
	return obj != nil && !recovered, e.out.EndDocument()
}

// Stream writes result inside the document envelope.
//
// The returned error is non-nil when the sink failed (SINK_IO), when a
// single-resource result holds more than one entry (RESOURCE_SHAPE) or when
// ctx was cancelled during the result loop (CANCELED). In the last case the
// output is still complete and balanced.
func (w *Writer) Stream(ctx context.Context, out sink.Writer, result *Result) (Report, error) {
	if result == nil {
		return Report{}, errors.New(errors.ErrCodeInvalidInput, "nil result")
	}
	hooks := observability.Stream()
	hooks.OnStreamStart(ctx, result.Subject, w.opts.View)

	start := w.opts.Clock()
	s := &stream{w: w, e: newEmitter(ctx, &w.opts, out, result.Ranges), result: result, start: start}
	err := s.run()

	report := Report{
		Emitted:   s.emitted,
		Truncated: s.truncated,
		Elapsed:   w.opts.Clock().Sub(start),
		Warnings:  s.e.warnings,
	}
	hooks.OnStreamComplete(ctx, result.Subject, report.Emitted, report.Elapsed, err)
	return report, err
}

// stream is the state of one Stream call.
type stream struct {
	w      *Writer
	e      *Emitter
	result *Result
	start  time.Time

	emitted   int
	truncated bool
	canceled  error
}

func (s *stream) run() error {
	out, r, opts := s.e.out, s.result, &s.w.opts

	if err := out.BeginDocument(r.BaseURL, opts.View); err != nil {
		return err
	}
	if err := out.BeginObject(nil); err != nil {
		return err
	}

	if err := s.intField(FieldOutputNestingDepth, r.OutputNestingDepth); err != nil {
		return err
	}
	if err := s.intField(FieldPage, r.Page); err != nil {
		return err
	}
	if err := s.intField(FieldPageCount, r.PageCount); err != nil {
		return err
	}
	if err := s.intField(FieldPageSize, r.PageSize); err != nil {
		return err
	}
	if r.QueryTime != "" {
		if err := s.stringField(FieldQueryTime, &r.QueryTime); err != nil {
			return err
		}
	}
	if opts.RenderResultCount {
		if err := s.intField(FieldResultCount, r.RawResultCount); err != nil {
			return err
		}
	}

	if r.Results != nil {
		if err := s.payload(); err != nil {
			return err
		}
	}
	if s.truncated && opts.MarkTruncation {
		if err := out.Name(FieldTruncated); err != nil {
			return err
		}
		if err := out.Bool(true); err != nil {
			return err
		}
	}

	if err := s.stringField(FieldSearchString, r.SearchString); err != nil {
		return err
	}
	if err := s.stringField(FieldSortKey, r.SortKey); err != nil {
		return err
	}
	if err := s.stringField(FieldSortOrder, r.SortOrder); err != nil {
		return err
	}
	if r.MetaData != nil {
		meta := r.MetaData
		if err := s.e.guard("", FieldMetaData, &meta, func() error {
			if err := out.Name(FieldMetaData); err != nil {
				return err
			}
			return s.e.Value(meta, 0)
		}); err != nil {
			return err
		}
	}
	if opts.RenderSerializationTime {
		elapsed := opts.Clock().Sub(s.start)
		if err := s.stringField(FieldSerializationTime, Ptr(scalar.FormatSeconds(elapsed))); err != nil {
			return err
		}
	}

	if err := out.EndObject(nil); err != nil {
		return err
	}
	if err := out.EndDocument(); err != nil {
		return err
	}
	if s.canceled != nil {
		return errors.Wrap(errors.ErrCodeCanceled, s.canceled, "serialization of %s canceled after %d results", s.subject(), s.emitted)
	}
	return nil
}

// payload writes the result field. The shape check runs before anything of
// the payload reaches the sink.
func (s *stream) payload() error {
	out, items, key := s.e.out, s.result.Results, s.w.opts.ResultKey

	switch {
	case len(items) == 0 && s.result.PrimitiveArray:
		if err := out.Name(key); err != nil {
			return err
		}
		return out.Null()

	case len(items) == 0:
		if err := out.Name(key); err != nil {
			return err
		}
		if err := out.BeginArray(); err != nil {
			return err
		}
		return out.EndArray()

	case s.result.PrimitiveArray:
		return s.primitives()

	case len(items) > 1 && !s.result.Collection:
		return errors.New(errors.ErrCodeResourceShape,
			"%s is not a collection resource, but the result has %d entries", s.subject(), len(items))

	case s.result.Collection:
		if err := out.Name(key); err != nil {
			return err
		}
		if err := out.BeginArray(); err != nil {
			return err
		}
		loopStart := s.w.opts.Clock()
		for i, item := range items {
			if err := s.entry(item, ""); err != nil {
				return err
			}
			if i < len(items)-1 && s.stop(loopStart) {
				break
			}
		}
		return out.EndArray()
	}

	return s.entry(items[0], key)
}

// entry writes one top-level result, optionally under name.
func (s *stream) entry(item any, name string) error {
	value := item
	recovered, err := s.e.recoverable(typeOf(item), name, &value, func() error {
		if name != "" {
			if err := s.e.out.Name(name); err != nil {
				return err
			}
		}
		return s.e.Value(item, 0)
	})
	// A recovered entry is dropped from the output and not counted.
	if err == nil && !recovered {
		s.emitted++
	}
	return err
}

// primitives writes a primitive-array result. A single value is written bare,
// more than one as an array. Null entries inside an array are skipped.
// Entities contribute the values of their view properties without an object
// frame.
func (s *stream) primitives() error {
	out, items := s.e.out, s.result.Results
	multi := len(items) > 1

	if err := out.Name(s.w.opts.ResultKey); err != nil {
		return err
	}
	if multi {
		if err := out.BeginArray(); err != nil {
			return err
		}
	}

	loopStart := s.w.opts.Clock()
	for i, item := range items {
		if scalar.IsNull(item) {
			if !multi {
				if err := out.Null(); err != nil {
					return err
				}
			}
			continue
		}
		obj, ok := item.(graph.Object)
		if !ok {
			if err := s.e.Value(item, 0); err != nil {
				return err
			}
			s.emitted++
			continue
		}
		if err := s.entityValues(obj, !multi); err != nil {
			return err
		}
		s.emitted++
		if i < len(items)-1 && s.stop(loopStart) {
			break
		}
	}

	if multi {
		return out.EndArray()
	}
	return nil
}

// entityValues writes the view property values of obj. When obj is the only
// result and its view has other than exactly one key, the values are wrapped
// in an array to keep the result field a single value.
func (s *stream) entityValues(obj graph.Object, single bool) error {
	out := s.e.out
	keys := obj.PropertyKeys(s.w.opts.View)
	wrap := single && len(keys) != 1
	if wrap {
		if err := out.BeginArray(); err != nil {
			return err
		}
	}
	for _, key := range keys {
		var value any
		if err := s.e.guard(obj.Type(), key.WireName(), &value, func() error {
			v, err := obj.Property(key)
			value = v
			if err != nil {
				return err
			}
			return s.e.convertAndEmit(obj.Type(), key, v, 0)
		}); err != nil {
			return err
		}
	}
	if wrap {
		return out.EndArray()
	}
	return nil
}

// stop reports whether the result loop must end: the context is done or the
// budget since loopStart is exhausted.
func (s *stream) stop(loopStart time.Time) bool {
	ctx, opts := s.e.ctx, &s.w.opts
	if err := ctx.Err(); err != nil {
		s.canceled = err
		s.truncated = true
		opts.Logger.Warn("serialization canceled, output truncated",
			"subject", s.subject(), "results", len(s.result.Results), "emitted", s.emitted)
		observability.Stream().OnTruncated(ctx, s.result.Subject, s.emitted, opts.Budget)
		return true
	}
	if opts.Clock().Sub(loopStart) > opts.Budget {
		s.truncated = true
		opts.Logger.Error("serialization budget exceeded, output truncated",
			"subject", s.subject(), "results", len(s.result.Results), "emitted", s.emitted, "budget", opts.Budget)
		observability.Stream().OnTruncated(ctx, s.result.Subject, s.emitted, opts.Budget)
		return true
	}
	return false
}

func (s *stream) intField(name string, v *int) error {
	if v == nil {
		return nil
	}
	if err := s.e.out.Name(name); err != nil {
		return err
	}
	return s.e.out.Int(int64(*v))
}

func (s *stream) stringField(name string, v *string) error {
	if v == nil {
		return nil
	}
	if err := s.e.out.Name(name); err != nil {
		return err
	}
	return s.e.out.String(*v)
}

func (s *stream) subject() string {
	if s.result.Subject != "" {
		return s.result.Subject
	}
	return "result"
}

func typeOf(v any) string {
	if obj, ok := v.(graph.Object); ok && !scalar.IsNull(v) {
		return obj.Type()
	}
	return ""
}
