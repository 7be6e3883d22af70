package serialize

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

// Defaults applied by [DefaultOptions] and by [New] for zero fields.
const (
	DefaultResultKey = "result"
	DefaultMaxDepth  = 3
	DefaultBudget    = 300 * time.Second
)

// Options configures a [Writer]. Start from [DefaultOptions]; the boolean
// fields cannot be defaulted because their zero value is meaningful.
type Options struct {
	// View is the property view used for every entity.
	View string

	// ResultKey names the payload field of the envelope.
	ResultKey string

	// RenderSerializationTime appends "serialization_time" to the envelope.
	RenderSerializationTime bool

	// RenderResultCount emits "result_count" when the result carries one.
	RenderResultCount bool

	// ReduceRedundancy omits properties whose value is an entity that is
	// already being emitted further up the current path.
	ReduceRedundancy bool

	// MaxDepth is the inclusive depth up to which entity properties are
	// expanded. Zero expands only the root entities.
	MaxDepth int

	// Indent selects indented output for sinks created by [Writer.NewSink].
	Indent bool

	// CompactNestedProperties collapses nested entities to id, type and name
	// when a full view (ui, all) is active.
	CompactNestedProperties bool

	// Budget bounds the wall-clock time of the result loop.
	Budget time.Duration

	// MarkTruncation adds "truncated": true to the envelope when the result
	// loop stopped early.
	MarkTruncation bool

	// KeyResolver resolves type-specific keys for the internal graph view.
	// Nil disables the name key substitution.
	KeyResolver graph.KeyResolver

	// Registry maps runtime types to serializers. Nil creates a private
	// registry with the built-in serializers.
	Registry *Registry

	// Logger receives property warnings and budget events. Nil uses
	// log.Default().
	Logger *log.Logger

	// Clock returns the current time. Nil uses time.Now.
	Clock func() time.Time
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		View:                    graph.ViewPublic,
		ResultKey:               DefaultResultKey,
		RenderSerializationTime: true,
		RenderResultCount:       true,
		ReduceRedundancy:        false,
		MaxDepth:                DefaultMaxDepth,
		Indent:                  true,
		CompactNestedProperties: true,
		Budget:                  DefaultBudget,
		MarkTruncation:          true,
	}
}

func (o Options) normalized() Options {
	if o.View == "" {
		o.View = graph.ViewPublic
	}
	if o.ResultKey == "" {
		o.ResultKey = DefaultResultKey
	}
	if o.MaxDepth < 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.Registry == nil {
		o.Registry = NewRegistry()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// NewSink creates a sink for format honouring [Options.Indent].
func (w *Writer) NewSink(format string, out io.Writer) (sink.Writer, error) {
	return sink.ByFormat(format, out, w.opts.Indent)
}
