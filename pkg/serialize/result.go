package serialize

import (
	"fmt"
	"time"

	"github.com/matzehuels/graphwriter/pkg/graph"
)

// Result is the response envelope streamed by [Writer.Stream].
//
// Pointer fields and empty strings are omitted from the output. A nil Results
// slice omits the payload field; an empty, non-nil slice writes [] (or null
// for primitive results).
type Result struct {
	Results []any

	// Collection marks the result as a list resource. A result that is not
	// a collection must hold at most one entry.
	Collection bool

	// PrimitiveArray marks results that hold raw values rather than entities.
	PrimitiveArray bool

	OutputNestingDepth *int
	Page               *int
	PageCount          *int
	PageSize           *int
	RawResultCount     *int

	QueryTime string

	// Query echo fields are written whenever set, including empty strings.
	SearchString *string
	SortKey      *string
	SortOrder    *string

	// MetaData is emitted under "meta_data" at depth 0.
	MetaData any

	// BaseURL is passed to the sink for link generation.
	BaseURL string

	// Subject describes the request in logs and hooks, e.g. "/v1/Project".
	Subject string

	// Ranges restricts collection-valued properties by wire name.
	Ranges map[string]*graph.Range
}

// Ptr returns a pointer to v, for the optional envelope fields.
func Ptr[T any](v T) *T { return &v }

// NewCollection creates a collection result.
func NewCollection(items ...any) *Result {
	if items == nil {
		items = []any{}
	}
	return &Result{Results: items, Collection: true}
}

// NewSingle creates a single-resource result.
func NewSingle(item any) *Result {
	return &Result{Results: []any{item}}
}

// NewPrimitive creates a result of raw values, e.g. a single attribute read.
func NewPrimitive(values ...any) *Result {
	if values == nil {
		values = []any{}
	}
	return &Result{Results: values, PrimitiveArray: true}
}

// FromPage creates a collection result carrying the paging fields of page.
func FromPage(page graph.Page) *Result {
	r := NewCollection(page.Values()...)
	r.RawResultCount = Ptr(page.RawCount)
	if page.PageSize > 0 {
		r.Page = Ptr(page.Page)
		r.PageSize = Ptr(page.PageSize)
		r.PageCount = Ptr(page.PageCount)
	}
	return r
}

// Warning describes a property that was omitted or left unconverted.
type Warning struct {
	Type  string // entity type, empty for maps and envelopes
	Key   string // wire name
	Value any    // value being emitted, nil if it was never fetched
	Err   error

	// Converted is true when the value was still emitted after a failed
	// conversion, false when the property was dropped.
	Converted bool
}

func (w Warning) Error() string {
	if w.Converted {
		return fmt.Sprintf("convert %s.%s: %v", w.Type, w.Key, w.Err)
	}
	return fmt.Sprintf("emit %s.%s: %v", w.Type, w.Key, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Report summarizes one stream call.
type Report struct {
	// Emitted counts the top-level result entries written.
	Emitted int

	// Truncated is set when the budget or the context stopped the result
	// loop before every entry was written.
	Truncated bool

	Elapsed  time.Duration
	Warnings []Warning
}
