package serialize

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/observability"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

type recordingHooks struct {
	observability.NoopStreamHooks

	mu             sync.Mutex
	started        int
	completed      int
	emitted        int
	truncatedAt    []int
	propertyErrors []string
	lastErr        error
}

func (h *recordingHooks) OnStreamStart(context.Context, string, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started++
}

func (h *recordingHooks) OnStreamComplete(_ context.Context, _ string, emitted int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed++
	h.emitted = emitted
	h.lastErr = err
}

func (h *recordingHooks) OnTruncated(_ context.Context, _ string, emitted int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.truncatedAt = append(h.truncatedAt, emitted)
}

func (h *recordingHooks) OnPropertyError(_ context.Context, typeName, key string, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.propertyErrors = append(h.propertyErrors, typeName+"."+key)
}

func installHooks(t *testing.T) *recordingHooks {
	t.Helper()
	h := &recordingHooks{}
	observability.SetStreamHooks(h)
	t.Cleanup(observability.Reset)
	return h
}

func runStream(t *testing.T, opts Options, result *Result) (*sink.Recorder, Report, error) {
	t.Helper()
	rec := sink.NewRecorder()
	report, err := New(opts).Stream(context.Background(), rec, result)
	if !rec.Balanced() {
		t.Fatalf("unbalanced output: %s", rec.Trace())
	}
	return rec, report, err
}

func TestStreamEnvelopeOrder(t *testing.T) {
	store := testGraph(t)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	opts := testOptions()
	opts.RenderSerializationTime = true
	opts.Clock = func() time.Time { return fixed }

	result := NewCollection(node(t, store, "u1"))
	result.OutputNestingDepth = Ptr(2)
	result.Page = Ptr(1)
	result.PageCount = Ptr(3)
	result.PageSize = Ptr(2)
	result.QueryTime = "0.001"
	result.RawResultCount = Ptr(5)
	result.SearchString = Ptr("a")
	result.SortKey = Ptr("name")
	result.SortOrder = Ptr("asc")
	result.MetaData = map[string]any{"k": "v"}

	var buf bytes.Buffer
	if _, err := New(opts).Stream(context.Background(), sink.NewJSON(&buf, false), result); err != nil {
		t.Fatal(err)
	}
	want := `{"output_nesting_depth":2,"page":1,"page_count":3,"page_size":2,"query_time":"0.001",` +
		`"result_count":5,"result":[{"id":"u1","name":"Ada"}],"search_string":"a","sort_key":"name",` +
		`"sort_order":"asc","meta_data":{"k":"v"},"serialization_time":"0.000000000"}`
	if got := strings.TrimSpace(buf.String()); got != want {
		t.Errorf("envelope:\n got  %s\n want %s", got, want)
	}
}

func TestStreamResultCountToggle(t *testing.T) {
	opts := testOptions()
	opts.RenderResultCount = false
	result := NewCollection()
	result.RawResultCount = Ptr(7)

	rec, _, err := runStream(t, opts, result)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(rec.Trace(), "result_count") {
		t.Errorf("result_count rendered although disabled: %s", rec.Trace())
	}
}

func TestStreamPayloadShapes(t *testing.T) {
	store := testGraph(t)
	u1 := node(t, store, "u1")

	schema := graph.NewSchema()
	schema.Define("Tag", graph.ViewPublic, graph.NameKey)
	tag := graph.NewNode("g1", "Tag", graph.Metadata{"name": "red"}).Attach(schema)

	tests := []struct {
		name   string
		result *Result
		want   string
	}{
		{"empty collection", NewCollection(), `result: [ ]`},
		{"empty primitive", NewPrimitive(), `result: null`},
		{"no results", &Result{}, `<doc public> { } </doc>`},
		{"single resource", NewSingle(u1), `result: { id: "u1" name: "Ada" }`},
		{"single primitive", NewPrimitive("a"), `result: "a"`},
		{"single null primitive", NewPrimitive(nil), `result: null`},
		{"primitive array", NewPrimitive("a", 2, true), `result: [ "a" 2 true ]`},
		{"nulls skipped", NewPrimitive("a", nil, "b"), `result: [ "a" "b" ]`},
		{"single entity wrapped", NewPrimitive(u1), `result: [ "u1" "Ada" ]`},
		{"single-key entity bare", NewPrimitive(tag), `result: "red"`},
		{"entities flattened", NewPrimitive(u1, tag), `result: [ "u1" "Ada" "red" ]`},
		{"primitive slice value", NewPrimitive([]int{1, 2}), `result: [ 1 2 ]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, err := runStream(t, testOptions(), tt.result)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(rec.Trace(), tt.want) {
				t.Errorf("trace %s does not contain %s", rec.Trace(), tt.want)
			}
		})
	}
}

func TestStreamResourceShape(t *testing.T) {
	store := testGraph(t)
	rec := sink.NewRecorder()
	result := &Result{Results: []any{node(t, store, "u1"), node(t, store, "t1")}, Page: Ptr(1)}

	report, err := New(testOptions()).Stream(context.Background(), rec, result)
	if !errors.Is(err, errors.ErrCodeResourceShape) {
		t.Fatalf("err = %v, want RESOURCE_SHAPE", err)
	}
	if got, want := rec.Trace(), `<doc public> { page: 1`; got != want {
		t.Errorf("payload bytes written before the shape check: %s", got)
	}
	if report.Emitted != 0 {
		t.Errorf("emitted = %d", report.Emitted)
	}
}

func TestStreamNilResult(t *testing.T) {
	_, err := New(testOptions()).Stream(context.Background(), sink.NewRecorder(), nil)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

// tick is an entity whose id read advances a fake clock.
type tick struct {
	id    string
	clock *fakeClock
	step  time.Duration
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (e *tick) Identity() any                          { return e }
func (e *tick) Type() string                           { return "Tick" }
func (e *tick) PropertyKeys(string) []graph.PropertyKey { return []graph.PropertyKey{graph.IDKey} }
func (e *tick) Property(graph.PropertyKey) (any, error) {
	e.clock.Advance(e.step)
	return e.id, nil
}

func ticks(clock *fakeClock, step time.Duration, ids ...string) []any {
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = &tick{id: id, clock: clock, step: step}
	}
	return items
}

func TestStreamBudget(t *testing.T) {
	hooks := installHooks(t)
	clock := &fakeClock{now: time.Unix(0, 0)}

	opts := testOptions()
	opts.Clock = clock.Now
	opts.Budget = 150 * time.Second

	rec, report, err := runStream(t, opts, NewCollection(ticks(clock, time.Minute, "e1", "e2", "e3", "e4", "e5")...))
	if err != nil {
		t.Fatal(err)
	}
	want := `<doc public> { result: [ { id: "e1" } { id: "e2" } { id: "e3" } ] truncated: true } </doc>`
	if got := rec.Trace(); got != want {
		t.Errorf("trace:\n got  %s\n want %s", got, want)
	}
	if report.Emitted != 3 || !report.Truncated {
		t.Errorf("report = %+v", report)
	}
	if len(hooks.truncatedAt) != 1 || hooks.truncatedAt[0] != 3 {
		t.Errorf("truncation hook = %v", hooks.truncatedAt)
	}
	if hooks.started != 1 || hooks.completed != 1 {
		t.Errorf("start/complete hooks = %d/%d", hooks.started, hooks.completed)
	}
}

func TestStreamBudgetWithoutMarker(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	opts := testOptions()
	opts.Clock = clock.Now
	opts.Budget = time.Second
	opts.MarkTruncation = false

	rec, report, err := runStream(t, opts, NewPrimitive(ticks(clock, time.Minute, "e1", "e2", "e3")...))
	if err != nil {
		t.Fatal(err)
	}
	if want := `<doc public> { result: [ "e1" ] } </doc>`; rec.Trace() != want {
		t.Errorf("got %s, want %s", rec.Trace(), want)
	}
	if !report.Truncated || report.Emitted != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestStreamBudgetLastItem(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	opts := testOptions()
	opts.Clock = clock.Now
	opts.Budget = time.Second

	_, report, err := runStream(t, opts, NewCollection(ticks(clock, time.Minute, "e1")...))
	if err != nil {
		t.Fatal(err)
	}
	if report.Truncated {
		t.Error("a finished loop must not be reported as truncated")
	}
}

func TestStreamCanceled(t *testing.T) {
	store := testGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := sink.NewRecorder()
	result := NewCollection(node(t, store, "u1"), node(t, store, "t1"), node(t, store, "p1"))
	report, err := New(testOptions()).Stream(ctx, rec, result)
	if !errors.Is(err, errors.ErrCodeCanceled) || !stderrors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want CANCELED", err)
	}
	if want := `<doc public> { result: [ { id: "u1" name: "Ada" } ] truncated: true } </doc>`; rec.Trace() != want {
		t.Errorf("got %s, want %s", rec.Trace(), want)
	}
	if report.Emitted != 1 || !report.Truncated {
		t.Errorf("report = %+v", report)
	}
}

func TestStreamEntryFailure(t *testing.T) {
	hooks := installHooks(t)
	store := testGraph(t)

	rec, report, err := runStream(t, testOptions(), NewCollection(&brokenIdentity{}, node(t, store, "u1")))
	if err != nil {
		t.Fatal(err)
	}
	if want := `<doc public> { result: [ { id: "u1" name: "Ada" } ] } </doc>`; rec.Trace() != want {
		t.Errorf("got %s, want %s", rec.Trace(), want)
	}
	if report.Emitted != 1 || len(report.Warnings) != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(hooks.propertyErrors) != 1 {
		t.Errorf("property error hooks = %v", hooks.propertyErrors)
	}
	if hooks.emitted != 1 {
		t.Errorf("completion hook emitted = %d, want 1", hooks.emitted)
	}
}

func TestStreamSingleEntityFailure(t *testing.T) {
	rec := sink.NewRecorder()
	report, err := New(testOptions()).StreamSingle(context.Background(), rec, &brokenIdentity{})
	if err != nil {
		t.Fatal(err)
	}
	if want := `<doc public> </doc>`; rec.Trace() != want {
		t.Errorf("got %s, want %s", rec.Trace(), want)
	}
	if report.Emitted != 0 || len(report.Warnings) != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestStreamEmptyEchoFields(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   string
	}{
		{"absent", &Result{Results: []any{}}, `<doc public> { result: [ ] } </doc>`},
		{"empty search", &Result{Results: []any{}, SearchString: Ptr("")}, `<doc public> { result: [ ] search_string: "" } </doc>`},
		{"all", &Result{Results: []any{}, SearchString: Ptr("x"), SortKey: Ptr(""), SortOrder: Ptr("desc")},
			`<doc public> { result: [ ] search_string: "x" sort_key: "" sort_order: "desc" } </doc>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, err := runStream(t, testOptions(), tt.result)
			if err != nil {
				t.Fatal(err)
			}
			if got := rec.Trace(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStreamMetaDataFailure(t *testing.T) {
	rec, report, err := runStream(t, testOptions(), &Result{
		Results:   []any{},
		MetaData:  []any{"ok", &brokenIdentity{}},
		SortOrder: Ptr("asc"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := `<doc public> { result: [ ] sort_order: "asc" meta_data: [ "ok" ] } </doc>`; rec.Trace() != want {
		t.Errorf("got %s, want %s", rec.Trace(), want)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Key != FieldMetaData {
		t.Errorf("warnings = %v", report.Warnings)
	}
}

func TestStreamSinkFailureHook(t *testing.T) {
	hooks := installHooks(t)
	rec := sink.NewRecorder().FailAfter(3, stderrors.New("broken pipe"))

	_, err := New(testOptions()).Stream(context.Background(), rec, NewPrimitive("a", "b", "c"))
	if !errors.Is(err, errors.ErrCodeSinkIO) {
		t.Fatalf("err = %v, want SINK_IO", err)
	}
	if hooks.completed != 1 || !errors.Is(hooks.lastErr, errors.ErrCodeSinkIO) {
		t.Errorf("complete hook = %d, %v", hooks.completed, hooks.lastErr)
	}
}

func TestFromPage(t *testing.T) {
	store := testGraph(t)
	page, err := store.Query(graph.Query{Type: "Task", PageSize: 1, Page: 2})
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions()
	opts.MaxDepth = 0
	rec, _, err := runStream(t, opts, FromPage(page))
	if err != nil {
		t.Fatal(err)
	}
	want := `<doc public> { page: 2 page_count: 2 page_size: 1 result_count: 2 ` +
		`result: [ { id: "t1" name: "Design" project: { } } ] } </doc>`
	if got := rec.Trace(); got != want {
		t.Errorf("trace:\n got  %s\n want %s", got, want)
	}
}
