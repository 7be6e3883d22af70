package graph

import (
	"errors"
	"slices"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	schema := NewSchema()
	schema.Define("Task", ViewPublic, IDKey, TypeKey, NameKey, NewKey("priority"))
	store := NewStore(schema)
	for _, n := range []*Node{
		NewNode("t1", "Task", Metadata{"name": "write docs", "priority": 2}),
		NewNode("t2", "Task", Metadata{"name": "Fix bug", "priority": 1}),
		NewNode("t3", "Task", Metadata{"name": "release", "priority": 3}),
		NewNode("t4", "Task", Metadata{"name": "triage"}),
		NewNode("p1", "Project", Metadata{"name": "docs site"}),
	} {
		if err := store.Add(n); err != nil {
			t.Fatalf("Add(%s): %v", n.ID, err)
		}
	}
	return store
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestStoreAdd(t *testing.T) {
	store := NewStore(nil)
	if err := store.Add(NewNode("", "Task", nil)); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("empty id: got %v, want ErrInvalidNodeID", err)
	}
	if err := store.Add(NewNode("a", "Task", nil)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(NewNode("a", "Task", nil)); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("duplicate: got %v, want ErrDuplicateNodeID", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestStoreLink(t *testing.T) {
	store := testStore(t)
	if err := store.Link("p1", "tasks", "t1"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := store.Link("p1", "tasks", "t2"); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := store.SetRef("t1", "project", "p1"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	if err := store.Link("p1", "tasks", "missing"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("missing target: got %v, want ErrUnknownNode", err)
	}
	if err := store.Link("p1", "name", "t1"); err == nil {
		t.Error("linking into a scalar property should fail")
	}

	p1, _ := store.Get("p1")
	tasks, _ := p1.Props["tasks"].([]any)
	if len(tasks) != 2 {
		t.Fatalf("tasks = %v, want 2 entries", tasks)
	}
	t1, _ := store.Get("t1")
	if t1.Props["project"] != p1 {
		t.Error("SetRef did not store the target node")
	}
}

func TestStoreQuery(t *testing.T) {
	store := testStore(t)

	tests := []struct {
		name      string
		query     Query
		want      []string
		raw       int
		pageCount int
	}{
		{"all tasks by name", Query{Type: "Task"}, []string{"t2", "t3", "t4", "t1"}, 4, 1},
		{"desc", Query{Type: "Task", SortOrder: "DESC"}, []string{"t1", "t4", "t3", "t2"}, 4, 1},
		{"numeric sort nulls last", Query{Type: "Task", SortKey: "priority"}, []string{"t2", "t1", "t3", "t4"}, 4, 1},
		{"substring search", Query{Search: "DOCS"}, []string{"p1", "t1"}, 2, 1},
		{"exact search", Query{Search: "release", Exact: true}, []string{"t3"}, 1, 1},
		{"exact search is case sensitive", Query{Search: "Release", Exact: true}, nil, 0, 1},
		{"first page", Query{Type: "Task", PageSize: 3}, []string{"t2", "t3", "t4"}, 4, 2},
		{"second page", Query{Type: "Task", PageSize: 3, Page: 2}, []string{"t1"}, 4, 2},
		{"page past end", Query{Type: "Task", PageSize: 3, Page: 5}, nil, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := store.Query(tt.query)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if got := ids(page.Items); !slices.Equal(got, tt.want) && len(got)+len(tt.want) > 0 {
				t.Errorf("items = %v, want %v", got, tt.want)
			}
			if page.RawCount != tt.raw {
				t.Errorf("RawCount = %d, want %d", page.RawCount, tt.raw)
			}
			if page.PageCount != tt.pageCount {
				t.Errorf("PageCount = %d, want %d", page.PageCount, tt.pageCount)
			}
		})
	}

	if _, err := store.Query(Query{Page: -1}); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("negative page: got %v, want ErrInvalidPage", err)
	}
}

func TestSchema(t *testing.T) {
	schema := NewSchema()
	title := NewKey("title", WithWireName("name"))
	schema.Define("Page", ViewPublic, IDKey, title)
	schema.Define("Page", ViewUI, IDKey, TypeKey, title, NewKey("body"))

	if got := schema.Keys("Page", ViewPublic); len(got) != 2 || got[1] != title {
		t.Errorf("Keys(public) = %v", got)
	}
	if got := schema.Keys("Page", "missing"); got != nil {
		t.Errorf("Keys(missing view) = %v, want nil", got)
	}
	if got := schema.Keys("Missing", ViewPublic); got != nil {
		t.Errorf("Keys(missing type) = %v, want nil", got)
	}
	if k, ok := schema.Key("Page", "name"); !ok || k.Name() != "title" {
		t.Errorf("Key(Page, name) = %v, %v; want title", k, ok)
	}
	if got := schema.Views("Page"); !slices.Equal(got, []string{ViewPublic, ViewUI}) {
		t.Errorf("Views = %v", got)
	}
	if got := schema.Types(); !slices.Equal(got, []string{"Page"}) {
		t.Errorf("Types = %v", got)
	}
	var declared []string
	for _, k := range schema.Declared("Page") {
		declared = append(declared, k.WireName())
	}
	if !slices.Equal(declared, []string{"body", "id", "name", "type"}) {
		t.Errorf("Declared = %v", declared)
	}
}

func TestNodeProperty(t *testing.T) {
	n := NewNode("n1", "Task", Metadata{"name": "x", "tags": []any{"a", "b", "c", "d"}})
	if v, _ := n.Property(IDKey); v != "n1" {
		t.Errorf("id = %v", v)
	}
	if v, _ := n.Property(TypeKey); v != "Task" {
		t.Errorf("type = %v", v)
	}
	if v, _ := n.Property(NewKey("missing")); v != nil {
		t.Errorf("missing = %v, want nil", v)
	}
	if n.PropertyKeys(ViewPublic) != nil {
		t.Error("detached node should have no view keys")
	}

	r := &Range{Offset: 1, Limit: 2}
	v, _ := n.PropertyRange(NewKey("tags"), r)
	if got := v.([]any); !slices.Equal(got, []any{"b", "c"}) {
		t.Errorf("ranged tags = %v", got)
	}
	// Applying again must start from a fresh counter.
	v, _ = n.PropertyRange(NewKey("tags"), r)
	if got := v.([]any); len(got) != 2 {
		t.Errorf("second ranged read = %v", got)
	}
}

func TestRange(t *testing.T) {
	var nilRange *Range
	if !nilRange.Accept() {
		t.Error("nil range must accept")
	}
	r := &Range{Offset: 2}
	var accepted []bool
	for range 4 {
		accepted = append(accepted, r.Accept())
	}
	if !slices.Equal(accepted, []bool{false, false, true, true}) {
		t.Errorf("accepted = %v", accepted)
	}
	r.Reset()
	if r.Accept() {
		t.Error("Reset should rewind the counter")
	}
}

func TestPropertyMap(t *testing.T) {
	m := NewPropertyMap()
	a, b := NewKey("a"), NewKey("b")
	m.Set(b, 1).Set(a, 2).Set(b, 3)

	var names []string
	var values []any
	for k, v := range m.All() {
		names = append(names, k.WireName())
		values = append(values, v)
	}
	if !slices.Equal(names, []string{"b", "a"}) || !slices.Equal(values, []any{3, 2}) {
		t.Errorf("entries = %v %v", names, values)
	}
	if v, ok := m.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestIsFullView(t *testing.T) {
	for view, want := range map[string]bool{ViewPublic: false, ViewUI: true, ViewAll: true, ViewGraph: false} {
		if got := IsFullView(view); got != want {
			t.Errorf("IsFullView(%q) = %v, want %v", view, got, want)
		}
	}
}
