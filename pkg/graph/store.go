package graph

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matzehuels/graphwriter/pkg/scalar"
)

var (
	// ErrInvalidNodeID is returned by [Store.Add] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Store.Add] when a node with the same
	// ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when a link refers to a missing node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrInvalidPage is returned by [Store.Query] for a page number below 1.
	ErrInvalidPage = errors.New("page must be >= 1")
)

// Sort orders.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultSortKey is the wire name used when a query does not name one.
const DefaultSortKey = "name"

// Store is an in-memory node store keyed by ID.
type Store struct {
	schema *Schema
	nodes  map[string]*Node
	order  []string
}

// NewStore creates an empty store bound to schema. A nil schema creates a new
// empty one.
func NewStore(schema *Schema) *Store {
	if schema == nil {
		schema = NewSchema()
	}
	return &Store{schema: schema, nodes: make(map[string]*Node)}
}

// Schema returns the store's schema.
func (s *Store) Schema() *Schema { return s.schema }

// Add inserts n and attaches it to the store's schema.
func (s *Store) Add(n *Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	n.Attach(s.schema)
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	return nil
}

// Get returns the node with the given ID.
func (s *Store) Get(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (s *Store) Len() int { return len(s.order) }

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []*Node {
	out := make([]*Node, len(s.order))
	for i, id := range s.order {
		out[i] = s.nodes[id]
	}
	return out
}

// Link appends the node to to the collection property key of from.
func (s *Store) Link(from, key, to string) error {
	src, dst, err := s.endpoints(from, to)
	if err != nil {
		return err
	}
	switch cur := src.Props[key].(type) {
	case nil:
		src.Props[key] = []any{dst}
	case []any:
		src.Props[key] = append(cur, dst)
	default:
		return fmt.Errorf("property %q of %s is not a collection", key, from)
	}
	return nil
}

// SetRef stores the node to as the single-valued property key of from.
func (s *Store) SetRef(from, key, to string) error {
	src, dst, err := s.endpoints(from, to)
	if err != nil {
		return err
	}
	src.Props[key] = dst
	return nil
}

func (s *Store) endpoints(from, to string) (*Node, *Node, error) {
	src, ok := s.nodes[from]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}
	dst, ok := s.nodes[to]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownNode, to)
	}
	return src, dst, nil
}

// =============================================================================
// Queries
// =============================================================================

// Query selects, sorts and pages nodes.
type Query struct {
	Type      string // empty matches every type
	Search    string // matched against the name property
	Exact     bool   // exact name match instead of case-insensitive substring
	SortKey   string // wire name, defaults to DefaultSortKey
	SortOrder string // SortAsc or SortDesc
	Page      int    // 1-based, zero means 1
	PageSize  int    // zero or negative disables paging
}

// Page is the answer to a [Query].
type Page struct {
	Items     []*Node
	RawCount  int // matches before paging
	PageCount int
	Page      int
	PageSize  int
}

// Values returns the items as a slice of any, the form serializer results use.
func (p Page) Values() []any {
	out := make([]any, len(p.Items))
	for i, n := range p.Items {
		out[i] = n
	}
	return out
}

// Query runs q against the store.
func (s *Store) Query(q Query) (Page, error) {
	if q.Page < 0 {
		return Page{}, ErrInvalidPage
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.SortKey == "" {
		q.SortKey = DefaultSortKey
	}

	var matches []*Node
	for _, id := range s.order {
		n := s.nodes[id]
		if q.Type != "" && n.TypeName != q.Type {
			continue
		}
		if q.Search != "" && !matchName(n.Name(), q.Search, q.Exact) {
			continue
		}
		matches = append(matches, n)
	}

	desc := strings.EqualFold(q.SortOrder, SortDesc)
	sort.SliceStable(matches, func(i, j int) bool {
		c := compareValues(s.sortValue(matches[i], q.SortKey), s.sortValue(matches[j], q.SortKey))
		if desc {
			return c > 0
		}
		return c < 0
	})

	page := Page{RawCount: len(matches), Page: q.Page, PageSize: q.PageSize}
	if q.PageSize <= 0 {
		page.Items = matches
		page.PageCount = 1
		return page, nil
	}
	page.PageCount = (len(matches) + q.PageSize - 1) / q.PageSize
	start := (q.Page - 1) * q.PageSize
	if start >= len(matches) {
		return page, nil
	}
	end := min(start+q.PageSize, len(matches))
	page.Items = matches[start:end]
	return page, nil
}

func matchName(name, search string, exact bool) bool {
	if exact {
		return name == search
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

func (s *Store) sortValue(n *Node, wireName string) any {
	key, ok := s.schema.Key(n.TypeName, wireName)
	if !ok {
		key = NewKey(wireName)
	}
	v, _ := n.Property(key)
	return v
}

// compareValues orders nulls last, numbers numerically and everything else by
// its string form.
func compareValues(a, b any) int {
	va, vb := scalar.Classify(a), scalar.Classify(b)
	switch {
	case va.Kind == scalar.KindNull && vb.Kind == scalar.KindNull:
		return 0
	case va.Kind == scalar.KindNull:
		return 1
	case vb.Kind == scalar.KindNull:
		return -1
	}
	if fa, ok := numeric(va); ok {
		if fb, ok := numeric(vb); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(text(va), text(vb))
}

func numeric(v scalar.Value) (float64, bool) {
	switch v.Kind {
	case scalar.KindInt:
		return float64(v.Int), true
	case scalar.KindUint:
		return float64(v.Uint), true
	case scalar.KindFloat:
		return v.Float, true
	}
	return 0, false
}

func text(v scalar.Value) string {
	switch v.Kind {
	case scalar.KindString:
		return v.Str
	case scalar.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	}
	f, _ := numeric(v)
	return strconv.FormatFloat(f, 'g', -1, 64)
}
