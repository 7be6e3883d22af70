package serialize

import (
	"context"
	"iter"
	"reflect"
	"testing"
	"time"

	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

type color int

type tags struct{ values []string }

func (t tags) All() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range t.values {
			if !yield(v) {
				return
			}
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		v    any
		want Serializer
	}{
		{"string", "x", nil},
		{"int", 1, nil},
		{"named int", color(1), nil},
		{"time", time.Time{}, nil},
		{"node", &graph.Node{}, EntitySerializer},
		{"property map", graph.NewPropertyMap(), PropertyMapSerializer},
		{"iterable", tags{}, IterableSerializer},
		{"slice", []int{1}, IterableSerializer},
		{"array", [2]string{}, IterableSerializer},
		{"map", map[string]int{}, MapSerializer},
		{"metadata", graph.Metadata{}, MapSerializer},
		{"pointer to slice", &[]int{}, IterableSerializer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := reflect.TypeOf(tt.v)
			if got := r.Resolve(typ); got != tt.want {
				t.Errorf("Resolve(%v) = %#v, want %#v", typ, got, tt.want)
			}
			// memoized answer is the same
			if got := r.Resolve(typ); got != tt.want {
				t.Errorf("second Resolve(%v) = %#v", typ, got)
			}
		})
	}
}

func TestRegistryCustomSerializer(t *testing.T) {
	r := NewRegistry()
	colorType := reflect.TypeFor[color]()
	if r.Resolve(colorType) != nil {
		t.Fatal("color must start as a scalar")
	}

	r.Register(colorType, SerializerFunc(func(e *Emitter, value any, _ int) error {
		return e.Sink().String([]string{"red", "green"}[value.(color)])
	}))

	opts := testOptions()
	opts.Registry = r
	rec := sink.NewRecorder()
	if _, err := New(opts).Stream(context.Background(), rec, NewPrimitive(color(1), color(0))); err != nil {
		t.Fatal(err)
	}
	if want := `<doc public> { result: [ "green" "red" ] } </doc>`; rec.Trace() != want {
		t.Errorf("got %s, want %s", rec.Trace(), want)
	}
}

func TestRegistryExactBeforeInterface(t *testing.T) {
	r := NewRegistry()
	nodeType := reflect.TypeFor[*graph.Node]()
	custom := SerializerFunc(func(e *Emitter, _ any, _ int) error { return e.Sink().String("node") })
	r.Register(nodeType, custom)

	if got := r.Resolve(nodeType); got == nil || got == EntitySerializer {
		t.Errorf("exact registration must win over the entity interface, got %#v", got)
	}
}

func TestRegistryInterfaceOrder(t *testing.T) {
	r := NewRegistry()
	// *graph.Node is both an Object and, through this registration, a Stringer.
	r.RegisterInterface(reflect.TypeFor[interface{ String() string }](), MapSerializer)
	if got := r.Resolve(reflect.TypeFor[*graph.Node]()); got != EntitySerializer {
		t.Errorf("earlier interface must win, got %#v", got)
	}
}

func TestRegisterInterfacePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for a non-interface type")
		}
	}()
	NewRegistry().RegisterInterface(reflect.TypeFor[int](), MapSerializer)
}
