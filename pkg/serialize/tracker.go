package serialize

import "github.com/matzehuels/graphwriter/pkg/graph"

// tracker records the identities of the entities on the current emission
// path. It is owned by a single stream call.
//
// Entries are counted because, without redundancy reduction, a cycle can put
// the same entity on the path more than once before the depth bound stops it.
type tracker map[any]int

func (t tracker) enter(id any) { t[id]++ }

func (t tracker) leave(id any) {
	if t[id] <= 1 {
		delete(t, id)
		return
	}
	t[id]--
}

func (t tracker) contains(id any) bool { return t[id] > 0 }

// holds reports whether value is an entity currently on the path.
func (t tracker) holds(value any) bool {
	obj, ok := value.(graph.Object)
	return ok && t.contains(obj.Identity())
}
