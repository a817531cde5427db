package network

// Store is the slice of the world the network code needs. Implementations
// are not expected to be safe for concurrent use; callers serialize access.
type Store interface {
	Get(p Pos) Node
	Set(p Pos, n Node)
	IsEmpty(p Pos) bool
}

// Rand supplies uniform floats in [0,1). *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// MapStore is a map-backed Store for tests and small tools.
type MapStore struct {
	Cells map[Pos]Node
}

func NewMapStore() *MapStore {
	return &MapStore{Cells: map[Pos]Node{}}
}

func (s *MapStore) Get(p Pos) Node { return s.Cells[p] }

func (s *MapStore) Set(p Pos, n Node) {
	if n.Kind == KindEmpty {
		delete(s.Cells, p)
		return
	}
	s.Cells[p] = n
}

func (s *MapStore) IsEmpty(p Pos) bool {
	_, ok := s.Cells[p]
	return !ok
}

func (s *MapStore) Len() int { return len(s.Cells) }

// Neighbors returns the occupants around p in canonical direction order.
func Neighbors(s Store, p Pos) [6]Node {
	var out [6]Node
	for _, d := range Dirs {
		out[d] = s.Get(p.Offset(d))
	}
	return out
}
