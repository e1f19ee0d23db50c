package tree

import (
	"sync"

	"carelink/internal/ident"
)

// Store 持有某个页面当前的整棵树。读取返回的切片只读，修改一律走 Apply
type Store struct {
	mu    sync.RWMutex
	nodes []Node
}

func NewStore(nodes []Node) *Store {
	return &Store{nodes: nodes}
}

func (s *Store) Load() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes
}

func (s *Store) Set(nodes []Node) {
	s.mu.Lock()
	s.nodes = nodes
	s.mu.Unlock()
}

// Apply swaps the forest for fn's result and returns the forest it replaced.
// When fn fails nothing changes.
func (s *Store) Apply(fn func([]Node) ([]Node, error)) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.nodes
	next, err := fn(prev)
	if err != nil {
		return prev, err
	}
	s.nodes = next
	return prev, nil
}

// Find looks up a node in the current forest.
func (s *Store) Find(id ident.NodeID) (Node, bool) {
	return Find(s.Load(), id)
}
