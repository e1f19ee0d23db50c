package tree

import (
	"errors"
	"fmt"

	"carelink/internal/ident"
)

var ErrDuplicateID = errors.New("duplicate node id")

// Predicate selects nodes during traversal.
type Predicate func(Node) bool

// ByID matches the node with the given id.
func ByID(id ident.NodeID) Predicate {
	return func(n Node) bool { return n.ID == id }
}

// Find 深度优先查找第一个匹配的节点
func Find(nodes []Node, id ident.NodeID) (Node, bool) {
	return FindWhere(nodes, ByID(id))
}

func FindWhere(nodes []Node, pred Predicate) (Node, bool) {
	for _, n := range nodes {
		if pred(n) {
			return n, true
		}
		if found, ok := FindWhere(n.Comments, pred); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Update applies fn to the node with the given id.
func Update(nodes []Node, id ident.NodeID, fn func(Node) Node) ([]Node, bool) {
	return UpdateWhere(nodes, ByID(id), fn)
}

// UpdateWhere 替换第一个匹配节点，只复制根到该节点的路径；未命中时原样返回
func UpdateWhere(nodes []Node, pred Predicate, fn func(Node) Node) ([]Node, bool) {
	for i := range nodes {
		if pred(nodes[i]) {
			out := cloneNodes(nodes)
			out[i] = fn(nodes[i])
			return out, true
		}
		if kids, ok := UpdateWhere(nodes[i].Comments, pred, fn); ok {
			out := cloneNodes(nodes)
			out[i].Comments = kids
			return out, true
		}
	}
	return nodes, false
}

// Remove drops the node with the given id together with its subtree.
func Remove(nodes []Node, id ident.NodeID) ([]Node, bool) {
	return RemoveWhere(nodes, ByID(id))
}

// RemoveWhere 删除第一个匹配节点（连同子树）
func RemoveWhere(nodes []Node, pred Predicate) ([]Node, bool) {
	for i := range nodes {
		if pred(nodes[i]) {
			if len(nodes) == 1 {
				return nil, true
			}
			out := make([]Node, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			out = append(out, nodes[i+1:]...)
			return out, true
		}
		if kids, ok := RemoveWhere(nodes[i].Comments, pred); ok {
			out := cloneNodes(nodes)
			out[i].Comments = kids
			return out, true
		}
	}
	return nodes, false
}

// InsertChild 把 child 插到父节点子列表的最前面
func InsertChild(nodes []Node, parentID ident.NodeID, child Node) ([]Node, bool) {
	return Update(nodes, parentID, func(parent Node) Node {
		kids := make([]Node, 0, len(parent.Comments)+1)
		kids = append(kids, child)
		kids = append(kids, parent.Comments...)
		parent.Comments = kids
		return parent
	})
}

// InsertAt 把 child 放回父节点子列表的第 index 位，越界时放到末尾。
// parentID 为零值时放回根列表。
func InsertAt(nodes []Node, parentID ident.NodeID, index int, child Node) ([]Node, bool) {
	if parentID.IsZero() {
		return insertAt(nodes, index, child), true
	}
	return Update(nodes, parentID, func(parent Node) Node {
		parent.Comments = insertAt(parent.Comments, index, child)
		return parent
	})
}

func insertAt(list []Node, index int, child Node) []Node {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]Node, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, child)
	return append(out, list[index:]...)
}

// Locate returns the parent (zero for a root) and the position of id
// within the parent's list.
func Locate(nodes []Node, id ident.NodeID) (parent ident.NodeID, index int, ok bool) {
	path, ok := Path(nodes, id)
	if !ok {
		return ident.NodeID{}, 0, false
	}
	level := nodes
	for _, i := range path[:len(path)-1] {
		parent = level[i].ID
		level = level[i].Comments
	}
	return parent, path[len(path)-1], true
}

// Walk visits nodes in pre-order. Returning false from fn stops the walk.
func Walk(nodes []Node, fn func(n Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn func(Node, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Comments, depth+1, fn) {
			return false
		}
	}
	return true
}

// Path returns the index path from the root list to id.
func Path(nodes []Node, id ident.NodeID) ([]int, bool) {
	for i, n := range nodes {
		if n.ID == id {
			return []int{i}, true
		}
		if sub, ok := Path(n.Comments, id); ok {
			return append([]int{i}, sub...), true
		}
	}
	return nil, false
}

// Index 建立 id → 路径索引；同一个 id 出现两次时报错
func Index(nodes []Node) (map[ident.NodeID][]int, error) {
	idx := make(map[ident.NodeID][]int)
	var build func([]Node, []int) error
	build = func(list []Node, prefix []int) error {
		for i, n := range list {
			p := make([]int, len(prefix)+1)
			copy(p, prefix)
			p[len(prefix)] = i
			if _, dup := idx[n.ID]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
			}
			idx[n.ID] = p
			if err := build(n.Comments, p); err != nil {
				return err
			}
		}
		return nil
	}
	if err := build(nodes, nil); err != nil {
		return nil, err
	}
	return idx, nil
}

// Count returns the number of nodes in the forest.
func Count(nodes []Node) int {
	total := 0
	Walk(nodes, func(Node, int) bool {
		total++
		return true
	})
	return total
}

func cloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out
}
