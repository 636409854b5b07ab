package hierarchy

import "slices"

// Node is one item in a tree built from dotted ids.
type Node[T any] struct {
	Item     T
	ID       string
	Level    int
	Children []*Node[T]
}

// Build nests items by their ids. Items are visited in Compare order, so
// children come out sorted. An item whose parent id is missing becomes a
// root rather than being dropped. Duplicate ids keep the first item.
func Build[T any](items []T, idOf func(T) string) []*Node[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return Compare(idOf(a), idOf(b))
	})

	byID := make(map[string]*Node[T], len(sorted))
	var roots []*Node[T]
	for _, item := range sorted {
		id := idOf(item)
		if _, dup := byID[id]; dup {
			continue
		}
		n := &Node[T]{Item: item, ID: id, Level: Level(id)}
		byID[id] = n

		if parent, ok := byID[Parent(id)]; ok && Parent(id) != "" {
			parent.Children = append(parent.Children, n)
			continue
		}
		roots = append(roots, n)
	}
	return roots
}

// Walk visits every node depth-first, parents before children.
func Walk[T any](nodes []*Node[T], fn func(*Node[T])) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Children, fn)
	}
}
