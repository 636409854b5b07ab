// Package hierarchy works with dotted goal ids like "1.9.3", where each
// segment names a child of the id before it.
package hierarchy

import (
	"strconv"
	"strings"
	"unicode"
)

const sep = "."

// Segments splits an id into its parts.
// "1.9.3" → ["1", "9", "3"]
func Segments(id string) []string {
	if id == "" {
		return nil
	}
	return strings.Split(id, sep)
}

// Valid reports whether id is non-empty and has no empty or space-bearing
// segments.
func Valid(id string) bool {
	segs := Segments(id)
	if len(segs) == 0 {
		return false
	}
	for _, s := range segs {
		if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
			return false
		}
	}
	return true
}

// Level returns the depth of id; roots are level 1.
func Level(id string) int {
	return len(Segments(id))
}

// Parent derives the parent id.
// "1.9.3" → "1.9"
// "1" → ""
func Parent(id string) string {
	i := strings.LastIndex(id, sep)
	if i < 0 {
		return ""
	}
	return id[:i]
}

// IsChildOf reports whether id is a direct child of parent.
// An empty parent matches root ids.
func IsChildOf(id, parent string) bool {
	return Parent(id) == parent && id != ""
}

// Ancestors returns every proper prefix of id, root first.
// "1.9.3" → ["1", "1.9"]
func Ancestors(id string) []string {
	segs := Segments(id)
	if len(segs) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], sep))
	}
	return out
}

// Path renders an id for display: "1.9.3" → "1 > 9 > 3".
func Path(id string) string {
	return strings.Join(Segments(id), " > ")
}

// Compare orders ids segment by segment. Numeric segments compare as
// numbers, others case-insensitively, and a prefix sorts before its
// descendants.
func Compare(a, b string) int {
	as, bs := Segments(a), Segments(b)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return strings.Compare(a, b)
}

func compareSegment(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aErr == nil:
		return -1 // numbers before words
	case bErr == nil:
		return 1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// NextChildID returns the next free child id under parent: one more than
// the highest numeric last segment among parent's direct children. An empty
// parent allocates a root id.
func NextChildID(parent string, existing []string) string {
	highest := 0
	for _, id := range existing {
		if !IsChildOf(id, parent) {
			continue
		}
		segs := Segments(id)
		n, err := strconv.Atoi(segs[len(segs)-1])
		if err == nil && n > highest {
			highest = n
		}
	}
	next := strconv.Itoa(highest + 1)
	if parent == "" {
		return next
	}
	return parent + sep + next
}
