package core

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldPath addresses a value inside a heterogeneous parameters tree. It is an
// explicit alternative to runtime reflection: each segment is either a map key
// or a slice index, and the walker below creates intermediate containers on
// demand when writing.

// Segment is one step of a FieldPath.
type Segment struct {
	Key   string
	Index int
	IsKey bool
}

// FieldPath is an ordered sequence of segments.
type FieldPath []Segment

// ParsePath parses a dotted path with optional index syntax, e.g. "a.b[3].c".
func ParsePath(path string) (FieldPath, error) {
	if path == "" {
		return nil, fmt.Errorf("field path cannot be empty")
	}
	var out FieldPath
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("field path %q has an empty segment", path)
		}
		for part != "" {
			open := strings.IndexByte(part, '[')
			if open == -1 {
				out = append(out, Segment{Key: part, IsKey: true})
				break
			}
			if open > 0 {
				out = append(out, Segment{Key: part[:open], IsKey: true})
			}
			closeIdx := strings.IndexByte(part, ']')
			if closeIdx < open {
				return nil, fmt.Errorf("field path %q has an unterminated index", path)
			}
			idx, err := strconv.Atoi(part[open+1 : closeIdx])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("field path %q has an invalid index %q", path, part[open+1:closeIdx])
			}
			out = append(out, Segment{Index: idx})
			part = part[closeIdx+1:]
			if part != "" && !strings.HasPrefix(part, "[") {
				return nil, fmt.Errorf("field path %q has trailing characters after index", path)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("field path %q resolved to no segments", path)
	}
	return out, nil
}

// String renders the path back into dotted/indexed form.
func (p FieldPath) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.IsKey {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		} else {
			fmt.Fprintf(&b, "[%d]", seg.Index)
		}
	}
	return b.String()
}

// GetPath reads the value addressed by path from root. The second return
// reports whether the value was present.
func GetPath(root map[string]any, path FieldPath) (any, bool) {
	var cur any = root
	for _, seg := range path {
		if seg.IsKey {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[seg.Key]
			if !ok {
				return nil, false
			}
		} else {
			s, ok := cur.([]any)
			if !ok || seg.Index >= len(s) {
				return nil, false
			}
			cur = s[seg.Index]
		}
	}
	return cur, true
}

// SetPath writes value at path inside root, creating intermediate maps and
// extending slices as needed. The final segment must be reachable through
// containers of the right shape; a type mismatch along the way is an error.
func SetPath(root map[string]any, path FieldPath, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("cannot set an empty path")
	}
	parent, last, err := walkToParent(root, path, true)
	if err != nil {
		return err
	}
	return assign(parent, last, value)
}

// DeletePath removes the value addressed by path. Deleting a missing value is
// a no-op. Slice elements are removed by splicing, keeping sibling order.
func DeletePath(root map[string]any, path FieldPath) error {
	if len(path) == 0 {
		return fmt.Errorf("cannot delete an empty path")
	}
	parent, last, err := walkToParent(root, path, false)
	if err != nil || parent == nil {
		return err
	}
	if last.IsKey {
		m, ok := parent.(map[string]any)
		if !ok {
			return fmt.Errorf("path %s: parent is not an object", path)
		}
		delete(m, last.Key)
		return nil
	}
	// Splicing requires rewriting the slice in its own parent, which the
	// two-level walk below handles.
	return spliceIndex(root, path)
}

// walkToParent resolves the container holding the final segment. When create
// is set, missing intermediate containers are materialized.
func walkToParent(root map[string]any, path FieldPath, create bool) (any, Segment, error) {
	var cur any = root
	for i := 0; i < len(path)-1; i++ {
		seg := path[i]
		next := path[i+1]
		if seg.IsKey {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, Segment{}, fmt.Errorf("path %s: segment %q is not an object", path, seg.Key)
			}
			child, exists := m[seg.Key]
			if !exists || child == nil {
				if !create {
					return nil, Segment{}, nil
				}
				child = emptyContainer(next)
				m[seg.Key] = child
			}
			cur = child
		} else {
			s, ok := cur.([]any)
			if !ok {
				return nil, Segment{}, fmt.Errorf("path %s: segment [%d] is not an array", path, seg.Index)
			}
			if seg.Index >= len(s) {
				if !create {
					return nil, Segment{}, nil
				}
				return nil, Segment{}, fmt.Errorf("path %s: index %d out of range", path, seg.Index)
			}
			if s[seg.Index] == nil && create {
				s[seg.Index] = emptyContainer(next)
			}
			cur = s[seg.Index]
		}
	}
	return cur, path[len(path)-1], nil
}

func emptyContainer(next Segment) any {
	if next.IsKey {
		return map[string]any{}
	}
	return []any{}
}

func assign(parent any, last Segment, value any) error {
	if last.IsKey {
		m, ok := parent.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set key %q on non-object parent", last.Key)
		}
		m[last.Key] = value
		return nil
	}
	s, ok := parent.([]any)
	if !ok {
		return fmt.Errorf("cannot set index %d on non-array parent", last.Index)
	}
	if last.Index >= len(s) {
		return fmt.Errorf("index %d out of range (len %d)", last.Index, len(s))
	}
	s[last.Index] = value
	return nil
}

// spliceIndex removes a slice element addressed by the final index segment,
// rewriting the slice reference held by its own parent.
func spliceIndex(root map[string]any, path FieldPath) error {
	last := path[len(path)-1]
	if last.IsKey {
		return fmt.Errorf("spliceIndex requires an index segment")
	}
	if len(path) < 2 {
		return fmt.Errorf("cannot splice a top-level index")
	}
	grand, sliceSeg, err := walkToParent(root, path[:len(path)-1], false)
	if err != nil || grand == nil {
		return err
	}
	var s []any
	switch {
	case sliceSeg.IsKey:
		m, ok := grand.(map[string]any)
		if !ok {
			return fmt.Errorf("path %s: parent is not an object", path)
		}
		s, ok = m[sliceSeg.Key].([]any)
		if !ok || last.Index >= len(s) {
			return nil
		}
		m[sliceSeg.Key] = append(s[:last.Index], s[last.Index+1:]...)
	default:
		outer, ok := grand.([]any)
		if !ok || sliceSeg.Index >= len(outer) {
			return nil
		}
		s, ok = outer[sliceSeg.Index].([]any)
		if !ok || last.Index >= len(s) {
			return nil
		}
		outer[sliceSeg.Index] = append(s[:last.Index], s[last.Index+1:]...)
	}
	return nil
}
