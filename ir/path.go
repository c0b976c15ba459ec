package ir

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/signadot/setdata/debug"
)

// FieldCache memoizes the parsing of path expressions into field
// segments. Path expressions come from a bounded set written in the
// calling code, so entries are never evicted.
type FieldCache struct {
	mu sync.RWMutex
	m  map[string][]string
}

func NewFieldCache() *FieldCache {
	return &FieldCache{m: map[string][]string{}}
}

// DefaultFieldCache is the process wide cache used by PathFields.
var DefaultFieldCache = NewFieldCache()

// PathFields parses path using DefaultFieldCache.
//
//	PathFields("arr[0].a.b") => ["arr" "0" "a" "b"]
//	PathFields("b[4][0]") => ["b" "4" "0"]
//
// The returned slice is shared and must not be modified.
func PathFields(path string) []string {
	return DefaultFieldCache.Fields(path)
}

func (c *FieldCache) Fields(path string) []string {
	c.mu.RLock()
	fields, ok := c.m[path]
	c.mu.RUnlock()
	if ok {
		return fields
	}
	fields = parseFields(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.m[path]; ok {
		return cached
	}
	c.m[path] = fields
	if debug.Path() {
		debug.Logf("path %q resolved to %q\n", path, fields)
	}
	return fields
}

func (c *FieldCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func parseFields(path string) []string {
	segs := strings.Split(path, ".")
	if !strings.Contains(path, "[") {
		return segs
	}
	fields := make([]string, 0, len(segs))
	for _, seg := range segs {
		if !strings.Contains(seg, "[") {
			fields = append(fields, seg)
			continue
		}
		for _, f := range strings.FieldsFunc(seg, func(r rune) bool {
			return r == '[' || r == ']'
		}) {
			fields = append(fields, f)
		}
	}
	return fields
}

// IsSimplePath reports whether path names a single top level field.
func IsSimplePath(path string) bool {
	return strings.IndexAny(path, ".[") == -1
}

// IsIndex reports whether seg is a list index segment, that is purely
// numeric.
func IsIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

func index(seg string) (int, bool) {
	if !IsIndex(seg) {
		return 0, false
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Child returns the value under seg in an object or array, or nil.
func Child(y *Node, seg string) *Node {
	if y == nil {
		return nil
	}
	switch y.Type {
	case ObjectType:
		return Get(y, seg)
	case ArrayType:
		i, ok := index(seg)
		if !ok || i >= len(y.Values) {
			return nil
		}
		return y.Values[i]
	}
	return nil
}

// SetChild sets the value under seg. It reports false when y cannot
// hold seg: y is not a container, or y is an array and seg is not an
// index or is out of range (see SetIndex).
func SetChild(y *Node, seg string, v *Node) bool {
	if y == nil {
		return false
	}
	switch y.Type {
	case ObjectType:
		y.SetField(seg, v)
		return true
	case ArrayType:
		i, ok := index(seg)
		if !ok {
			return false
		}
		if !y.SetIndex(i, v) {
			debug.Warn("list index out of range, update dropped", "index", i, "len", len(y.Values))
			return false
		}
		return true
	}
	return false
}

// CheckFields reports ErrIndexRange if setting a value at fields under
// root would index a list out of range. Lists SetFields would create
// count as empty.
func CheckFields(root *Node, fields []string) error {
	y := root
	for i, f := range fields {
		isArray := y != nil && y.Type == ArrayType
		if IsIndex(f) && (i > 0 || isArray) {
			n := 0
			if isArray {
				n = len(y.Values)
			}
			if j, ok := index(f); !ok || !IndexInRange(j, n) {
				return fmt.Errorf("%w: %s at %q", ErrIndexRange, f, FieldsPath(fields[:i]))
			}
		}
		y = Child(y, f)
	}
	return nil
}

// GetPath returns the value at path under root, or nil as soon as an
// intermediate value is missing.
func GetPath(root *Node, path string) *Node {
	if IsSimplePath(path) {
		return Child(root, path)
	}
	return GetFields(root, PathFields(path))
}

func GetFields(root *Node, fields []string) *Node {
	y := root
	for _, f := range fields {
		y = Child(y, f)
		if y == nil {
			return nil
		}
	}
	return y
}

// SetPath writes v at path under root. Missing intermediate containers,
// or ones of the wrong kind, are created: a purely numeric next segment
// makes a list, anything else a map. This misreads maps with numeric
// keys, which callers rely on as is. Fabricating a container is logged
// as a warning and reported in the result.
func SetPath(root *Node, path string, v *Node) bool {
	if IsSimplePath(path) {
		SetChild(root, path, v)
		return false
	}
	fabricated := SetFields(root, PathFields(path), v)
	if fabricated {
		debug.Warn("updated field does not exist in the data or its datatype is inconsistent", "path", path)
	}
	return fabricated
}

// SetFields is SetPath on parsed fields, without the warning.
func SetFields(root *Node, fields []string, v *Node) bool {
	target := root
	fabricated := false
	for i, key := range fields {
		if i == len(fields)-1 {
			SetChild(target, key, v)
			break
		}
		want := ObjectType
		if IsIndex(fields[i+1]) {
			want = ArrayType
		}
		cur := Child(target, key)
		if cur == nil || cur.Type != want {
			cur = &Node{Type: want}
			if !SetChild(target, key, cur) {
				return fabricated
			}
			fabricated = true
		}
		target = cur
	}
	return fabricated
}

// IsPathPrefix reports whether prefix is a leading part of fields.
func IsPathPrefix(prefix, fields []string) bool {
	if len(prefix) > len(fields) {
		return false
	}
	for i := range prefix {
		if prefix[i] != fields[i] {
			return false
		}
	}
	return true
}

// FieldsPath renders fields back to a path expression.
func FieldsPath(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		switch {
		case IsIndex(f) && i > 0:
			b.WriteString("[" + f + "]")
		case i > 0:
			b.WriteString("." + f)
		default:
			b.WriteString(f)
		}
	}
	return b.String()
}

// JSONPointer renders fields as an RFC 6901 JSON pointer.
func JSONPointer(fields []string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteByte('/')
		f = strings.ReplaceAll(f, "~", "~0")
		b.WriteString(strings.ReplaceAll(f, "/", "~1"))
	}
	return b.String()
}
