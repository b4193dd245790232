package convert

import (
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"sync"
)

// DefaultKind tells how a converter's default value is carried.
type DefaultKind uint8

const (
	DefaultNone    DefaultKind = iota
	DefaultLiteral             // nil, integer or string embedded by value
	DefaultObject              // any other value, held in a DefaultTable
	DefaultSource              // expression evaluated per invocation
)

func (k DefaultKind) String() string {
	switch k {
	case DefaultLiteral:
		return "literal"
	case DefaultObject:
		return "object"
	case DefaultSource:
		return "source"
	}
	return "none"
}

// Default describes the value a slot falls back to.
type Default struct {
	Kind   DefaultKind
	value  any
	ref    *DefaultValueRef
	source string
}

// Literal returns the embedded literal of a DefaultLiteral default.
func (d Default) Literal() any { return d.value }

// Ref returns the side-table reference of a DefaultObject default.
func (d Default) Ref() *DefaultValueRef { return d.ref }

// Source returns the expression of a DefaultSource default.
func (d Default) Source() string { return d.source }

// Repr is the textual form that takes part in converter equality.
func (d Default) Repr() string {
	switch d.Kind {
	case DefaultLiteral:
		switch v := d.value.(type) {
		case nil:
			return "nil"
		case string:
			return strconv.Quote(v)
		default:
			return fmt.Sprint(v)
		}
	case DefaultObject:
		return "ref#" + strconv.FormatUint(d.ref.id, 10)
	case DefaultSource:
		return d.source
	}
	return ""
}

// literal converts v to its embeddable form. Only the predeclared integer
// and string types qualify; integers are widened to int.
func literal(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	rv := reflect.ValueOf(v)
	if rv.Type().PkgPath() != "" {
		return nil, false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int(rv.Uint()), true
	case reflect.String:
		return rv.String(), true
	}
	return nil, false
}

func (t *DefaultTable) defaultFor(v any) Default {
	if lit, ok := literal(v); ok {
		return Default{Kind: DefaultLiteral, value: lit}
	}
	return Default{Kind: DefaultObject, ref: t.Store(v)}
}

// DefaultValueRef points at a value stored in a DefaultTable. The entry is
// released once the last converter holding the reference is collected.
type DefaultValueRef struct {
	id    uint64
	table *DefaultTable
}

func (r *DefaultValueRef) ID() uint64 { return r.id }

// Value returns the referenced value.
func (r *DefaultValueRef) Value() (any, bool) { return r.table.Load(r.id) }

// DefaultTable holds non-literal default values by id. Entries are written
// once at registration and only read afterwards.
type DefaultTable struct {
	mu     sync.RWMutex
	next   uint64
	values map[uint64]any
}

func NewDefaultTable() *DefaultTable {
	return &DefaultTable{values: make(map[uint64]any)}
}

// Store saves v and returns a reference whose collection releases the entry.
func (t *DefaultTable) Store(v any) *DefaultValueRef {
	t.mu.Lock()
	t.next++
	id := t.next
	t.values[id] = v
	t.mu.Unlock()

	ref := &DefaultValueRef{id: id, table: t}
	runtime.AddCleanup(ref, t.release, id)
	return ref
}

// Load returns the value stored under id.
func (t *DefaultTable) Load(id uint64) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[id]
	return v, ok
}

// Len returns the number of live entries.
func (t *DefaultTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}

func (t *DefaultTable) release(id uint64) {
	t.mu.Lock()
	delete(t.values, id)
	t.mu.Unlock()
}
