package dispatch

import (
	"fmt"
	"reflect"
)

// coerce converts a resolved value to a handler parameter type. Nil becomes
// the zero value and []any becomes a typed slice.
func coerce(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if items, ok := v.([]any); ok && t.Kind() == reflect.Slice {
		out := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			ev, err := coerce(item, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}
	if convertible(rv.Type(), t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %v", v, t)
}

// compatible reports whether values of type from can always be coerced to to.
func compatible(from, to reflect.Type) bool {
	return from.AssignableTo(to) || convertible(from, to)
}

// convertible limits reflect conversions to numbers and strings; int to
// string would otherwise produce a rune.
func convertible(from, to reflect.Type) bool {
	switch {
	case numeric(from) && numeric(to):
		return true
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return true
	}
	return false
}

func numeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
