package convert

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Introspect reports the parameters of a handler function, skipping the first
// skip parameters (a method receiver passed explicitly). Plain string
// parameters are reported unannotated so positional conventions apply to
// them; the element type stands in for a variadic parameter.
func Introspect(fn any, skip int) ([]ParameterInfo, error) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return nil, unsupported("", "handler is %T, not a function", fn)
	}
	if t.NumOut() != 1 || t.Out(0) != errorType {
		return nil, unsupported("", "handler must return exactly one error")
	}
	if t.NumIn() < skip {
		return nil, unsupported("", "handler takes %d parameters, cannot skip %d", t.NumIn(), skip)
	}

	params := make([]ParameterInfo, 0, t.NumIn()-skip)
	for i := skip; i < t.NumIn(); i++ {
		in := t.In(i)
		p := ParameterInfo{Name: fmt.Sprintf("arg%d", i-skip)}
		if t.IsVariadic() && i == t.NumIn()-1 {
			p.Variadic = true
			in = in.Elem()
		}
		if in.Kind() != reflect.String || in.PkgPath() != "" {
			p.Annotation = in
		}
		params = append(params, p)
	}
	return params, nil
}
