package convert

import (
	"fmt"
	"reflect"
)

// ParameterInfo describes one declared handler parameter.
type ParameterInfo struct {
	Name        string
	HasDefault  bool
	Default     any
	Annotation  any // nil, profile name, *Converter or reflect.Type
	Variadic    bool
	KeywordOnly bool
}

// CallingConvention selects how a dispatcher calls its handler.
type CallingConvention uint8

const (
	ConventionNoArgs CallingConvention = iota
	ConventionRawContent
	ConventionCompiled
)

func (c CallingConvention) String() string {
	switch c {
	case ConventionNoArgs:
		return "no-args"
	case ConventionRawContent:
		return "raw-content"
	}
	return "compiled"
}

// reservedParams are the leading (context, message) parameters every handler takes.
const reservedParams = 2

func unsupported(param, format string, args ...any) error {
	e := NewError(KindUnsupportedSignature, "", fmt.Sprintf(format, args...))
	e.Param = param
	return e
}

// AnalyzeSignature turns handler parameters into the converter sequence that
// parses their arguments. It is pure: the same input always yields the same
// sequence.
func (r *Registry) AnalyzeSignature(params []ParameterInfo) ([]*Converter, CallingConvention, error) {
	positional := make([]ParameterInfo, 0, len(params))
	for _, p := range params {
		if p.KeywordOnly {
			if !p.HasDefault {
				return nil, 0, unsupported(p.Name, "required keyword-only parameter")
			}
			continue
		}
		positional = append(positional, p)
	}

	if len(positional) < reservedParams {
		return nil, 0, unsupported("", "handler takes %d positional parameters, need at least %d", len(positional), reservedParams)
	}
	for i, want := range []reflect.Type{contextType, messageType} {
		p := positional[i]
		if p.HasDefault {
			return nil, 0, unsupported(p.Name, "reserved parameter has a default")
		}
		if p.Variadic {
			return nil, 0, unsupported(p.Name, "reserved parameter is variadic")
		}
		if p.Annotation != nil && p.Annotation != want {
			return nil, 0, unsupported(p.Name, "reserved parameter annotated as %v, want %v", p.Annotation, want)
		}
	}

	rest := positional[reservedParams:]
	converters := make([]*Converter, 0, len(rest))
	for i, p := range rest {
		last := i == len(rest)-1
		if p.Variadic && !last {
			return nil, 0, unsupported(p.Name, "variadic parameter is not last")
		}
		if p.Variadic && p.HasDefault {
			return nil, 0, unsupported(p.Name, "variadic parameter has a default")
		}

		c, err := r.converterFor(p, len(rest) == 1, last)
		if err != nil {
			return nil, 0, withParam(err, p.Name)
		}
		converters = append(converters, c)
	}

	switch {
	case len(converters) == 0:
		return nil, ConventionNoArgs, nil
	case len(converters) == 1 && converters[0].Type() == TypeContent:
		return converters, ConventionRawContent, nil
	}
	return converters, ConventionCompiled, nil
}

func (r *Registry) converterFor(p ParameterInfo, only, last bool) (*Converter, error) {
	var (
		c   *Converter
		err error
	)
	switch {
	case p.Annotation != nil:
		c, err = r.resolveAnnotation(p.Annotation)
	case p.Variadic:
		c, err = r.NewConverter(TypeString)
	case only:
		c, err = r.NewConverter(TypeContent)
	case last:
		c, err = r.NewConverter(TypeRest)
	default:
		c, err = r.NewConverter(TypeString)
	}
	if err != nil {
		return nil, err
	}

	if p.Variadic {
		if !c.Profile().ArityMeaningful {
			return nil, NewError(KindUnsupportedSignature, c.Type(), "variadic parameter needs a repeatable type")
		}
		c = c.Variadic()
	}
	if p.HasDefault {
		if c, err = r.WithDefaultValue(c, p.Default); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *Registry) resolveAnnotation(a any) (*Converter, error) {
	switch v := a.(type) {
	case *Converter:
		return v, nil
	case string:
		return r.NewConverter(v)
	case reflect.Type:
		if name, ok := goTypes[v]; ok {
			return r.NewConverter(name)
		}
		if v.Kind() == reflect.Slice {
			if name, ok := goTypes[v.Elem()]; ok {
				return r.NewConverter(name, WithRange(1, 0))
			}
		}
		return nil, NewError(KindUnknownType, v.String(), "no converter for Go type")
	}
	return nil, NewError(KindUnknownType, fmt.Sprintf("%T", a), "unsupported annotation")
}
