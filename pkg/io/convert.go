package io

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/graphwriter/pkg/graph"
	"github.com/matzehuels/graphwriter/pkg/scalar"
)

// converter returns the named converter. An empty name means none.
func converter(name string) (graph.ConvertFunc, error) {
	kind, arg, _ := strings.Cut(name, ":")
	switch kind {
	case "":
		return nil, nil
	case "upper":
		return stringConverter(strings.ToUpper), nil
	case "lower":
		return stringConverter(strings.ToLower), nil
	case "string":
		return func(v any) (any, error) { return fmt.Sprint(v), nil }, nil
	case "decimal":
		places, err := strconv.Atoi(arg)
		if err != nil || places < 0 {
			return nil, fmt.Errorf("converter %q: invalid decimal places", name)
		}
		return func(v any) (any, error) {
			f, ok := number(v)
			if !ok {
				return nil, fmt.Errorf("decimal: %T is not a number", v)
			}
			return scalar.FormatDecimal(f, places), nil
		}, nil
	case "seconds":
		return func(v any) (any, error) {
			f, ok := number(v)
			if !ok {
				return nil, fmt.Errorf("seconds: %T is not a number", v)
			}
			return scalar.FormatSeconds(time.Duration(f)), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown converter %q", name)
}

func stringConverter(fn func(string) string) graph.ConvertFunc {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, fmt.Errorf("%T is not a string", v)
		}
		return fn(s), nil
	}
}

func number(v any) (float64, bool) {
	c := scalar.Classify(v)
	switch c.Kind {
	case scalar.KindInt:
		return float64(c.Int), true
	case scalar.KindUint:
		return float64(c.Uint), true
	case scalar.KindFloat:
		return c.Float, true
	}
	return 0, false
}
