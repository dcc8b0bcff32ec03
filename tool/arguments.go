package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Arguments holds validated call arguments. Values are normalized to int64,
// float64, string, bool, map[string]any or []any according to the declared
// parameter type.
type Arguments map[string]any

// Int returns an integer argument, or 0 when absent.
func (a Arguments) Int(name string) int {
	v, _ := a[name].(int64)
	return int(v)
}

// Float returns a number argument, or 0 when absent.
func (a Arguments) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// String returns a string argument, or "" when absent.
func (a Arguments) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Bool returns a boolean argument, or false when absent.
func (a Arguments) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// Raw returns the normalized value of an argument, for object and array
// parameters.
func (a Arguments) Raw(name string) any {
	return a[name]
}

// Has reports whether the argument was supplied.
func (a Arguments) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// bindArguments checks raw arguments against the tool's parameters and
// returns the normalized set.
func bindArguments(t Tool, raw map[string]any) (Arguments, error) {
	declared := make(map[string]Param, len(t.Params))
	for _, p := range t.Params {
		declared[p.Name] = p
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := declared[k]; !ok {
			return nil, &InvalidArgumentsError{Tool: t.Name, Param: k, Reason: "unexpected parameter"}
		}
	}

	args := make(Arguments, len(raw))
	for _, p := range t.Params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Optional {
				continue
			}
			return nil, &InvalidArgumentsError{Tool: t.Name, Param: p.Name, Reason: "missing required parameter"}
		}
		nv, err := coerce(p.Type, v)
		if err != nil {
			return nil, &InvalidArgumentsError{Tool: t.Name, Param: p.Name, Reason: err.Error()}
		}
		args[p.Name] = nv
	}
	return args, nil
}

func coerce(pt ParamType, v any) (any, error) {
	switch pt {
	case TypeInteger:
		return toInt(v)
	case TypeNumber:
		return toFloat(v)
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeObject:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
	case TypeArray:
		if s, ok := v.([]any); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", pt, v)
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float32:
		return integral(float64(n))
	case float64:
		return integral(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n.String())
		}
		return integral(f)
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected number, got %q", n.String())
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
