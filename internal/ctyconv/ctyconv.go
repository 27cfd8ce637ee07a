// Package ctyconv converts between cty values used by the HCL configuration
// surface and the plain Go values the engine operates on.
package ctyconv

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// ToGo converts a cty.Value to its plain Go representation. Numbers become
// int when they are whole, float64 otherwise. Null and unknown values become
// nil.
func ToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			bf := val.AsBigFloat()
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
			f, _ := bf.Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, err := ToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = converted
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, err := ToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}

// ToCty converts a plain Go value into its cty equivalent so it can take
// part in HCL expression evaluation.
func ToCty(v any) (cty.Value, error) {
	switch tv := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(tv), nil
	case int:
		return cty.NumberIntVal(int64(tv)), nil
	case int64:
		return cty.NumberIntVal(tv), nil
	case float64:
		return cty.NumberFloatVal(tv), nil
	case string:
		return cty.StringVal(tv), nil
	case []any:
		if len(tv) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(tv))
		for _, e := range tv {
			ev, err := ToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, ev)
		}
		return cty.TupleVal(elems), nil
	case []string:
		elems := make([]cty.Value, 0, len(tv))
		for _, e := range tv {
			elems = append(elems, cty.StringVal(e))
		}
		if len(elems) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}
		return cty.ListVal(elems), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(tv))
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ev, err := ToCty(tv[k])
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = ev
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported Go type for conversion: %T", v)
	}
}
