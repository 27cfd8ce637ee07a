package attribute

import (
	"path"
	"strconv"
	"strings"
)

// Validate coerces raw into a value conforming to the descriptor. It
// returns a *ValidationError when coercion is impossible.
func (d *Descriptor) Validate(raw any) (any, error) {
	ops, ok := kinds[d.Kind]
	if !ok {
		return nil, validationErr(d, raw, "unknown attribute kind %q", d.Kind)
	}
	return ops.Validate(d, raw)
}

func validateBool(d *Descriptor, raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on", "y", "yes":
			return true, nil
		case "0", "false", "off", "n", "no":
			return false, nil
		}
		return nil, validationErr(d, raw, "bool attribute expects a boolean or a truthy/falsy token")
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	}
	return nil, validationErr(d, raw, "bool attribute expects a boolean value")
}

func validateInt(d *Descriptor, raw any) (any, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, validationErr(d, raw, "int attribute expects an integer value")
		}
		return int(i), nil
	}
	return nil, validationErr(d, raw, "int attribute expects an integer value")
}

func validateFloat(d *Descriptor, raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, validationErr(d, raw, "float attribute expects a numeric value")
		}
		return f, nil
	}
	return nil, validationErr(d, raw, "float attribute expects a numeric value")
}

func validateString(d *Descriptor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, validationErr(d, raw, "string attribute expects a string value")
	}
	return s, nil
}

func validateColor(d *Descriptor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok || len(strings.Split(s, " ")) > 1 {
		return nil, validationErr(d, raw, "color attribute expects a single SVG name or hexadecimal code")
	}
	return s, nil
}

func validateFile(d *Descriptor, raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, validationErr(d, raw, "file attribute expects a string path")
	}
	if s == "" {
		return "", nil
	}
	return path.Clean(strings.ReplaceAll(s, "\\", "/")), nil
}

// conformChoice coerces a single candidate to the element type of the first
// declared allowed value and checks membership in the allowed set.
func conformChoice(d *Descriptor, raw any) (any, error) {
	if len(d.Values) == 0 {
		return nil, validationErr(d, raw, "choice attribute declares no allowed values")
	}
	var coerce func(*Descriptor, any) (any, error)
	switch d.Values[0].(type) {
	case bool:
		coerce = validateBool
	case int:
		coerce = validateInt
	case float64:
		coerce = validateFloat
	case string:
		coerce = validateString
	default:
		return nil, validationErr(d, raw, "choice attribute has unsupported element type %T", d.Values[0])
	}
	v, err := coerce(d, raw)
	if err != nil {
		return nil, err
	}
	for _, allowed := range d.Values {
		if v == allowed {
			return v, nil
		}
	}
	return nil, validationErr(d, v, "value is not one of the allowed choices %v", d.Values)
}

func validateChoice(d *Descriptor, raw any) (any, error) {
	if d.Exclusive {
		return conformChoice(d, raw)
	}
	var items []any
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			items = append(items, strings.TrimSpace(part))
		}
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		return nil, validationErr(d, raw, "non-exclusive choice attribute expects a sequence of values")
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := conformChoice(d, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func validateList(d *Descriptor, raw any) (any, error) {
	if s, ok := raw.(string); ok {
		parsed, err := parseLiteral(s)
		if err != nil {
			return nil, validationErr(d, raw, "list attribute could not parse string input: %v", err)
		}
		raw = parsed
	}
	switch v := raw.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, 0, len(v))
		for _, s := range v {
			out = append(out, s)
		}
		return out, nil
	}
	return nil, validationErr(d, raw, "list attribute expects a sequence value")
}

func validateGroup(d *Descriptor, raw any) (any, error) {
	if s, ok := raw.(string); ok {
		parsed, err := parseLiteral(s)
		if err != nil {
			return nil, validationErr(d, raw, "group attribute could not parse string input: %v", err)
		}
		raw = parsed
	}
	switch v := raw.(type) {
	case map[string]any:
		if len(d.Children) > 0 {
			common := false
			for key := range v {
				if d.Child(key) != nil {
					common = true
					break
				}
			}
			if !common {
				return nil, validationErr(d, raw, "value shares no key with the group's children")
			}
		}
		return v, nil
	case []any:
		if len(v) != len(d.Children) {
			return nil, validationErr(d, raw, "positional value has %d elements, group declares %d children", len(v), len(d.Children))
		}
		return v, nil
	}
	return nil, validationErr(d, raw, "group attribute expects a mapping or a sequence value")
}
