package attribute

import "strings"

// KindOps bundles the per-kind behavior of the schema: value coercion,
// default/range consistency checking, and saved-value matching. The engine
// ships a closed set of kinds but stays open to extension through
// RegisterKind.
type KindOps struct {
	// Validate coerces a raw value, returning *ValidationError on failure.
	Validate func(d *Descriptor, raw any) (any, error)
	// Check returns the descriptor's name (or a colon-joined descendant
	// path) when its own default or range is of the wrong kind, empty
	// string otherwise.
	Check func(d *Descriptor) string
	// Match reports whether a previously saved value still conforms to
	// the descriptor. Nil falls back to "Validate accepts it".
	Match func(d *Descriptor, value any, strict bool) bool
}

var kinds = map[Kind]KindOps{}

// RegisterKind installs the operations for a kind. Registering a kind twice
// panics: kinds are wired once at init time.
func RegisterKind(k Kind, ops KindOps) {
	if _, exists := kinds[k]; exists {
		panic("attribute: kind already registered: " + string(k))
	}
	kinds[k] = ops
}

func init() {
	RegisterKind(KindBool, KindOps{Validate: validateBool, Check: checkDefault[bool]})
	RegisterKind(KindInt, KindOps{Validate: validateInt, Check: checkNumeric[int]})
	RegisterKind(KindFloat, KindOps{Validate: validateFloat, Check: checkNumeric[float64]})
	RegisterKind(KindString, KindOps{Validate: validateString, Check: checkDefault[string]})
	RegisterKind(KindColor, KindOps{Validate: validateColor, Check: checkDefault[string]})
	RegisterKind(KindFile, KindOps{Validate: validateFile, Check: checkDefault[string]})
	RegisterKind(KindChoice, KindOps{Validate: validateChoice, Check: func(*Descriptor) string { return "" }})
	RegisterKind(KindList, KindOps{Validate: validateList, Check: checkList, Match: matchList})
	RegisterKind(KindGroup, KindOps{Validate: validateGroup, Check: checkGroup, Match: matchGroup})
}

// CheckValueTypes verifies the descriptor's own default value (and numeric
// range, when declared) against its kind. It returns the attribute's name
// when invalid, recursing into groups with a colon-joined path, and an
// empty string when everything is consistent.
func (d *Descriptor) CheckValueTypes() string {
	ops, ok := kinds[d.Kind]
	if !ok {
		return d.Name
	}
	return ops.Check(d)
}

// MatchDescription reports whether a value would still be accepted by the
// descriptor. It never fails: validation errors become a non-match. Strict
// mode requires a group value's key set to equal the descriptor's child set
// exactly; non-strict mode accepts a value matching at least one child.
func (d *Descriptor) MatchDescription(value any, strict bool) bool {
	ops, ok := kinds[d.Kind]
	if !ok {
		return false
	}
	if _, err := ops.Validate(d, value); err != nil {
		return false
	}
	if ops.Match == nil {
		return true
	}
	return ops.Match(d, value, strict)
}

func checkDefault[T any](d *Descriptor) string {
	if _, ok := d.Default.(T); !ok {
		return d.Name
	}
	return ""
}

func checkNumeric[T any](d *Descriptor) string {
	if name := checkDefault[T](d); name != "" {
		return name
	}
	for _, bound := range d.Range {
		if _, ok := bound.(T); !ok {
			return d.Name
		}
	}
	return ""
}

func checkList(d *Descriptor) string {
	if d.Element == nil {
		return d.Name
	}
	return d.Element.CheckValueTypes()
}

func checkGroup(d *Descriptor) string {
	var invalid []string
	for _, child := range d.Children {
		if name := child.CheckValueTypes(); name != "" {
			invalid = append(invalid, d.Name+":"+name)
		}
	}
	return strings.Join(invalid, ", ")
}

// matchList requires the first element to match the element descriptor; a
// homogeneous list needs only its head checked. The value runs through the
// same normalization as validation, so every accepted shape matches.
func matchList(d *Descriptor, value any, strict bool) bool {
	normalized, err := validateList(d, value)
	if err != nil {
		return false
	}
	items := normalized.([]any)
	if d.Element == nil || len(items) == 0 {
		return true
	}
	return d.Element.MatchDescription(items[0], strict)
}

func matchGroup(d *Descriptor, value any, strict bool) bool {
	switch v := value.(type) {
	case map[string]any:
		matched := 0
		for name, childValue := range v {
			child := d.Child(name)
			if child != nil && child.MatchDescription(childValue, strict) {
				matched++
			}
		}
		if strict {
			return matched == len(v) && matched == len(d.Children)
		}
		return matched > 0
	case []any:
		// Positional values were already length-checked by validation.
		matched := 0
		for i, childValue := range v {
			if d.Children[i].MatchDescription(childValue, strict) {
				matched++
			}
		}
		if strict {
			return matched == len(d.Children)
		}
		return matched > 0
	}
	return false
}
