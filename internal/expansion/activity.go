package expansion

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

// activityCtyType builds the type of the logic's activity variable from the
// activity schema's attribute declarations. Computed attributes carry no
// declared schema, so they typecheck as dynamic and are checked at
// execution.
func activityCtyType(schema store.ActivitySchema) cty.Type {
	attrTypes := make(map[string]cty.Type, len(schema.Attributes))
	for name, label := range schema.Attributes {
		attrTypes[name] = attributeType(label)
	}
	return cty.Object(map[string]cty.Type{
		"id":           cty.String,
		"type":         cty.String,
		"start_offset": cty.String,
		"duration":     cty.String,
		"attributes":   cty.Object(attrTypes),
		"computed":     cty.DynamicPseudoType,
	})
}

func attributeType(label string) cty.Type {
	switch label {
	case "number":
		return cty.Number
	case "bool":
		return cty.Bool
	case "string":
		return cty.String
	default:
		return cty.DynamicPseudoType
	}
}

// activityValue builds the concrete activity variable for one simulated
// activity instance. Offsets and durations surface as HMS strings so logic
// can feed them straight into relative timing attributes.
func activityValue(act store.SimulatedActivity) (cty.Value, error) {
	attrs, err := objectFromMap(act.Attributes)
	if err != nil {
		return cty.NilVal, fmt.Errorf("activity %s attributes: %w", act.ID, err)
	}
	computed, err := objectFromMap(act.Computed)
	if err != nil {
		return cty.NilVal, fmt.Errorf("activity %s computed attributes: %w", act.ID, err)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"id":           cty.StringVal(act.ID),
		"type":         cty.StringVal(act.TypeName),
		"start_offset": cty.StringVal(timecode.FormatHMS(act.StartOffset)),
		"duration":     cty.StringVal(timecode.FormatHMS(act.Duration)),
		"attributes":   attrs,
		"computed":     computed,
	}), nil
}

func objectFromMap(m map[string]any) (cty.Value, error) {
	if len(m) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(m))
	for name, v := range m {
		val, err := goValue(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		attrs[name] = val
	}
	return cty.ObjectVal(attrs), nil
}

// goValue lifts the JSON-shaped native values the simulation engine emits
// into cty values.
func goValue(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case map[string]any:
		return objectFromMap(x)
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(x))
		for i, e := range x {
			val, err := goValue(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, val)
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported attribute value of type %T", v)
	}
}
