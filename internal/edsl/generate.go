package edsl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
)

// Generate renders a sequence as HCL source text.
func Generate(seq seqjson.Sequence) (string, error) {
	file := hclwrite.NewEmptyFile()
	seqBody := file.Body().AppendNewBlock("sequence", []string{seq.ID}).Body()

	if len(seq.Metadata) > 0 {
		md, err := ctyFromNative(seq.Metadata)
		if err != nil {
			return "", fmt.Errorf("sequence %s metadata: %w", seq.ID, err)
		}
		seqBody.SetAttributeValue("metadata", md)
		seqBody.AppendNewline()
	}

	for i, cmd := range seq.Steps {
		if err := writeCommand(seqBody, cmd); err != nil {
			return "", fmt.Errorf("sequence %s step %d: %w", seq.ID, i, err)
		}
		if i < len(seq.Steps)-1 {
			seqBody.AppendNewline()
		}
	}
	return string(file.Bytes()), nil
}

func writeCommand(parent *hclwrite.Body, cmd seqjson.Command) error {
	body := parent.AppendNewBlock("command", []string{cmd.Stem}).Body()

	if len(cmd.Args) > 0 {
		elems := make([]cty.Value, 0, len(cmd.Args))
		for _, a := range cmd.Args {
			val, err := ctyFromNative(a.Value)
			if err != nil {
				return fmt.Errorf("argument %q: %w", a.Name, err)
			}
			elems = append(elems, val)
		}
		body.SetAttributeValue("args", cty.TupleVal(elems))
	}

	switch cmd.Time.Kind {
	case seqjson.TimeAbsolute:
		body.SetAttributeValue("at", cty.StringVal(cmd.Time.Tag()))
	case seqjson.TimeCommandRelative:
		body.SetAttributeValue("after", cty.StringVal(cmd.Time.Tag()))
	case seqjson.TimeEpochRelative:
		body.SetAttributeValue("epoch", cty.StringVal(cmd.Time.Tag()))
	}

	if len(cmd.Metadata) > 0 {
		md, err := ctyFromNative(cmd.Metadata)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		body.SetAttributeValue("metadata", md)
	}
	return nil
}

// ctyFromNative lifts the JSON-shaped values the model stores into cty
// values for rendering.
func ctyFromNative(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(x))
		for i, e := range x {
			val, err := ctyFromNative(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, val)
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(x))
		for name, e := range x {
			val, err := ctyFromNative(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: %w", name, err)
			}
			attrs[name] = val
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T", v)
	}
}
