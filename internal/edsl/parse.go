package edsl

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

var documentSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "sequence", LabelNames: []string{"id"}},
	},
}

var sequenceSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "metadata"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "command", LabelNames: []string{"stem"}},
	},
}

var commandSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "args"},
		{Name: "at"},
		{Name: "after"},
		{Name: "epoch"},
		{Name: "metadata"},
	},
}

// Parse reads sequence source back into the model. The resolver restores
// canonical argument names and boolean values the way seqJson decoding
// does; it may be nil, in which case names are synthesized positionally.
func Parse(src string, resolver seqjson.ArgResolver) (seqjson.Sequence, error) {
	file, diags := hclsyntax.ParseConfig([]byte(src), "sequence.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return seqjson.Sequence{}, fmt.Errorf("parse sequence source: %w", diags)
	}

	content, diags := file.Body.Content(documentSchema)
	if diags.HasErrors() {
		return seqjson.Sequence{}, fmt.Errorf("parse sequence source: %w", diags)
	}
	if len(content.Blocks) != 1 {
		return seqjson.Sequence{}, fmt.Errorf("expected exactly one sequence block, found %d", len(content.Blocks))
	}

	block := content.Blocks[0]
	seq := seqjson.Sequence{ID: block.Labels[0]}

	seqContent, diags := block.Body.Content(sequenceSchema)
	if diags.HasErrors() {
		return seqjson.Sequence{}, fmt.Errorf("sequence %s: %w", seq.ID, diags)
	}

	if attr, ok := seqContent.Attributes["metadata"]; ok {
		md, err := staticObject(attr)
		if err != nil {
			return seqjson.Sequence{}, fmt.Errorf("sequence %s metadata: %w", seq.ID, err)
		}
		seq.Metadata = md
	}

	for _, cmdBlock := range seqContent.Blocks {
		cmd, err := parseCommand(cmdBlock, resolver)
		if err != nil {
			return seqjson.Sequence{}, fmt.Errorf("sequence %s: %w", seq.ID, err)
		}
		seq.Steps = append(seq.Steps, cmd)
	}
	return seq, nil
}

func parseCommand(block *hcl.Block, resolver seqjson.ArgResolver) (seqjson.Command, error) {
	stem := block.Labels[0]
	content, diags := block.Body.Content(commandSchema)
	if diags.HasErrors() {
		return seqjson.Command{}, fmt.Errorf("command %s: %w", stem, diags)
	}

	args, err := parseArgs(stem, content.Attributes["args"], resolver)
	if err != nil {
		return seqjson.Command{}, err
	}
	cmd := seqjson.NewCommand(stem, args...)

	timing, err := parseTiming(stem, content.Attributes)
	if err != nil {
		return seqjson.Command{}, err
	}
	cmd = cmd.WithTime(timing)

	if attr, ok := content.Attributes["metadata"]; ok {
		md, err := staticObject(attr)
		if err != nil {
			return seqjson.Command{}, fmt.Errorf("command %s metadata: %w", stem, err)
		}
		cmd.Metadata = md
	}
	return cmd, nil
}

func parseArgs(stem string, attr *hcl.Attribute, resolver seqjson.ArgResolver) ([]seqjson.Arg, error) {
	if attr == nil {
		return nil, nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("command %s args: %w", stem, diags)
	}
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, fmt.Errorf("command %s: args must be a tuple, got %s", stem, val.Type().FriendlyName())
	}

	var names []string
	var boolean []bool
	if resolver != nil {
		if n, b, ok := resolver.ResolveArgs(stem); ok {
			if len(n) != val.LengthInt() {
				return nil, fmt.Errorf("command %s: dictionary declares %d arguments, source carries %d", stem, len(n), val.LengthInt())
			}
			names, boolean = n, b
		}
	}

	args := make([]seqjson.Arg, 0, val.LengthInt())
	i := 0
	for it := val.ElementIterator(); it.Next(); i++ {
		_, elem := it.Element()
		native, err := nativeFromCty(elem)
		if err != nil {
			return nil, fmt.Errorf("command %s argument %d: %w", stem, i, err)
		}
		name := fmt.Sprintf("arg_%d", i)
		if names != nil {
			name = names[i]
		}
		if boolean != nil && boolean[i] {
			b, err := nativeBool(native)
			if err != nil {
				return nil, fmt.Errorf("command %s argument %q: %w", stem, name, err)
			}
			native = b
		}
		args = append(args, seqjson.Arg{Name: name, Value: native})
	}
	return args, nil
}

func parseTiming(stem string, attrs hcl.Attributes) (seqjson.Time, error) {
	var timing seqjson.Time
	found := 0

	if attr, ok := attrs["at"]; ok {
		tag, err := staticString(attr)
		if err != nil {
			return seqjson.Time{}, fmt.Errorf("command %s: %w", stem, err)
		}
		t, err := timecode.ParseDOY(tag)
		if err != nil {
			return seqjson.Time{}, fmt.Errorf("command %s: %w", stem, err)
		}
		timing = seqjson.AbsoluteTime(t)
		found++
	}
	if attr, ok := attrs["after"]; ok {
		tag, err := staticString(attr)
		if err != nil {
			return seqjson.Time{}, fmt.Errorf("command %s: %w", stem, err)
		}
		d, err := timecode.ParseHMS(tag)
		if err != nil {
			return seqjson.Time{}, fmt.Errorf("command %s: %w", stem, err)
		}
		timing = seqjson.CommandRelative(d)
		found++
	}
	if attr, ok := attrs["epoch"]; ok {
		tag, err := staticString(attr)
		if err != nil {
			return seqjson.Time{}, fmt.Errorf("command %s: %w", stem, err)
		}
		d, err := timecode.ParseHMS(tag)
		if err != nil {
			return seqjson.Time{}, fmt.Errorf("command %s: %w", stem, err)
		}
		timing = seqjson.EpochRelative(d)
		found++
	}

	switch found {
	case 0:
		return seqjson.CompleteTime(), nil
	case 1:
		return timing, nil
	default:
		return seqjson.Time{}, fmt.Errorf("command %s: at, after and epoch are mutually exclusive", stem)
	}
}

func staticString(attr *hcl.Attribute) (string, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("%s: %w", attr.Name, diags)
	}
	if val.Type() != cty.String || val.IsNull() {
		return "", fmt.Errorf("%s must be a string", attr.Name)
	}
	return val.AsString(), nil
}

func staticObject(attr *hcl.Attribute) (map[string]any, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w", diags)
	}
	native, err := nativeFromCty(val)
	if err != nil {
		return nil, err
	}
	md, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("must be an object, got %s", val.Type().FriendlyName())
	}
	return md, nil
}

// nativeFromCty lowers a literal cty value to the JSON-shaped form the
// model stores.
func nativeFromCty(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return n, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := nativeFromCty(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			native, err := nativeFromCty(elem)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

func nativeBool(v any) (bool, error) {
	switch n := v.(type) {
	case bool:
		return n, nil
	case int64:
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, fmt.Errorf("expected a boolean or 0/1, got %v", v)
}
