package expansion

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/NASA-AMMOS/aerie-sub006/internal/codegen"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

// TypecheckRequest carries one piece of logic plus the context it compiles
// against: the generated dictionary schemas and the activity type's
// attribute declarations.
type TypecheckRequest struct {
	Schemas        *codegen.SchemaSet
	ActivitySchema store.ActivitySchema
	MissionModelID string
	ActivityType   string
	Logic          string
}

// Hash is the content hash identifying this compilation.
func (r TypecheckRequest) Hash() string {
	return ContentHash(r.Schemas.DictionaryID(), r.MissionModelID, r.ActivityType, r.Logic)
}

// Artifact is the reusable compiled form of one piece of expansion logic.
// It is immutable after compilation and safe for concurrent Execute calls.
type Artifact struct {
	Hash         string
	ActivityType string

	commands []compiledCommand
}

type compiledCommand struct {
	schema   *codegen.StemSchema
	args     hcl.Expression // nil when the block declares no args
	timing   seqjson.TimeKind
	timeExpr hcl.Expression // nil for command-complete
	defRange hcl.Range
}

var logicSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "command", LabelNames: []string{"stem"}},
	},
}

var commandBlockSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "args"},
		{Name: "at"},
		{Name: "after"},
		{Name: "epoch"},
	},
}

// timingAttrs maps each timing attribute to the variant it selects.
var timingAttrs = map[string]seqjson.TimeKind{
	"at":    seqjson.TimeAbsolute,
	"after": seqjson.TimeCommandRelative,
	"epoch": seqjson.TimeEpochRelative,
}

// compile parses and typechecks logic. Diagnostics are the result, not an
// error: a non-empty error list means the logic was rejected.
func compile(req TypecheckRequest) (*Artifact, []diag.Diagnostic) {
	filename := req.ActivityType + ".hcl"
	file, parseDiags := hclsyntax.ParseConfig([]byte(req.Logic), filename, hcl.InitialPos)
	if parseDiags.HasErrors() {
		return nil, diag.FromHCL(parseDiags)
	}

	content, contentDiags := file.Body.Content(logicSchema)
	hclDiags := append(hcl.Diagnostics{}, contentDiags...)

	actType := activityCtyType(req.ActivitySchema)
	checkCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"activity": cty.UnknownVal(actType),
		},
	}

	art := &Artifact{
		Hash:         req.Hash(),
		ActivityType: req.ActivityType,
	}

	for _, block := range content.Blocks {
		cmd, cmdDiags := compileCommand(req.Schemas, block, checkCtx)
		hclDiags = append(hclDiags, cmdDiags...)
		if !cmdDiags.HasErrors() {
			art.commands = append(art.commands, cmd)
		}
	}

	if hclDiags.HasErrors() {
		return nil, diag.FromHCL(hclDiags)
	}
	return art, nil
}

func compileCommand(schemas *codegen.SchemaSet, block *hcl.Block, checkCtx *hcl.EvalContext) (compiledCommand, hcl.Diagnostics) {
	stem := block.Labels[0]
	cmd := compiledCommand{
		timing:   seqjson.TimeComplete,
		defRange: block.DefRange,
	}

	content, diags := block.Body.Content(commandBlockSchema)

	schema, ok := schemas.Stem(stem)
	if !ok {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown command stem",
			Detail:   fmt.Sprintf("Stem %q is not defined by dictionary %s.", stem, schemas.DictionaryID()),
			Subject:  block.DefRange.Ptr(),
		})
		return cmd, diags
	}
	cmd.schema = schema

	for name, kind := range timingAttrs {
		attr, ok := content.Attributes[name]
		if !ok {
			continue
		}
		if cmd.timeExpr != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Conflicting timing attributes",
				Detail:   "A command carries at most one of at, after and epoch.",
				Subject:  attr.Range.Ptr(),
			})
			continue
		}
		cmd.timing = kind
		cmd.timeExpr = attr.Expr
		diags = append(diags, checkTimingExpr(kind, attr, checkCtx)...)
	}

	if attr, ok := content.Attributes["args"]; ok {
		cmd.args = attr.Expr
		val, valDiags := attr.Expr.Value(checkCtx)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			if err := schema.CheckCall(val); err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid command arguments",
					Detail:   err.Error(),
					Subject:  attr.Range.Ptr(),
				})
			}
		}
	} else if len(schema.Args) > 0 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing command arguments",
			Detail:   fmt.Sprintf("Stem %s takes %d arguments but the block declares none.", stem, len(schema.Args)),
			Subject:  block.DefRange.Ptr(),
		})
	}

	return cmd, diags
}

// checkTimingExpr validates a timing attribute as far as its value is known
// at compile time. A constant tag is parsed immediately; an expression over
// activity fields is only type-checked and parsed at execution.
func checkTimingExpr(kind seqjson.TimeKind, attr *hcl.Attribute, checkCtx *hcl.EvalContext) hcl.Diagnostics {
	val, diags := attr.Expr.Value(checkCtx)
	if diags.HasErrors() {
		return diags
	}
	conv, err := convert.Convert(val, cty.String)
	if err != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid timing tag",
			Detail:   fmt.Sprintf("The %s attribute must be a string: %s.", attr.Name, err),
			Subject:  attr.Range.Ptr(),
		}}
	}
	if !conv.IsKnown() {
		return nil
	}
	if _, err := parseTimingTag(kind, conv.AsString()); err != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid timing tag",
			Detail:   err.Error(),
			Subject:  attr.Range.Ptr(),
		}}
	}
	return nil
}

func parseTimingTag(kind seqjson.TimeKind, tag string) (seqjson.Time, error) {
	switch kind {
	case seqjson.TimeAbsolute:
		t, err := timecode.ParseDOY(tag)
		if err != nil {
			return seqjson.Time{}, err
		}
		return seqjson.AbsoluteTime(t), nil
	case seqjson.TimeCommandRelative:
		d, err := timecode.ParseHMS(tag)
		if err != nil {
			return seqjson.Time{}, err
		}
		return seqjson.CommandRelative(d), nil
	case seqjson.TimeEpochRelative:
		d, err := timecode.ParseHMS(tag)
		if err != nil {
			return seqjson.Time{}, err
		}
		return seqjson.EpochRelative(d), nil
	default:
		return seqjson.CompleteTime(), nil
	}
}
