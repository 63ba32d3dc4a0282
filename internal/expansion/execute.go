package expansion

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// run evaluates the artifact's command blocks against one concrete
// activity. Commands come back only when evaluation was error-free; any
// error yields nil commands plus the full diagnostic list.
func (a *Artifact) run(act store.SimulatedActivity) ([]seqjson.Command, []diag.Diagnostic) {
	actVal, err := activityValue(act)
	if err != nil {
		return nil, diag.Errorf("%s", err)
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"activity": actVal},
	}

	var hclDiags hcl.Diagnostics
	commands := make([]seqjson.Command, 0, len(a.commands))
	for i := range a.commands {
		cmd, cmdDiags := a.commands[i].evaluate(evalCtx)
		hclDiags = append(hclDiags, cmdDiags...)
		if !cmdDiags.HasErrors() {
			commands = append(commands, cmd)
		}
	}

	if hclDiags.HasErrors() {
		return nil, diag.FromHCL(hclDiags)
	}
	return commands, nil
}

func (c *compiledCommand) evaluate(evalCtx *hcl.EvalContext) (seqjson.Command, hcl.Diagnostics) {
	args := cty.NilVal
	if c.args != nil {
		val, diags := c.args.Value(evalCtx)
		if diags.HasErrors() {
			return seqjson.Command{}, diags
		}
		args = val
	}

	cmd, err := c.schema.BuildCommand(args)
	if err != nil {
		return seqjson.Command{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Command construction failed",
			Detail:   err.Error(),
			Subject:  c.defRange.Ptr(),
		}}
	}

	timing, diags := c.evaluateTiming(evalCtx)
	if diags.HasErrors() {
		return seqjson.Command{}, diags
	}
	return cmd.WithTime(timing), nil
}

func (c *compiledCommand) evaluateTiming(evalCtx *hcl.EvalContext) (seqjson.Time, hcl.Diagnostics) {
	if c.timeExpr == nil {
		return seqjson.CompleteTime(), nil
	}
	val, diags := c.timeExpr.Value(evalCtx)
	if diags.HasErrors() {
		return seqjson.Time{}, diags
	}
	conv, err := convert.Convert(val, cty.String)
	if err != nil || !conv.IsKnown() || conv.IsNull() {
		return seqjson.Time{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid timing tag",
			Detail:   "The timing attribute did not produce a string.",
			Subject:  c.timeExpr.Range().Ptr(),
		}}
	}
	timing, err := parseTimingTag(c.timing, conv.AsString())
	if err != nil {
		return seqjson.Time{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid timing tag",
			Detail:   err.Error(),
			Subject:  c.timeExpr.Range().Ptr(),
		}}
	}
	return timing, nil
}
