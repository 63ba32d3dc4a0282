// Package diag defines the structured diagnostic records produced by
// typechecking and executing expansion logic. Diagnostics are data, never
// panics: a list of them travels in result payloads and is persisted with
// expansion runs.
package diag

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// Severity mirrors the two diagnostic levels authoring tools care about.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one typecheck or execution finding with source location.
type Diagnostic struct {
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
	Severity Severity `json:"severity"`
}

func (d Diagnostic) String() string {
	if d.Location == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Location, d.Message)
}

// FromHCL converts an hcl.Diagnostics list into the stored representation.
func FromHCL(diags hcl.Diagnostics) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := SeverityError
		if d.Severity == hcl.DiagWarning {
			severity = SeverityWarning
		}
		msg := d.Summary
		if d.Detail != "" {
			msg = fmt.Sprintf("%s: %s", d.Summary, d.Detail)
		}
		location := ""
		if d.Subject != nil {
			location = d.Subject.String()
		}
		out = append(out, Diagnostic{Message: msg, Location: location, Severity: severity})
	}
	return out
}

// Errorf builds a single-element error diagnostic list, the shape used when
// a worker crash or timeout is attributed to one activity.
func Errorf(format string, args ...any) []Diagnostic {
	return []Diagnostic{{Message: fmt.Sprintf(format, args...), Severity: SeverityError}}
}

// HasErrors reports whether any diagnostic in the list is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
