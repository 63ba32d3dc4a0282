// Package dictionary models a mission command dictionary: the catalogue of
// legal command stems, their argument schemas and enumerations. Documents
// arrive as AMPCS-style XML and parse into an ordered, format-agnostic model
// that the code generator consumes.
package dictionary

import "fmt"

// ArgKind enumerates the dictionary argument categories. Kinds outside this
// set survive parsing (the element name is recorded verbatim) and are
// rejected later, at generation time, as a fatal condition for the whole
// dictionary version.
type ArgKind string

const (
	KindEnum        ArgKind = "enum"
	KindBoolean     ArgKind = "boolean"
	KindFloat       ArgKind = "float"
	KindInteger     ArgKind = "integer"
	KindUnsigned    ArgKind = "unsigned"
	KindVarString   ArgKind = "var_string"
	KindFixedString ArgKind = "fixed_string"
	KindTime        ArgKind = "time"
	KindRepeat      ArgKind = "repeat"
)

// EnumValue is one symbol of an enumeration table.
type EnumValue struct {
	Symbol  string
	Numeric int64
}

// ArgDef describes one command argument as declared in the dictionary.
type ArgDef struct {
	Name        string
	Kind        ArgKind
	Description string

	// Enum arguments
	EnumName string

	// Numeric and fixed-string arguments
	BitLength int

	// Variable-length string arguments
	PrefixBitLength int
	MaxBitLength    int

	// Repeat arguments: the repeated group and its arity bounds.
	Repeat    []ArgDef
	MinRepeat int
	MaxRepeat int
}

// CommandDef is one command stem and its ordered argument list. Argument
// order here is the canonical dictionary order.
type CommandDef struct {
	Stem        string
	Description string
	Args        []ArgDef
}

// Dictionary is a parsed command dictionary identified by (mission, version).
type Dictionary struct {
	Mission  string
	Version  string
	Enums    map[string][]EnumValue
	Commands []CommandDef
}

// ID is the durable identity of the dictionary. Re-uploading the same
// (mission, version) keeps this identity and overwrites generated content.
func (d *Dictionary) ID() string {
	return fmt.Sprintf("%s@%s", d.Mission, d.Version)
}

// Command looks up a stem definition.
func (d *Dictionary) Command(stem string) (CommandDef, bool) {
	for _, c := range d.Commands {
		if c.Stem == stem {
			return c, true
		}
	}
	return CommandDef{}, false
}

// EnumValues returns the symbols of a named enumeration table.
func (d *Dictionary) EnumValues(name string) ([]EnumValue, bool) {
	vals, ok := d.Enums[name]
	return vals, ok
}
