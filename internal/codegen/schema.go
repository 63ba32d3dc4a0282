package codegen

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/NASA-AMMOS/aerie-sub006/internal/apperr"
	"github.com/NASA-AMMOS/aerie-sub006/internal/ctxlog"
	"github.com/NASA-AMMOS/aerie-sub006/internal/dictionary"
)

// ArgSchema is the generated form of one dictionary argument: its wire name,
// its cty type for expression-level type checking, and the validation
// parameters carried over from the dictionary.
type ArgSchema struct {
	Name     string             `json:"name"`
	Kind     dictionary.ArgKind `json:"kind"`
	EnumName string             `json:"enum_name,omitempty"`
	Enum     []string           `json:"enum,omitempty"`
	Bits     int                `json:"bits,omitempty"`
	MaxChars int                `json:"max_chars,omitempty"`

	// Repeat groups
	Fields    []ArgSchema `json:"fields,omitempty"`
	MinRepeat int         `json:"min_repeat,omitempty"`
	MaxRepeat int         `json:"max_repeat,omitempty"`

	ctyType cty.Type
}

// Type is the cty type an expression must produce for this argument.
func (a *ArgSchema) Type() cty.Type { return a.ctyType }

// StemSchema is the generated form of one command stem. Args holds the
// canonical argument order extracted from the dictionary; positional calls
// are relinearized against it and named calls are reordered to it.
type StemSchema struct {
	Stem        string      `json:"stem"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description,omitempty"`
	Args        []ArgSchema `json:"args"`
}

// ObjectType is the named-argument record type of the stem.
func (s *StemSchema) ObjectType() cty.Type {
	attrs := make(map[string]cty.Type, len(s.Args))
	for i := range s.Args {
		attrs[s.Args[i].Name] = s.Args[i].ctyType
	}
	return cty.Object(attrs)
}

// SchemaSet is the full generated artifact for one dictionary version.
type SchemaSet struct {
	Mission string        `json:"mission"`
	Version string        `json:"version"`
	Stems   []*StemSchema `json:"stems"`

	byStem map[string]*StemSchema
}

// DictionaryID returns the identity of the source dictionary.
func (s *SchemaSet) DictionaryID() string {
	return fmt.Sprintf("%s@%s", s.Mission, s.Version)
}

// Stem looks up a stem schema by its original dictionary stem string.
func (s *SchemaSet) Stem(stem string) (*StemSchema, bool) {
	sc, ok := s.byStem[stem]
	return sc, ok
}

// ResolveArgs implements seqjson.ArgResolver: canonical argument names and
// boolean flags for schema-aware wire decoding.
func (s *SchemaSet) ResolveArgs(stem string) ([]string, []bool, bool) {
	sc, ok := s.byStem[stem]
	if !ok {
		return nil, nil, false
	}
	names := make([]string, len(sc.Args))
	boolean := make([]bool, len(sc.Args))
	for i := range sc.Args {
		names[i] = sc.Args[i].Name
		boolean[i] = sc.Args[i].Kind == dictionary.KindBoolean
	}
	return names, boolean, true
}

// Generate builds the schema set for a dictionary. Any argument whose kind
// the generator does not support fails the whole dictionary version; there
// is no per-argument recovery.
func Generate(ctx context.Context, dict *dictionary.Dictionary) (*SchemaSet, error) {
	logger := ctxlog.FromContext(ctx)
	set := &SchemaSet{
		Mission: dict.Mission,
		Version: dict.Version,
		byStem:  make(map[string]*StemSchema, len(dict.Commands)),
	}

	for _, cmd := range dict.Commands {
		stem := &StemSchema{
			Stem:        cmd.Stem,
			Symbol:      escapeIdentifier(cmd.Stem),
			Description: cmd.Description,
		}
		for _, arg := range cmd.Args {
			schema, err := generateArg(dict, arg)
			if err != nil {
				return nil, apperr.Wrap(apperr.CodeUnsupportedArgument, err, "stem %q", cmd.Stem)
			}
			stem.Args = append(stem.Args, schema)
		}
		set.Stems = append(set.Stems, stem)
		set.byStem[cmd.Stem] = stem
	}

	logger.Debug("Generated dictionary schema set.",
		"dictionary", set.DictionaryID(), "stems", len(set.Stems))
	return set, nil
}

func generateArg(dict *dictionary.Dictionary, arg dictionary.ArgDef) (ArgSchema, error) {
	out := ArgSchema{
		Name:     arg.Name,
		Kind:     arg.Kind,
		EnumName: arg.EnumName,
		Bits:     arg.BitLength,
	}

	switch arg.Kind {
	case dictionary.KindEnum:
		vals, ok := dict.EnumValues(arg.EnumName)
		if !ok {
			return ArgSchema{}, fmt.Errorf("argument %q references unknown enum table %q", arg.Name, arg.EnumName)
		}
		for _, v := range vals {
			out.Enum = append(out.Enum, v.Symbol)
		}
		out.ctyType = cty.String

	case dictionary.KindBoolean:
		out.ctyType = cty.Bool

	case dictionary.KindFloat:
		if arg.BitLength != 32 && arg.BitLength != 64 {
			return ArgSchema{}, fmt.Errorf("argument %q: float bit length %d unsupported", arg.Name, arg.BitLength)
		}
		out.ctyType = cty.Number

	case dictionary.KindInteger, dictionary.KindUnsigned:
		if arg.BitLength < 1 || arg.BitLength > 64 {
			return ArgSchema{}, fmt.Errorf("argument %q: bit length %d out of range", arg.Name, arg.BitLength)
		}
		out.ctyType = cty.Number

	case dictionary.KindVarString:
		out.MaxChars = arg.MaxBitLength / 8
		out.ctyType = cty.String

	case dictionary.KindFixedString:
		out.MaxChars = arg.BitLength / 8
		out.ctyType = cty.String

	case dictionary.KindTime:
		out.ctyType = cty.String

	case dictionary.KindRepeat:
		out.MinRepeat = arg.MinRepeat
		out.MaxRepeat = arg.MaxRepeat
		attrs := make(map[string]cty.Type, len(arg.Repeat))
		for _, sub := range arg.Repeat {
			if sub.Kind == dictionary.KindRepeat {
				return ArgSchema{}, fmt.Errorf("argument %q: nested repeat groups are not supported", arg.Name)
			}
			subSchema, err := generateArg(dict, sub)
			if err != nil {
				return ArgSchema{}, err
			}
			out.Fields = append(out.Fields, subSchema)
			attrs[sub.Name] = subSchema.ctyType
		}
		out.ctyType = cty.List(cty.Object(attrs))

	default:
		return ArgSchema{}, fmt.Errorf("unsupported argument type %q for argument %q", arg.Kind, arg.Name)
	}

	return out, nil
}
