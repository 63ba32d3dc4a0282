package codegen

import (
	"fmt"
	"strings"

	"github.com/NASA-AMMOS/aerie-sub006/internal/dictionary"
)

// Declaration renders the human-readable stem signature listing persisted
// next to the machine artifact. It documents, per stem, the generated
// symbol, the canonical argument order and each argument's type.
func (s *SchemaSet) Declaration() string {
	var b strings.Builder
	fmt.Fprintf(&b, "// Command interface for %s\n", s.DictionaryID())
	fmt.Fprintf(&b, "// Generated from the mission command dictionary; do not edit.\n")
	for _, stem := range s.Stems {
		b.WriteByte('\n')
		if stem.Description != "" {
			fmt.Fprintf(&b, "// %s\n", stem.Description)
		}
		if stem.Symbol != stem.Stem {
			fmt.Fprintf(&b, "// stem: %s\n", stem.Stem)
		}
		fmt.Fprintf(&b, "%s(%s)\n", stem.Symbol, signature(stem.Args))
	}
	return b.String()
}

func signature(args []ArgSchema) string {
	parts := make([]string, 0, len(args))
	for i := range args {
		parts = append(parts, fmt.Sprintf("%s: %s", args[i].Name, typeLabel(&args[i])))
	}
	return strings.Join(parts, ", ")
}

func typeLabel(a *ArgSchema) string {
	switch a.Kind {
	case dictionary.KindEnum:
		return a.EnumName
	case dictionary.KindBoolean:
		return "bool"
	case dictionary.KindFloat:
		return fmt.Sprintf("float%d", a.Bits)
	case dictionary.KindInteger:
		return fmt.Sprintf("int%d", a.Bits)
	case dictionary.KindUnsigned:
		return fmt.Sprintf("uint%d", a.Bits)
	case dictionary.KindVarString, dictionary.KindFixedString:
		if a.MaxChars > 0 {
			return fmt.Sprintf("string(%d)", a.MaxChars)
		}
		return "string"
	case dictionary.KindTime:
		return "time"
	case dictionary.KindRepeat:
		return fmt.Sprintf("list(object({%s}), %d..%d)", signature(a.Fields), a.MinRepeat, a.MaxRepeat)
	default:
		return string(a.Kind)
	}
}
