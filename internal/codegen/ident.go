package codegen

import "strings"

// escapePrefix is the fixed prefix applied to stems that would not form a
// legal generated identifier. Only the generated symbol changes; the stem
// string itself is preserved everywhere at runtime.
const escapePrefix = "CMD_"

// reservedWords are identifiers a stem may not shadow in generated output.
var reservedWords = map[string]struct{}{
	"activity": {}, "command": {}, "sequence": {}, "args": {},
	"absolute": {}, "epoch": {}, "relative": {}, "metadata": {},
	"true": {}, "false": {}, "null": {},
	"for": {}, "if": {}, "in": {},
}

// escapeIdentifier returns a syntactically valid symbol for a stem. Stems
// that already form valid identifiers pass through unchanged.
func escapeIdentifier(stem string) string {
	if stem == "" {
		return escapePrefix
	}
	if _, reserved := reservedWords[strings.ToLower(stem)]; reserved {
		return escapePrefix + stem
	}
	if stem[0] >= '0' && stem[0] <= '9' {
		return escapePrefix + sanitize(stem)
	}
	if !isIdentifier(stem) {
		return escapePrefix + sanitize(stem)
	}
	return stem
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// sanitize replaces characters that cannot appear in an identifier.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
