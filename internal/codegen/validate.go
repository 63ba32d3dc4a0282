package codegen

import (
	"fmt"
	"math"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/NASA-AMMOS/aerie-sub006/internal/dictionary"
	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

// CheckCall verifies the calling convention and per-argument types of a
// call without requiring known values, so expressions over unresolved
// variables can be checked statically. Dictionary constraints that need a
// concrete value (ranges, enum membership, lengths) are deferred to Decode.
func (s *StemSchema) CheckCall(args cty.Value) error {
	values, err := s.linearize(args)
	if err != nil {
		return fmt.Errorf("stem %s: %w", s.Stem, err)
	}
	for i := range s.Args {
		if _, err := convert.Convert(values[i], s.Args[i].ctyType); err != nil {
			return fmt.Errorf("stem %s: argument %q: %w", s.Stem, s.Args[i].Name, err)
		}
	}
	return nil
}

// Decode checks a value against the argument schema and returns the native
// representation stored in command arguments. Conversion follows cty's
// coercion rules, then the dictionary constraints (bit-width ranges, enum
// membership, string lengths, repeat arity) are enforced.
func (a *ArgSchema) Decode(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, fmt.Errorf("argument %q must not be null", a.Name)
	}
	conv, err := convert.Convert(val, a.ctyType)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", a.Name, err)
	}
	if !conv.IsWhollyKnown() {
		return nil, fmt.Errorf("argument %q: value is not known at execution time", a.Name)
	}

	switch a.Kind {
	case dictionary.KindEnum:
		symbol := conv.AsString()
		for _, allowed := range a.Enum {
			if symbol == allowed {
				return symbol, nil
			}
		}
		return nil, fmt.Errorf("argument %q: %q is not a symbol of enum %s", a.Name, symbol, a.EnumName)

	case dictionary.KindBoolean:
		return conv.True(), nil

	case dictionary.KindFloat:
		f, _ := conv.AsBigFloat().Float64()
		if a.Bits == 32 && !math.IsInf(f, 0) && (f > math.MaxFloat32 || f < -math.MaxFloat32) {
			return nil, fmt.Errorf("argument %q: %g exceeds 32-bit float range", a.Name, f)
		}
		return f, nil

	case dictionary.KindInteger:
		n, err := integralValue(conv)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		lo, hi := signedRange(a.Bits)
		if n < lo || n > hi {
			return nil, fmt.Errorf("argument %q: %d outside %d-bit signed range [%d, %d]", a.Name, n, a.Bits, lo, hi)
		}
		return n, nil

	case dictionary.KindUnsigned:
		n, err := integralValue(conv)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		hi := unsignedMax(a.Bits)
		if n < 0 || uint64(n) > hi {
			return nil, fmt.Errorf("argument %q: %d outside %d-bit unsigned range [0, %d]", a.Name, n, a.Bits, hi)
		}
		return n, nil

	case dictionary.KindVarString, dictionary.KindFixedString:
		s := conv.AsString()
		if a.MaxChars > 0 && len(s) > a.MaxChars {
			return nil, fmt.Errorf("argument %q: string length %d exceeds maximum %d", a.Name, len(s), a.MaxChars)
		}
		return s, nil

	case dictionary.KindTime:
		s := conv.AsString()
		if _, err := timecode.ParseDOY(s); err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		return s, nil

	case dictionary.KindRepeat:
		return a.decodeRepeat(conv)

	default:
		// Generate rejects unknown kinds, so a schema can never carry one.
		return nil, fmt.Errorf("argument %q: unsupported kind %q", a.Name, a.Kind)
	}
}

// decodeRepeat validates the list-of-group structure of a repeat argument.
// The group structure is preserved, never flattened.
func (a *ArgSchema) decodeRepeat(val cty.Value) (any, error) {
	count := val.LengthInt()
	if count < a.MinRepeat {
		return nil, fmt.Errorf("argument %q: %d repetitions, minimum is %d", a.Name, count, a.MinRepeat)
	}
	if a.MaxRepeat > 0 && count > a.MaxRepeat {
		return nil, fmt.Errorf("argument %q: %d repetitions, maximum is %d", a.Name, count, a.MaxRepeat)
	}

	groups := make([]any, 0, count)
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		group := make(map[string]any, len(a.Fields))
		for i := range a.Fields {
			field := &a.Fields[i]
			attr := elem.GetAttr(field.Name)
			native, err := field.Decode(attr)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", a.Name, err)
			}
			group[field.Name] = native
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func integralValue(v cty.Value) (int64, error) {
	bf := v.AsBigFloat()
	if !bf.IsInt() {
		return 0, fmt.Errorf("%s is not an integer", bf.String())
	}
	n, acc := bf.Int64()
	if acc != big.Exact {
		return 0, fmt.Errorf("%s overflows 64 bits", bf.String())
	}
	return n, nil
}

func signedRange(bits int) (int64, int64) {
	if bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	hi := int64(1)<<(bits-1) - 1
	return -hi - 1, hi
}

func unsignedMax(bits int) uint64 {
	if bits >= 64 {
		return math.MaxUint64
	}
	return uint64(1)<<bits - 1
}
