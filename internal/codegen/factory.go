package codegen

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
)

// BuildCommand is the runtime factory for a stem. It accepts either calling
// convention: a tuple or list value is a positional call matched against the
// canonical argument order, an object value is a named-argument record that
// is relinearized back to dictionary order. The returned command carries
// command-complete timing; callers attach an explicit tag afterwards.
func (s *StemSchema) BuildCommand(args cty.Value) (seqjson.Command, error) {
	values, err := s.linearize(args)
	if err != nil {
		return seqjson.Command{}, fmt.Errorf("stem %s: %w", s.Stem, err)
	}

	cmdArgs := make([]seqjson.Arg, 0, len(s.Args))
	for i := range s.Args {
		native, err := s.Args[i].Decode(values[i])
		if err != nil {
			return seqjson.Command{}, fmt.Errorf("stem %s: %w", s.Stem, err)
		}
		cmdArgs = append(cmdArgs, seqjson.Arg{Name: s.Args[i].Name, Value: native})
	}
	return seqjson.NewCommand(s.Stem, cmdArgs...), nil
}

// linearize maps either calling convention onto the canonical argument order.
func (s *StemSchema) linearize(args cty.Value) ([]cty.Value, error) {
	if len(s.Args) == 0 {
		if args == cty.NilVal || args.IsNull() {
			return nil, nil
		}
	}
	if args == cty.NilVal || args.IsNull() {
		return nil, fmt.Errorf("expects %d arguments, got none", len(s.Args))
	}

	ty := args.Type()
	switch {
	case ty.IsTupleType() || ty.IsListType():
		if args.LengthInt() != len(s.Args) {
			return nil, fmt.Errorf("positional call expects %d arguments, got %d", len(s.Args), args.LengthInt())
		}
		values := make([]cty.Value, 0, len(s.Args))
		for it := args.ElementIterator(); it.Next(); {
			_, v := it.Element()
			values = append(values, v)
		}
		return values, nil

	case ty.IsObjectType() || ty.IsMapType():
		values := make([]cty.Value, 0, len(s.Args))
		for i := range s.Args {
			name := s.Args[i].Name
			if ty.IsObjectType() {
				if !ty.HasAttribute(name) {
					return nil, fmt.Errorf("named call is missing argument %q", name)
				}
				values = append(values, args.GetAttr(name))
			} else {
				idx := cty.StringVal(name)
				if args.HasIndex(idx) != cty.True {
					return nil, fmt.Errorf("named call is missing argument %q", name)
				}
				values = append(values, args.Index(idx))
			}
		}
		if ty.IsObjectType() {
			for _, name := range sortedAttributeNames(ty) {
				if !s.hasArg(name) {
					return nil, fmt.Errorf("named call carries unknown argument %q", name)
				}
			}
		}
		return values, nil

	default:
		return nil, fmt.Errorf("arguments must be a tuple (positional) or object (named), got %s", ty.FriendlyName())
	}
}

func (s *StemSchema) hasArg(name string) bool {
	for i := range s.Args {
		if s.Args[i].Name == name {
			return true
		}
	}
	return false
}

func sortedAttributeNames(ty cty.Type) []string {
	attrs := ty.AttributeTypes()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	return names
}
