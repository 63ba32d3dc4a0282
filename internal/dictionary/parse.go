package dictionary

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NASA-AMMOS/aerie-sub006/internal/apperr"
)

// xmlDictionary mirrors the top-level document structure. Argument elements
// are polymorphic (their element name is the kind), so the argument list has
// a custom unmarshaller below.
type xmlDictionary struct {
	XMLName xml.Name  `xml:"command_dictionary"`
	Header  xmlHeader `xml:"header"`
	Enums   []xmlEnum `xml:"enum_definitions>enum_table"`
	Cmds    []xmlCmd  `xml:"command_definitions>fsw_command"`
}

type xmlHeader struct {
	Mission string `xml:"mission_name,attr"`
	Version string `xml:"version,attr"`
}

type xmlEnum struct {
	Name   string         `xml:"name,attr"`
	Values []xmlEnumValue `xml:"values>enum"`
}

type xmlEnumValue struct {
	Symbol  string `xml:"symbol,attr"`
	Numeric int64  `xml:"numeric,attr"`
}

type xmlCmd struct {
	Stem        string  `xml:"stem,attr"`
	Args        argList `xml:"arguments"`
	Description string  `xml:"description"`
}

// argList decodes the ordered, polymorphic children of an <arguments>
// element, preserving document order across differing element names.
type argList []ArgDef

func (a *argList) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			arg, err := decodeArg(d, t)
			if err != nil {
				return err
			}
			*a = append(*a, arg)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

func decodeArg(d *xml.Decoder, start xml.StartElement) (ArgDef, error) {
	kind, found := strings.CutSuffix(start.Name.Local, "_arg")
	if !found {
		kind = start.Name.Local
	}
	arg := ArgDef{Kind: ArgKind(kind)}

	for _, attr := range start.Attr {
		var err error
		switch attr.Name.Local {
		case "name":
			arg.Name = attr.Value
		case "enum_name":
			arg.EnumName = attr.Value
		case "bit_length":
			arg.BitLength, err = strconv.Atoi(attr.Value)
		case "prefix_bit_length":
			arg.PrefixBitLength, err = strconv.Atoi(attr.Value)
		case "max_bit_length":
			arg.MaxBitLength, err = strconv.Atoi(attr.Value)
		case "min":
			arg.MinRepeat, err = strconv.Atoi(attr.Value)
		case "max":
			arg.MaxRepeat, err = strconv.Atoi(attr.Value)
		}
		if err != nil {
			return ArgDef{}, fmt.Errorf("argument %q: attribute %s: %w", arg.Name, attr.Name.Local, err)
		}
	}

	// Repeat arguments nest a full ordered argument group.
	if arg.Kind == KindRepeat {
		for {
			tok, err := d.Token()
			if err != nil {
				return ArgDef{}, err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				if t.Name.Local == "arguments" {
					var sub argList
					if err := sub.UnmarshalXML(d, t); err != nil {
						return ArgDef{}, err
					}
					arg.Repeat = sub
				} else if err := d.Skip(); err != nil {
					return ArgDef{}, err
				}
			case xml.EndElement:
				if t.Name == start.Name {
					return arg, nil
				}
			}
		}
	}

	if err := d.Skip(); err != nil {
		return ArgDef{}, err
	}
	return arg, nil
}

// Parse reads a raw command dictionary document. Structural problems (bad
// XML, missing identity) are reported as CodeDictionaryInvalid; argument
// kinds are not judged here.
func Parse(r io.Reader) (*Dictionary, error) {
	var doc xmlDictionary
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, apperr.Wrap(apperr.CodeDictionaryInvalid, err, "parse command dictionary")
	}
	if doc.Header.Mission == "" || doc.Header.Version == "" {
		return nil, apperr.New(apperr.CodeDictionaryInvalid, "command dictionary header must carry mission_name and version")
	}

	dict := &Dictionary{
		Mission: doc.Header.Mission,
		Version: doc.Header.Version,
		Enums:   make(map[string][]EnumValue, len(doc.Enums)),
	}
	for _, e := range doc.Enums {
		vals := make([]EnumValue, 0, len(e.Values))
		for _, v := range e.Values {
			vals = append(vals, EnumValue{Symbol: v.Symbol, Numeric: v.Numeric})
		}
		dict.Enums[e.Name] = vals
	}

	seen := make(map[string]struct{}, len(doc.Cmds))
	for _, c := range doc.Cmds {
		if c.Stem == "" {
			return nil, apperr.New(apperr.CodeDictionaryInvalid, "command definition without stem")
		}
		if _, dup := seen[c.Stem]; dup {
			return nil, apperr.New(apperr.CodeDictionaryInvalid, "duplicate stem %q", c.Stem)
		}
		seen[c.Stem] = struct{}{}
		dict.Commands = append(dict.Commands, CommandDef{
			Stem:        c.Stem,
			Description: strings.TrimSpace(c.Description),
			Args:        c.Args,
		})
	}
	return dict, nil
}

// ParseString is a convenience wrapper over Parse.
func ParseString(s string) (*Dictionary, error) {
	return Parse(strings.NewReader(s))
}
