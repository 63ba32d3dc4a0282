package seqjson

import (
	"encoding/json"
	"fmt"

	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

// ArgResolver supplies the dictionary knowledge needed for a lossless
// decode: the canonical argument names of a stem and which of its arguments
// are dictionary-typed booleans. The wire format carries argument values
// positionally, so without a resolver names are synthesized and the 0/1
// boolean encoding cannot be distinguished from a genuine number.
type ArgResolver interface {
	ResolveArgs(stem string) (names []string, boolean []bool, ok bool)
}

type stepJSON struct {
	Stem     string         `json:"stem"`
	Args     []any          `json:"args"`
	Time     timeJSON       `json:"time"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type timeJSON struct {
	Type string `json:"type"`
	Tag  string `json:"tag,omitempty"`
}

type sequenceJSON struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
	Steps    []stepJSON     `json:"steps"`
}

// MarshalSeqJSON renders the sequence in the seqJson wire format.
func (s Sequence) MarshalSeqJSON() ([]byte, error) {
	out := sequenceJSON{
		ID:       s.ID,
		Metadata: s.Metadata,
		Steps:    make([]stepJSON, 0, len(s.Steps)),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	for _, c := range s.Steps {
		out.Steps = append(out.Steps, encodeStep(c))
	}
	return json.MarshalIndent(out, "", "  ")
}

func encodeStep(c Command) stepJSON {
	args := make([]any, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, encodeArgValue(a.Value))
	}
	return stepJSON{
		Stem:     c.Stem,
		Args:     args,
		Time:     timeJSON{Type: string(c.Time.Kind), Tag: c.Time.Tag()},
		Type:     "command",
		Metadata: c.Metadata,
	}
}

// encodeArgValue applies the mission encoding rule that booleans are carried
// as 0/1, not JSON booleans.
func encodeArgValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

// UnmarshalSeqJSON parses a seqJson document. The resolver may be nil, in
// which case argument names are synthesized positionally and boolean
// restoration is skipped.
func UnmarshalSeqJSON(data []byte, resolver ArgResolver) (Sequence, error) {
	var raw sequenceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Sequence{}, fmt.Errorf("parse seqJson: %w", err)
	}
	seq := Sequence{ID: raw.ID, Metadata: raw.Metadata}
	for i, step := range raw.Steps {
		cmd, err := decodeStep(step, resolver)
		if err != nil {
			return Sequence{}, fmt.Errorf("seqJson step %d: %w", i, err)
		}
		seq.Steps = append(seq.Steps, cmd)
	}
	return seq, nil
}

func decodeStep(step stepJSON, resolver ArgResolver) (Command, error) {
	if step.Type != "command" {
		return Command{}, fmt.Errorf("unsupported step type %q", step.Type)
	}
	t, err := decodeTime(step.Time)
	if err != nil {
		return Command{}, err
	}

	var names []string
	var boolean []bool
	if resolver != nil {
		if n, b, ok := resolver.ResolveArgs(step.Stem); ok {
			if len(n) != len(step.Args) {
				return Command{}, fmt.Errorf("stem %q: dictionary declares %d arguments, wire carries %d", step.Stem, len(n), len(step.Args))
			}
			names, boolean = n, b
		}
	}

	args := make([]Arg, 0, len(step.Args))
	for i, v := range step.Args {
		name := fmt.Sprintf("arg_%d", i)
		if names != nil {
			name = names[i]
		}
		if boolean != nil && boolean[i] {
			b, err := decodeBool(v)
			if err != nil {
				return Command{}, fmt.Errorf("stem %q argument %q: %w", step.Stem, name, err)
			}
			v = b
		} else if f, ok := v.(float64); ok && f == float64(int64(f)) {
			// JSON numbers arrive as float64; keep integral values integral.
			v = int64(f)
		}
		args = append(args, Arg{Name: name, Value: v})
	}

	return Command{Stem: step.Stem, Args: args, Time: t, Metadata: step.Metadata}, nil
}

func decodeBool(v any) (bool, error) {
	switch n := v.(type) {
	case float64:
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case bool:
		return n, nil
	}
	return false, fmt.Errorf("expected 0 or 1 for boolean argument, got %v", v)
}

func decodeTime(t timeJSON) (Time, error) {
	switch TimeKind(t.Type) {
	case TimeAbsolute:
		instant, err := timecode.ParseDOY(t.Tag)
		if err != nil {
			return Time{}, err
		}
		return AbsoluteTime(instant), nil
	case TimeCommandRelative:
		d, err := timecode.ParseHMS(t.Tag)
		if err != nil {
			return Time{}, err
		}
		return CommandRelative(d), nil
	case TimeEpochRelative:
		d, err := timecode.ParseHMS(t.Tag)
		if err != nil {
			return Time{}, err
		}
		return EpochRelative(d), nil
	case TimeComplete:
		return CompleteTime(), nil
	default:
		return Time{}, fmt.Errorf("unknown time type %q", t.Type)
	}
}
