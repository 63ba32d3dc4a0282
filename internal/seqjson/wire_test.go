package seqjson

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeResolver mimics a generated dictionary schema set for two stems.
type fakeResolver struct{}

func (fakeResolver) ResolveArgs(stem string) ([]string, []bool, bool) {
	switch stem {
	case "HEATER_ON":
		return []string{"zone", "survival_mode"}, []bool{false, true}, true
	case "NOOP":
		return nil, nil, true
	}
	return nil, nil, false
}

func TestSequenceRoundTrip(t *testing.T) {
	anchor := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	seq := Sequence{
		ID:       "seq-042",
		Metadata: map[string]any{"author": "ops"},
		Steps: []Command{
			NewCommand("HEATER_ON",
				Arg{Name: "zone", Value: "PRIMARY"},
				Arg{Name: "survival_mode", Value: true},
			).WithTime(AbsoluteTime(anchor)),
			NewCommand("NOOP").WithTime(CommandRelative(2 * time.Second)),
			NewCommand("NOOP").WithTime(EpochRelative(90 * time.Minute)),
			NewCommand("NOOP"),
		},
	}

	data, err := seq.MarshalSeqJSON()
	if err != nil {
		t.Fatalf("MarshalSeqJSON: %v", err)
	}
	got, err := UnmarshalSeqJSON(data, fakeResolver{})
	if err != nil {
		t.Fatalf("UnmarshalSeqJSON: %v", err)
	}

	if got.ID != seq.ID {
		t.Errorf("id = %q, want %q", got.ID, seq.ID)
	}
	if !reflect.DeepEqual(got.Metadata, seq.Metadata) {
		t.Errorf("metadata = %v, want %v", got.Metadata, seq.Metadata)
	}
	if len(got.Steps) != len(seq.Steps) {
		t.Fatalf("step count = %d, want %d", len(got.Steps), len(seq.Steps))
	}
	for i := range seq.Steps {
		want, have := seq.Steps[i], got.Steps[i]
		if have.Stem != want.Stem {
			t.Errorf("step %d stem = %q, want %q", i, have.Stem, want.Stem)
		}
		if have.Time.Kind != want.Time.Kind {
			t.Errorf("step %d time kind = %q, want %q", i, have.Time.Kind, want.Time.Kind)
		}
		if want.Time.Kind == TimeAbsolute && !have.Time.Absolute.Equal(want.Time.Absolute) {
			t.Errorf("step %d absolute = %v, want %v", i, have.Time.Absolute, want.Time.Absolute)
		}
		if want.Time.Kind != TimeAbsolute && have.Time.Offset != want.Time.Offset {
			t.Errorf("step %d offset = %v, want %v", i, have.Time.Offset, want.Time.Offset)
		}
	}
}

func TestBooleanArgsEncodeAsZeroOne(t *testing.T) {
	seq := Sequence{
		ID: "s",
		Steps: []Command{
			NewCommand("HEATER_ON",
				Arg{Name: "zone", Value: "A"},
				Arg{Name: "survival_mode", Value: false},
			),
		},
	}
	data, err := seq.MarshalSeqJSON()
	if err != nil {
		t.Fatalf("MarshalSeqJSON: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"args": [`) {
		t.Fatalf("expected args array in %s", text)
	}
	if strings.Contains(text, "false") {
		t.Errorf("boolean argument leaked as JSON bool: %s", text)
	}

	got, err := UnmarshalSeqJSON(data, fakeResolver{})
	if err != nil {
		t.Fatalf("UnmarshalSeqJSON: %v", err)
	}
	v := got.Steps[0].Args[1].Value
	if b, ok := v.(bool); !ok || b {
		t.Errorf("schema-aware decode restored %v (%T), want false (bool)", v, v)
	}
}

func TestDecodeRejectsArgumentCountMismatch(t *testing.T) {
	data := []byte(`{"id":"s","metadata":{},"steps":[
		{"stem":"HEATER_ON","args":["A"],"time":{"type":"COMMAND_COMPLETE"},"type":"command"}
	]}`)
	if _, err := UnmarshalSeqJSON(data, fakeResolver{}); err == nil {
		t.Fatal("expected argument count mismatch error")
	}
}

func TestDecodeUnknownTimeType(t *testing.T) {
	data := []byte(`{"id":"s","metadata":{},"steps":[
		{"stem":"NOOP","args":[],"time":{"type":"SIDEREAL"},"type":"command"}
	]}`)
	if _, err := UnmarshalSeqJSON(data, nil); err == nil {
		t.Fatal("expected unknown time type error")
	}
}

func TestWithMetadataDoesNotMutateReceiver(t *testing.T) {
	base := NewCommand("NOOP")
	tagged := base.WithMetadata("activity_id", "act-1")
	if len(base.Metadata) != 0 {
		t.Errorf("receiver metadata mutated: %v", base.Metadata)
	}
	if tagged.Metadata["activity_id"] != "act-1" {
		t.Errorf("metadata not applied: %v", tagged.Metadata)
	}
}
