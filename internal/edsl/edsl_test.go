package edsl

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
)

type fakeResolver map[string]struct {
	names   []string
	boolean []bool
}

func (r fakeResolver) ResolveArgs(stem string) ([]string, []bool, bool) {
	entry, ok := r[stem]
	return entry.names, entry.boolean, ok
}

var testResolver = fakeResolver{
	"PREHEAT_OVEN": {names: []string{"temperature"}, boolean: []bool{false}},
	"PREPARE_LOAF": {names: []string{"gluten_free", "tb_sugar"}, boolean: []bool{true, false}},
	"BAKE_BREAD":   {},
}

func testSequence() seqjson.Sequence {
	t0 := time.Date(2025, 5, 3, 1, 2, 3, 0, time.UTC)
	return seqjson.Sequence{
		ID: "seq-1",
		Metadata: map[string]any{
			"planId":     "plan-9",
			"timeSorted": false,
		},
		Steps: []seqjson.Command{
			seqjson.NewCommand("PREHEAT_OVEN",
				seqjson.Arg{Name: "temperature", Value: int64(200)},
			).WithTime(seqjson.AbsoluteTime(t0)),
			seqjson.NewCommand("PREPARE_LOAF",
				seqjson.Arg{Name: "gluten_free", Value: true},
				seqjson.Arg{Name: "tb_sugar", Value: 4.5},
			).WithTime(seqjson.CommandRelative(5 * time.Minute)),
			seqjson.NewCommand("BAKE_BREAD").WithMetadata("note", "low and slow"),
		},
	}
}

func TestGenerateRendersBlocks(t *testing.T) {
	src, err := Generate(testSequence())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, want := range []string{
		`sequence "seq-1"`,
		`command "PREHEAT_OVEN"`,
		`at`,
		`"2025-123T01:02:03.000"`,
		`command "PREPARE_LOAF"`,
		`"00:05:00.000"`,
		`command "BAKE_BREAD"`,
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q:\n%s", want, src)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	seq := testSequence()
	src, err := Generate(seq)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got, err := Parse(src, testResolver)
	if err != nil {
		t.Fatalf("Parse:\n%s\n%v", src, err)
	}

	if got.ID != seq.ID {
		t.Errorf("id = %q", got.ID)
	}
	if !reflect.DeepEqual(got.Metadata, seq.Metadata) {
		t.Errorf("metadata = %#v, want %#v", got.Metadata, seq.Metadata)
	}
	if len(got.Steps) != len(seq.Steps) {
		t.Fatalf("steps = %d, want %d", len(got.Steps), len(seq.Steps))
	}
	for i := range seq.Steps {
		if !reflect.DeepEqual(got.Steps[i], seq.Steps[i]) {
			t.Errorf("step %d = %#v, want %#v", i, got.Steps[i], seq.Steps[i])
		}
	}
}

func TestParseWithoutResolverSynthesizesNames(t *testing.T) {
	src := `sequence "s" {
  command "MYSTERY" {
    args = [1, "two"]
  }
}`
	seq, err := Parse(src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	args := seq.Steps[0].Args
	if args[0].Name != "arg_0" || args[1].Name != "arg_1" {
		t.Errorf("names = %q, %q", args[0].Name, args[1].Name)
	}
	if args[0].Value != int64(1) || args[1].Value != "two" {
		t.Errorf("values = %v, %v", args[0].Value, args[1].Value)
	}
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "conflicting timing",
			src: `sequence "s" {
  command "BAKE_BREAD" {
    at    = "2025-001T00:00:00"
    after = "00:00:01"
  }
}`,
			want: "mutually exclusive",
		},
		{
			name: "malformed tag",
			src: `sequence "s" {
  command "BAKE_BREAD" {
    at = "whenever"
  }
}`,
			want: "whenever",
		},
		{
			name: "argument count mismatch",
			src: `sequence "s" {
  command "PREHEAT_OVEN" {
    args = [1, 2]
  }
}`,
			want: "declares 1 arguments",
		},
		{
			name: "no sequence block",
			src:  ``,
			want: "exactly one sequence block",
		},
		{
			name: "args not a tuple",
			src: `sequence "s" {
  command "BAKE_BREAD" {
    args = "nope"
  }
}`,
			want: "must be a tuple",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src, testResolver)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestGenerateBooleanArgsStayBoolean(t *testing.T) {
	seq := seqjson.Sequence{
		ID: "s",
		Steps: []seqjson.Command{
			seqjson.NewCommand("PREPARE_LOAF",
				seqjson.Arg{Name: "gluten_free", Value: false},
				seqjson.Arg{Name: "tb_sugar", Value: int64(2)},
			),
		},
	}
	src, err := Generate(seq)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(src, "false") {
		t.Errorf("boolean rendered as something else:\n%s", src)
	}

	got, err := Parse(src, testResolver)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Steps[0].Args[0].Value != false {
		t.Errorf("round-tripped boolean = %v", got.Steps[0].Args[0].Value)
	}
}
