package sequencing

import (
	"testing"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

func epochCmd(stem string, offset time.Duration) seqjson.Command {
	return seqjson.NewCommand(stem).WithTime(seqjson.EpochRelative(offset))
}

func relativeCmd(stem string, offset time.Duration) seqjson.Command {
	return seqjson.NewCommand(stem).WithTime(seqjson.CommandRelative(offset))
}

func absoluteCmd(stem string, at time.Time) seqjson.Command {
	return seqjson.NewCommand(stem).WithTime(seqjson.AbsoluteTime(at))
}

func oneActivity(cmds ...seqjson.Command) []store.ActivityResult {
	return []store.ActivityResult{{ActivityID: "act-1", Commands: cmds}}
}

func stems(steps []seqjson.Command) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Stem
	}
	return out
}

func TestBuildAllEpochSortsByOffset(t *testing.T) {
	seq := Build("seq-1", oneActivity(
		epochCmd("FIVE", 5*time.Second),
		epochCmd("ONE", time.Second),
		epochCmd("THREE", 3*time.Second),
	), Metadata{})

	want := []string{"ONE", "THREE", "FIVE"}
	got := stems(seq.Steps)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if seq.Metadata["timeSorted"] != true {
		t.Errorf("timeSorted = %v", seq.Metadata["timeSorted"])
	}
}

func TestBuildBailsOutWithoutLeadingAnchor(t *testing.T) {
	t0 := time.Date(2025, 5, 3, 1, 0, 0, 0, time.UTC)
	seq := Build("seq-1", oneActivity(
		relativeCmd("R2", 2*time.Second),
		absoluteCmd("A0", t0),
		relativeCmd("R3", 3*time.Second),
	), Metadata{})

	want := []string{"R2", "A0", "R3"}
	got := stems(seq.Steps)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want original %v", got, want)
		}
	}
	if seq.Metadata["timeSorted"] != false {
		t.Errorf("timeSorted = %v, want false", seq.Metadata["timeSorted"])
	}
}

func TestBuildBailsOutOnMixedEpochOrComplete(t *testing.T) {
	t0 := time.Date(2025, 5, 3, 1, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		cmds []seqjson.Command
	}{
		{"epoch mixed with absolute", []seqjson.Command{
			absoluteCmd("A0", t0),
			epochCmd("E1", time.Second),
		}},
		{"complete in the list", []seqjson.Command{
			absoluteCmd("A0", t0),
			seqjson.NewCommand("C0"),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seq := Build("seq-1", oneActivity(tc.cmds...), Metadata{})
			if seq.Metadata["timeSorted"] != false {
				t.Errorf("timeSorted = %v, want false", seq.Metadata["timeSorted"])
			}
			got := stems(seq.Steps)
			for i := range tc.cmds {
				if got[i] != tc.cmds[i].Stem {
					t.Fatalf("order changed: %v", got)
				}
			}
		})
	}
}

func TestBuildResolvesRelativesAgainstLastAnchor(t *testing.T) {
	t0 := time.Date(2025, 5, 3, 1, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Second) // T1 > T0, but T0+2s > T1+1s
	seq := Build("seq-1", oneActivity(
		absoluteCmd("A0", t0),
		relativeCmd("R2", 2*time.Second), // resolves to T0+2s
		absoluteCmd("A1", t1),
		relativeCmd("R1", time.Second), // resolves to T1+1s = T0+2s, stable after R2? no: equal instants keep merge order
	), Metadata{})

	if seq.Metadata["timeSorted"] != true {
		t.Fatalf("timeSorted = %v", seq.Metadata["timeSorted"])
	}
	// Instants: A0=T0, A1=T0+1s, R2=T0+2s, R1=T0+2s (merge order breaks tie).
	want := []string{"A0", "A1", "R2", "R1"}
	got := stems(seq.Steps)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBuildSubstitutesErrorMarker(t *testing.T) {
	t0 := time.Date(2025, 5, 3, 1, 0, 0, 0, time.UTC)
	results := []store.ActivityResult{
		{ActivityID: "act-ok", Commands: []seqjson.Command{absoluteCmd("A0", t0)}},
		{ActivityID: "act-bad", Errors: diag.Errorf("kaboom")},
		{ActivityID: "act-norule"}, // commands nil, errors nil
	}
	seq := Build("seq-1", results, Metadata{})

	if len(seq.Steps) != 2 {
		t.Fatalf("steps = %v", stems(seq.Steps))
	}
	marker := seq.Steps[1]
	if marker.Stem != ErrorStem {
		t.Fatalf("marker stem = %q", marker.Stem)
	}
	if marker.Args[0].Value != "kaboom" {
		t.Errorf("marker message = %v", marker.Args[0].Value)
	}
	if marker.Metadata["simulatedActivityId"] != "act-bad" {
		t.Errorf("marker metadata = %v", marker.Metadata)
	}
	// A marker carries no timing, so the sequence cannot be time-sorted.
	if seq.Metadata["timeSorted"] != false {
		t.Errorf("timeSorted = %v, want false", seq.Metadata["timeSorted"])
	}
}

func TestBuildMergesCallerMetadata(t *testing.T) {
	seq := Build("seq-1", nil, Metadata{
		PlanID:              "plan-9",
		SimulationDatasetID: "ds-4",
		Extra:               map[string]any{"author": "ops", "planId": "spoofed"},
	})
	if seq.Metadata["planId"] != "plan-9" {
		t.Errorf("builder keys must win: %v", seq.Metadata["planId"])
	}
	if seq.Metadata["simulationDatasetId"] != "ds-4" || seq.Metadata["author"] != "ops" {
		t.Errorf("metadata = %v", seq.Metadata)
	}
	if len(seq.Steps) != 0 {
		t.Errorf("steps = %v", seq.Steps)
	}
	if seq.Metadata["timeSorted"] != true {
		t.Errorf("empty sequence is vacuously sorted, got %v", seq.Metadata["timeSorted"])
	}
}

func TestBuildDoesNotMutateInputs(t *testing.T) {
	cmds := []seqjson.Command{
		epochCmd("B", 2*time.Second),
		epochCmd("A", time.Second),
	}
	results := oneActivity(cmds...)
	Build("seq-1", results, Metadata{})

	if cmds[0].Stem != "B" || cmds[1].Stem != "A" {
		t.Errorf("input slice reordered: %v", stems(cmds))
	}
}
