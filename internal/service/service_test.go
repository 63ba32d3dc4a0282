package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/apperr"
	"github.com/NASA-AMMOS/aerie-sub006/internal/artifact"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/expansion"
	"github.com/NASA-AMMOS/aerie-sub006/internal/metrics"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store/memory"
)

const testDictionary = `<command_dictionary>
  <header mission_name="BANANANATION" version="1.0.0"/>
  <command_definitions>
    <fsw_command stem="PREHEAT_OVEN">
      <arguments>
        <unsigned_arg name="temperature" bit_length="8"/>
      </arguments>
    </fsw_command>
    <fsw_command stem="BAKE_BREAD">
      <arguments/>
    </fsw_command>
  </command_definitions>
</command_dictionary>`

const bakeLogic = `
command "PREHEAT_OVEN" {
  args = [activity.attributes.temperature]
  at   = "2025-123T01:00:00.000"
}

command "BAKE_BREAD" {
  after = "00:30:00.000"
}
`

type harness struct {
	svc          *Service
	store        store.Store
	dictionaryID string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	arts := artifact.NewMemory()
	engine, err := expansion.NewEngine(ctx, expansion.Options{Workers: 2})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(engine.Close)

	svc := New(st, arts, engine, metrics.New())
	dictID, err := svc.UploadDictionary(ctx, testDictionary)
	if err != nil {
		t.Fatalf("UploadDictionary: %v", err)
	}
	if dictID != "BANANANATION@1.0.0" {
		t.Fatalf("dictionary id = %q", dictID)
	}
	return &harness{svc: svc, store: st, dictionaryID: dictID}
}

func (h *harness) putSchema(t *testing.T, name string, attrs map[string]string) {
	t.Helper()
	err := h.store.PutActivitySchema(context.Background(), store.ActivitySchema{
		MissionModelID: "model-1",
		Name:           name,
		Attributes:     attrs,
	})
	if err != nil {
		t.Fatalf("PutActivitySchema: %v", err)
	}
}

func (h *harness) saveRule(t *testing.T, activityType, logic string) store.ExpansionRule {
	t.Helper()
	rule, diags, err := h.svc.SaveRule(context.Background(), SaveRuleInput{
		ActivityType:   activityType,
		Logic:          logic,
		DictionaryID:   h.dictionaryID,
		MissionModelID: "model-1",
	})
	if err != nil {
		t.Fatalf("SaveRule: %v", err)
	}
	if diag.HasErrors(diags) {
		t.Fatalf("SaveRule diagnostics: %v", diags)
	}
	return rule
}

func TestSaveRuleReturnsTypecheckFeedback(t *testing.T) {
	h := newHarness(t)
	h.putSchema(t, "BakeBananaBread", map[string]string{"temperature": "number"})

	rule, diags, err := h.svc.SaveRule(context.Background(), SaveRuleInput{
		ActivityType:   "BakeBananaBread",
		Logic:          `command "LAUNCH_TOASTER" {}`,
		DictionaryID:   h.dictionaryID,
		MissionModelID: "model-1",
	})
	if err != nil {
		t.Fatalf("SaveRule: %v", err)
	}
	if !diag.HasErrors(diags) {
		t.Fatal("expected typecheck diagnostics for an unknown stem")
	}
	// The rule is saved anyway so the author can iterate.
	if _, err := h.store.GetRule(context.Background(), rule.ID); err != nil {
		t.Errorf("rule not persisted: %v", err)
	}
}

func TestSaveRuleUnknownDictionary(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.SaveRule(context.Background(), SaveRuleInput{
		ActivityType:   "BakeBananaBread",
		Logic:          `command "BAKE_BREAD" {}`,
		DictionaryID:   "NOPE@9.9.9",
		MissionModelID: "model-1",
	})
	if err == nil {
		t.Fatal("expected an error for a missing dictionary")
	}
}

func TestCreateSetRequiresAllRules(t *testing.T) {
	h := newHarness(t)
	h.putSchema(t, "BakeBananaBread", map[string]string{"temperature": "number"})
	rule := h.saveRule(t, "BakeBananaBread", bakeLogic)

	_, err := h.svc.CreateSet(context.Background(), "set-a", h.dictionaryID, "model-1", []string{rule.ID, "ghost-rule"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}

	set, err := h.svc.CreateSet(context.Background(), "set-a", h.dictionaryID, "model-1", []string{rule.ID})
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	if set.ID == "" || len(set.RuleIDs) != 1 {
		t.Errorf("set = %+v", set)
	}
}

// expandFixture stages the three-activity dataset: one activity with no
// matching rule, one whose expansion fails at runtime, one that succeeds.
func expandFixture(t *testing.T, h *harness) (setID string) {
	t.Helper()
	ctx := context.Background()

	h.putSchema(t, "BakeBananaBread", map[string]string{"temperature": "number"})
	rule := h.saveRule(t, "BakeBananaBread", bakeLogic)

	set, err := h.svc.CreateSet(ctx, "set-a", h.dictionaryID, "model-1", []string{rule.ID})
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}

	activities := []store.SimulatedActivity{
		{
			ID: "act-norule", TypeName: "PeelBanana", SimulationDatasetID: "ds-1",
			StartOffset: 1 * time.Minute,
		},
		{
			ID: "act-fails", TypeName: "BakeBananaBread", SimulationDatasetID: "ds-1",
			StartOffset: 2 * time.Minute,
			Attributes:  map[string]any{"temperature": float64(900)}, // exceeds the 8-bit range
		},
		{
			ID: "act-ok", TypeName: "BakeBananaBread", SimulationDatasetID: "ds-1",
			StartOffset: 3 * time.Minute,
			Attributes:  map[string]any{"temperature": float64(200)},
		},
	}
	if err := h.store.PutSimulatedActivities(ctx, "ds-1", activities); err != nil {
		t.Fatalf("PutSimulatedActivities: %v", err)
	}
	return set.ID
}

func TestExpandDatasetPartialFailure(t *testing.T) {
	h := newHarness(t)
	setID := expandFixture(t, h)

	run, err := h.svc.ExpandDataset(context.Background(), setID, "ds-1")
	if err != nil {
		t.Fatalf("ExpandDataset must not fail wholesale: %v", err)
	}
	if len(run.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(run.Results))
	}

	byID := make(map[string]store.ActivityResult, len(run.Results))
	for _, res := range run.Results {
		byID[res.ActivityID] = res
	}

	noRule := byID["act-norule"]
	if noRule.Commands != nil || noRule.Errors != nil {
		t.Errorf("no-rule activity = %+v, want nil commands and nil errors", noRule)
	}
	failed := byID["act-fails"]
	if failed.Commands != nil || !diag.HasErrors(failed.Errors) {
		t.Errorf("failing activity = %+v, want nil commands and errors", failed)
	}
	ok := byID["act-ok"]
	if len(ok.Commands) != 2 || diag.HasErrors(ok.Errors) {
		t.Errorf("succeeding activity = %+v, want 2 commands and no errors", ok)
	}
}

func TestExpandDatasetMissingSet(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.ExpandDataset(context.Background(), "ghost-set", "ds-1")
	if !apperr.IsNotFound(err) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestSequenceSeqJSONFromRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	setID := expandFixture(t, h)
	if _, err := h.svc.ExpandDataset(ctx, setID, "ds-1"); err != nil {
		t.Fatalf("ExpandDataset: %v", err)
	}

	err := h.svc.CreateSequence(ctx, store.SequenceRecord{
		SeqID:               "seq-1",
		SimulationDatasetID: "ds-1",
		Metadata:            map[string]any{"planId": "plan-9"},
		ActivityIDs:         []string{"act-ok", "act-fails"},
	})
	if err != nil {
		t.Fatalf("CreateSequence: %v", err)
	}

	doc, err := h.svc.SequenceSeqJSON(ctx, "ds-1", "seq-1")
	if err != nil {
		t.Fatalf("SequenceSeqJSON: %v", err)
	}

	var wire struct {
		ID       string         `json:"id"`
		Metadata map[string]any `json:"metadata"`
		Steps    []struct {
			Stem string `json:"stem"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(doc, &wire); err != nil {
		t.Fatalf("seqJson did not parse: %v\n%s", err, doc)
	}
	if wire.ID != "seq-1" {
		t.Errorf("id = %q", wire.ID)
	}
	if wire.Metadata["planId"] != "plan-9" || wire.Metadata["simulationDatasetId"] != "ds-1" {
		t.Errorf("metadata = %v", wire.Metadata)
	}
	// act-fails contributes an error marker, act-ok its two commands.
	stems := make([]string, 0, len(wire.Steps))
	for _, s := range wire.Steps {
		stems = append(stems, s.Stem)
	}
	if len(stems) != 3 {
		t.Fatalf("stems = %v", stems)
	}
	found := false
	for _, stem := range stems {
		if stem == "$$ERROR$$" {
			found = true
		}
	}
	if !found {
		t.Errorf("error marker missing from %v", stems)
	}
}

func TestSequenceSeqJSONBatchIsolatesFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	setID := expandFixture(t, h)
	if _, err := h.svc.ExpandDataset(ctx, setID, "ds-1"); err != nil {
		t.Fatalf("ExpandDataset: %v", err)
	}
	if err := h.svc.CreateSequence(ctx, store.SequenceRecord{
		SeqID: "seq-1", SimulationDatasetID: "ds-1", ActivityIDs: []string{"act-ok"},
	}); err != nil {
		t.Fatalf("CreateSequence: %v", err)
	}

	items := h.svc.SequenceSeqJSONBatch(ctx, []SequenceKey{
		{SimulationDatasetID: "ds-1", SeqID: "seq-1"},
		{SimulationDatasetID: "ds-1", SeqID: "ghost"},
	})
	if items[0].Err != nil || items[0].SeqJSON == nil {
		t.Errorf("healthy item failed: %+v", items[0])
	}
	if !apperr.IsNotFound(items[1].Err) {
		t.Errorf("missing item err = %v, want not-found", items[1].Err)
	}
}

func TestRegenerateEDSLRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	setID := expandFixture(t, h)
	if _, err := h.svc.ExpandDataset(ctx, setID, "ds-1"); err != nil {
		t.Fatalf("ExpandDataset: %v", err)
	}
	if err := h.svc.CreateSequence(ctx, store.SequenceRecord{
		SeqID: "seq-1", SimulationDatasetID: "ds-1", ActivityIDs: []string{"act-ok"},
	}); err != nil {
		t.Fatalf("CreateSequence: %v", err)
	}
	doc, err := h.svc.SequenceSeqJSON(ctx, "ds-1", "seq-1")
	if err != nil {
		t.Fatalf("SequenceSeqJSON: %v", err)
	}

	src, err := h.svc.RegenerateEDSL(ctx, doc, h.dictionaryID)
	if err != nil {
		t.Fatalf("RegenerateEDSL: %v", err)
	}
	for _, want := range []string{`sequence "seq-1"`, `command "PREHEAT_OVEN"`, `command "BAKE_BREAD"`} {
		if !strings.Contains(src, want) {
			t.Errorf("regenerated source missing %q:\n%s", want, src)
		}
	}
}

func TestRegenerateEDSLBatch(t *testing.T) {
	h := newHarness(t)
	good := []byte(`{"id":"s","metadata":{},"steps":[{"stem":"BAKE_BREAD","args":[],"time":{"type":"COMMAND_COMPLETE"},"type":"command"}]}`)
	bad := []byte(`{"id":"s","steps":[{"stem":"BAKE_BREAD","args":[],"time":{"type":"NEVER"},"type":"command"}]}`)

	items, err := h.svc.RegenerateEDSLBatch(context.Background(), [][]byte{good, bad}, h.dictionaryID)
	if err != nil {
		t.Fatalf("RegenerateEDSLBatch: %v", err)
	}
	if items[0].Err != nil || !strings.Contains(items[0].Source, "BAKE_BREAD") {
		t.Errorf("good item = %+v", items[0])
	}
	if items[1].Err == nil {
		t.Error("bad item should carry its own error")
	}

	if _, err := h.svc.RegenerateEDSLBatch(context.Background(), [][]byte{good}, "GHOST@0.0.0"); err == nil {
		t.Error("missing dictionary is a shared precondition and must fail the batch")
	}
}
