// Package storetest holds the conformance suite every store backend must
// pass. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/apperr"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// Run exercises the full Store contract against one backend.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("rules", func(t *testing.T) {
		rule := store.ExpansionRule{
			ID:                      "rule-1",
			ActivityType:            "BakeBananaBread",
			Logic:                   `command "PREHEAT_OVEN" {}`,
			AuthoringDictionaryID:   "BANANANATION@1.0.0",
			AuthoringMissionModelID: "model-1",
			CreatedAt:               time.Now().UTC().Truncate(time.Second),
		}
		if err := s.PutRule(ctx, rule); err != nil {
			t.Fatalf("PutRule: %v", err)
		}
		got, err := s.GetRule(ctx, "rule-1")
		if err != nil {
			t.Fatalf("GetRule: %v", err)
		}
		if got.ActivityType != rule.ActivityType || got.Logic != rule.Logic {
			t.Errorf("rule = %+v", got)
		}
		if _, err := s.GetRule(ctx, "nope"); !apperr.IsNotFound(err) {
			t.Errorf("GetRule(missing) = %v, want not-found", err)
		}
	})

	t.Run("sets are immutable", func(t *testing.T) {
		set := store.ExpansionSet{
			ID: "set-1", Name: "rev-a",
			DictionaryID: "BANANANATION@1.0.0", MissionModelID: "model-1",
			RuleIDs: []string{"rule-1"},
		}
		if err := s.PutSet(ctx, set); err != nil {
			t.Fatalf("PutSet: %v", err)
		}
		err := s.PutSet(ctx, set)
		if err == nil {
			t.Fatal("PutSet(duplicate) succeeded, want immutability error")
		}
		if apperr.CodeOf(err) != apperr.CodeExpansionSetImmutable {
			t.Errorf("code = %q", apperr.CodeOf(err))
		}
		got, err := s.GetSet(ctx, "set-1")
		if err != nil || len(got.RuleIDs) != 1 {
			t.Errorf("GetSet = %+v, %v", got, err)
		}
	})

	t.Run("activity schemas", func(t *testing.T) {
		schema := store.ActivitySchema{
			MissionModelID: "model-1",
			Name:           "BakeBananaBread",
			Attributes:     map[string]string{"temperature": "number", "glutenFree": "bool"},
		}
		if err := s.PutActivitySchema(ctx, schema); err != nil {
			t.Fatalf("PutActivitySchema: %v", err)
		}
		got, err := s.GetActivitySchema(ctx, "model-1", "BakeBananaBread")
		if err != nil || got.Attributes["temperature"] != "number" {
			t.Errorf("GetActivitySchema = %+v, %v", got, err)
		}
		if _, err := s.GetActivitySchema(ctx, "model-1", "Unknown"); !apperr.IsNotFound(err) {
			t.Errorf("missing schema = %v, want not-found", err)
		}
	})

	t.Run("simulated activities", func(t *testing.T) {
		start := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)
		acts := []store.SimulatedActivity{
			{ID: "act-1", TypeName: "BakeBananaBread", SimulationDatasetID: "ds-1",
				StartOffset: time.Hour, StartTime: &start, Duration: 30 * time.Minute,
				Attributes: map[string]any{"temperature": 350}},
			{ID: "act-2", TypeName: "PeelBanana", SimulationDatasetID: "ds-1"},
		}
		if err := s.PutSimulatedActivities(ctx, "ds-1", acts); err != nil {
			t.Fatalf("PutSimulatedActivities: %v", err)
		}
		all, err := s.GetSimulatedActivities(ctx, "ds-1")
		if err != nil || len(all) != 2 {
			t.Fatalf("GetSimulatedActivities = %d, %v", len(all), err)
		}
		one, err := s.GetSimulatedActivity(ctx, "ds-1", "act-2")
		if err != nil || one.TypeName != "PeelBanana" {
			t.Errorf("GetSimulatedActivity = %+v, %v", one, err)
		}
		if _, err := s.GetSimulatedActivities(ctx, "ds-none"); !apperr.IsNotFound(err) {
			t.Errorf("missing dataset = %v, want not-found", err)
		}
		if _, err := s.GetSimulatedActivity(ctx, "ds-1", "act-9"); !apperr.IsNotFound(err) {
			t.Errorf("missing activity = %v, want not-found", err)
		}
	})

	t.Run("runs are append-only history", func(t *testing.T) {
		first := store.ExpansionRun{
			ID: "run-1", SimulationDatasetID: "ds-1", ExpansionSetID: "set-1",
			Results: []store.ActivityResult{
				{ActivityID: "act-1", ActivityType: "BakeBananaBread",
					Errors: diag.Errorf("no expansion rule")},
			},
		}
		second := store.ExpansionRun{ID: "run-2", SimulationDatasetID: "ds-1", ExpansionSetID: "set-1"}
		other := store.ExpansionRun{ID: "run-3", SimulationDatasetID: "ds-2", ExpansionSetID: "set-1"}
		for _, run := range []store.ExpansionRun{first, second, other} {
			if err := s.PutRun(ctx, run); err != nil {
				t.Fatalf("PutRun(%s): %v", run.ID, err)
			}
		}
		got, err := s.GetRun(ctx, "run-1")
		if err != nil || len(got.Results) != 1 || len(got.Results[0].Errors) != 1 {
			t.Errorf("GetRun = %+v, %v", got, err)
		}
		latest, err := s.LatestRun(ctx, "ds-1")
		if err != nil || latest.ID != "run-2" {
			t.Errorf("LatestRun(ds-1) = %+v, %v", latest, err)
		}
		if _, err := s.LatestRun(ctx, "ds-none"); !apperr.IsNotFound(err) {
			t.Errorf("LatestRun(missing) = %v, want not-found", err)
		}
	})

	t.Run("sequences and links", func(t *testing.T) {
		seq := store.SequenceRecord{SeqID: "seq-1", SimulationDatasetID: "ds-1",
			Metadata: map[string]any{"planId": "plan-7"}}
		if err := s.PutSequence(ctx, seq); err != nil {
			t.Fatalf("PutSequence: %v", err)
		}
		if err := s.LinkActivities(ctx, "ds-1", "seq-1", []string{"act-1", "act-2", "act-1"}); err != nil {
			t.Fatalf("LinkActivities: %v", err)
		}
		got, err := s.GetSequence(ctx, "ds-1", "seq-1")
		if err != nil {
			t.Fatalf("GetSequence: %v", err)
		}
		if len(got.ActivityIDs) != 2 {
			t.Errorf("links = %v, want deduplicated pair", got.ActivityIDs)
		}
		if err := s.LinkActivities(ctx, "ds-1", "seq-none", []string{"act-1"}); !apperr.IsNotFound(err) {
			t.Errorf("LinkActivities(missing seq) = %v, want not-found", err)
		}
	})
}
