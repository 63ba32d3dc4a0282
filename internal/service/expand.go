package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NASA-AMMOS/aerie-sub006/internal/codegen"
	"github.com/NASA-AMMOS/aerie-sub006/internal/ctxlog"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/expansion"
	"github.com/NASA-AMMOS/aerie-sub006/internal/fetch"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// compiledRule is the per-activity-type outcome of the typecheck phase.
type compiledRule struct {
	artifact *expansion.Artifact
	diags    []diag.Diagnostic
	err      error
}

// ExpandDataset expands every simulated activity of a dataset through an
// expansion set and persists the run. Typechecking happens once per rule
// (the content-hash cache deduplicates), execution once per activity with
// fan-out across the worker pool. Every per-activity failure, including a
// worker crash, degrades to that activity's error list; the run only fails
// wholesale when a shared precondition (set, dictionary, dataset) is
// missing.
func (s *Service) ExpandDataset(ctx context.Context, setID, datasetID string) (store.ExpansionRun, error) {
	logger := ctxlog.FromContext(ctx)
	session := fetch.NewSession(s.store, s.artifacts)

	set, err := session.Set(ctx, setID)
	if err != nil {
		return store.ExpansionRun{}, err
	}
	schemas, err := session.SchemaSet(ctx, set.DictionaryID)
	if err != nil {
		return store.ExpansionRun{}, fmt.Errorf("loading dictionary %s: %w", set.DictionaryID, err)
	}
	activities, err := session.SimulatedActivities(ctx, datasetID)
	if err != nil {
		return store.ExpansionRun{}, err
	}

	rulesByType := make(map[string]store.ExpansionRule, len(set.RuleIDs))
	for i, res := range session.Rules(ctx, set.RuleIDs) {
		if res.Err != nil {
			return store.ExpansionRun{}, fmt.Errorf("loading rule %s: %w", set.RuleIDs[i], res.Err)
		}
		rulesByType[res.Value.ActivityType] = res.Value
	}

	// Activity-start-time order is the merge order the sequence builder
	// later relies on.
	sorted := append([]store.SimulatedActivity(nil), activities...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset < sorted[j].StartOffset
	})

	compiled := s.typecheckRules(ctx, session, set, schemas, sorted, rulesByType)

	results := make([]store.ActivityResult, len(sorted))
	var wg sync.WaitGroup
	for i, act := range sorted {
		results[i] = store.ActivityResult{ActivityID: act.ID, ActivityType: act.TypeName}

		if _, ok := rulesByType[act.TypeName]; !ok {
			continue // no rule: commands and errors both stay nil
		}
		cr := compiled[act.TypeName]
		switch {
		case cr.err != nil:
			results[i].Errors = diag.Errorf("typechecking rule for %s: %s", act.TypeName, cr.err)
		case diag.HasErrors(cr.diags):
			results[i].Errors = cr.diags
		default:
			wg.Add(1)
			go func(i int, act store.SimulatedActivity, art *expansion.Artifact) {
				defer wg.Done()
				commands, diags := s.engine.Execute(ctx, art, act)
				results[i].Commands = commands
				results[i].Errors = diags
			}(i, act, cr.artifact)
		}
	}
	wg.Wait()

	run := store.ExpansionRun{
		ID:                  uuid.NewString(),
		SimulationDatasetID: datasetID,
		ExpansionSetID:      setID,
		CreatedAt:           time.Now().UTC(),
		Results:             results,
	}
	if err := s.store.PutRun(ctx, run); err != nil {
		return store.ExpansionRun{}, fmt.Errorf("persisting expansion run: %w", err)
	}
	s.met.RunsTotal.Inc()

	logger.Info("Expansion run persisted.",
		"run", run.ID, "set", setID, "dataset", datasetID, "activities", len(results))
	return run, nil
}

// typecheckRules compiles the rule of each activity type appearing in the
// dataset. Results are keyed by activity type; a type the dataset never
// uses is not compiled.
func (s *Service) typecheckRules(ctx context.Context, session *fetch.Session, set store.ExpansionSet, schemas *codegen.SchemaSet, activities []store.SimulatedActivity, rulesByType map[string]store.ExpansionRule) map[string]compiledRule {
	compiled := make(map[string]compiledRule)
	for _, act := range activities {
		rule, ok := rulesByType[act.TypeName]
		if !ok {
			continue
		}
		if _, done := compiled[act.TypeName]; done {
			continue
		}

		actSchema, err := session.ActivitySchema(ctx, set.MissionModelID, act.TypeName)
		if err != nil {
			compiled[act.TypeName] = compiledRule{err: err}
			continue
		}
		art, diags, err := s.engine.Typecheck(ctx, expansion.TypecheckRequest{
			Schemas:        schemas,
			ActivitySchema: actSchema,
			MissionModelID: set.MissionModelID,
			ActivityType:   act.TypeName,
			Logic:          rule.Logic,
		})
		compiled[act.TypeName] = compiledRule{artifact: art, diags: diags, err: err}
	}
	return compiled
}
