package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/ctxlog"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/fsutil"
	"github.com/NASA-AMMOS/aerie-sub006/internal/service"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
	"github.com/NASA-AMMOS/aerie-sub006/internal/timecode"
)

// planFile is the on-disk shape of one dataset: the activity type schemas
// of the mission model plus the simulated activity instances. Offsets and
// durations use the HMS duration format.
type planFile struct {
	SimulationDatasetID string               `json:"simulation_dataset_id"`
	MissionModelID      string               `json:"mission_model_id"`
	ActivitySchemas     []planActivitySchema `json:"activity_schemas"`
	Activities          []planActivity       `json:"activities"`
}

type planActivitySchema struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

type planActivity struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	StartOffset string         `json:"start_offset"`
	Duration    string         `json:"duration,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Computed    map[string]any `json:"computed,omitempty"`
}

// Run drives one full local expansion: upload the dictionary, load the
// plan, save a rule per logic file, form a set, expand the dataset, build
// the sequence and write its seqJson. Per-activity expansion failures end
// up inside the sequence as error markers; Run itself fails only on
// missing inputs or storage errors.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	doc, err := os.ReadFile(a.cfg.DictionaryPath)
	if err != nil {
		return fmt.Errorf("reading dictionary: %w", err)
	}
	dictionaryID, err := a.service.UploadDictionary(ctx, string(doc))
	if err != nil {
		return err
	}

	plan, err := readPlan(a.cfg.PlanPath)
	if err != nil {
		return err
	}
	if err := a.stagePlan(ctx, plan); err != nil {
		return err
	}

	ruleIDs, err := a.saveRules(ctx, dictionaryID, plan.MissionModelID)
	if err != nil {
		return err
	}

	set, err := a.service.CreateSet(ctx, "local-run", dictionaryID, plan.MissionModelID, ruleIDs)
	if err != nil {
		return err
	}
	run, err := a.service.ExpandDataset(ctx, set.ID, plan.SimulationDatasetID)
	if err != nil {
		return err
	}

	activityIDs := make([]string, 0, len(run.Results))
	for _, res := range run.Results {
		activityIDs = append(activityIDs, res.ActivityID)
	}
	if err := a.service.CreateSequence(ctx, store.SequenceRecord{
		SeqID:               a.cfg.SeqID,
		SimulationDatasetID: plan.SimulationDatasetID,
		ActivityIDs:         activityIDs,
	}); err != nil {
		return err
	}

	seqJSON, err := a.service.SequenceSeqJSON(ctx, plan.SimulationDatasetID, a.cfg.SeqID)
	if err != nil {
		return err
	}
	if err := a.writeOutput(seqJSON); err != nil {
		return err
	}

	if a.cfg.EmitEDSL {
		src, err := a.service.RegenerateEDSL(ctx, seqJSON, dictionaryID)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.outW, src)
	}

	logger.Info("Expansion run complete.",
		"sequence", a.cfg.SeqID, "dataset", plan.SimulationDatasetID, "activities", len(run.Results))
	return nil
}

func readPlan(path string) (planFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planFile{}, fmt.Errorf("reading plan: %w", err)
	}
	var plan planFile
	if err := json.Unmarshal(data, &plan); err != nil {
		return planFile{}, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	if plan.SimulationDatasetID == "" || plan.MissionModelID == "" {
		return planFile{}, fmt.Errorf("plan %s: simulation_dataset_id and mission_model_id are required", path)
	}
	return plan, nil
}

// stagePlan persists the plan's schemas and activities the way the
// simulation engine would have.
func (a *App) stagePlan(ctx context.Context, plan planFile) error {
	for _, schema := range plan.ActivitySchemas {
		err := a.store.PutActivitySchema(ctx, store.ActivitySchema{
			MissionModelID: plan.MissionModelID,
			Name:           schema.Name,
			Attributes:     schema.Attributes,
		})
		if err != nil {
			return err
		}
	}

	activities := make([]store.SimulatedActivity, 0, len(plan.Activities))
	for _, act := range plan.Activities {
		offset, err := timecode.ParseHMS(act.StartOffset)
		if err != nil {
			return fmt.Errorf("activity %s: %w", act.ID, err)
		}
		var duration time.Duration
		if act.Duration != "" {
			if duration, err = timecode.ParseHMS(act.Duration); err != nil {
				return fmt.Errorf("activity %s: %w", act.ID, err)
			}
		}
		activities = append(activities, store.SimulatedActivity{
			ID:                  act.ID,
			TypeName:            act.Type,
			SimulationDatasetID: plan.SimulationDatasetID,
			StartOffset:         offset,
			Duration:            duration,
			Attributes:          act.Attributes,
			Computed:            act.Computed,
		})
	}
	return a.store.PutSimulatedActivities(ctx, plan.SimulationDatasetID, activities)
}

// saveRules loads every .hcl file in the rules directory as the expansion
// logic of the activity type the file is named after. Typecheck feedback is
// logged but does not stop the run; a broken rule surfaces per-activity
// later.
func (a *App) saveRules(ctx context.Context, dictionaryID, missionModelID string) ([]string, error) {
	paths, err := fsutil.FindRuleFiles(a.cfg.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("reading rules directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .hcl rule files in %s", a.cfg.RulesDir)
	}

	ruleIDs := make([]string, 0, len(paths))
	for _, path := range paths {
		logic, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rule %s: %w", path, err)
		}
		name := filepath.Base(path)
		activityType := strings.TrimSuffix(name, ".hcl")

		rule, diags, err := a.service.SaveRule(ctx, service.SaveRuleInput{
			ActivityType:   activityType,
			Logic:          string(logic),
			DictionaryID:   dictionaryID,
			MissionModelID: missionModelID,
		})
		if err != nil {
			return nil, fmt.Errorf("saving rule %s: %w", name, err)
		}
		if diag.HasErrors(diags) {
			a.logger.Warn("Rule has typecheck diagnostics.", "rule", name, "count", len(diags))
			for _, d := range diags {
				a.logger.Warn("Diagnostic.", "rule", name, "detail", d.String())
			}
		}
		ruleIDs = append(ruleIDs, rule.ID)
	}
	return ruleIDs, nil
}

func (a *App) writeOutput(seqJSON []byte) error {
	if a.cfg.OutputPath == "" {
		fmt.Fprintln(a.outW, string(seqJSON))
		return nil
	}
	if err := os.WriteFile(a.cfg.OutputPath, append(seqJSON, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing seqJson: %w", err)
	}
	a.logger.Info("seqJson written.", "path", a.cfg.OutputPath)
	return nil
}
