package fetch

import (
	"context"

	"github.com/NASA-AMMOS/aerie-sub006/internal/artifact"
	"github.com/NASA-AMMOS/aerie-sub006/internal/codegen"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// Session bundles the per-request loaders for every upstream entity the
// expansion pipeline reads. Build one per request and drop it when the
// request completes; the caches inside never outlive it.
type Session struct {
	schemas    *Loader[schemaKey, store.ActivitySchema]
	datasets   *Loader[string, []store.SimulatedActivity]
	activities *Loader[activityKey, store.SimulatedActivity]
	rules      *Loader[string, store.ExpansionRule]
	sets       *Loader[string, store.ExpansionSet]
	artifacts  *Loader[string, *codegen.SchemaSet]
}

type schemaKey struct {
	MissionModelID string
	Name           string
}

type activityKey struct {
	DatasetID  string
	ActivityID string
}

// NewSession builds the loaders over a store and an artifact store.
func NewSession(st store.Store, artifacts artifact.Store) *Session {
	return &Session{
		schemas: NewLoader(func(ctx context.Context, keys []schemaKey) map[schemaKey]Result[store.ActivitySchema] {
			out := make(map[schemaKey]Result[store.ActivitySchema], len(keys))
			for _, key := range keys {
				schema, err := st.GetActivitySchema(ctx, key.MissionModelID, key.Name)
				out[key] = Result[store.ActivitySchema]{Value: schema, Err: err}
			}
			return out
		}),
		datasets: NewLoader(func(ctx context.Context, keys []string) map[string]Result[[]store.SimulatedActivity] {
			out := make(map[string]Result[[]store.SimulatedActivity], len(keys))
			for _, key := range keys {
				acts, err := st.GetSimulatedActivities(ctx, key)
				out[key] = Result[[]store.SimulatedActivity]{Value: acts, Err: err}
			}
			return out
		}),
		activities: NewLoader(func(ctx context.Context, keys []activityKey) map[activityKey]Result[store.SimulatedActivity] {
			out := make(map[activityKey]Result[store.SimulatedActivity], len(keys))
			for _, key := range keys {
				act, err := st.GetSimulatedActivity(ctx, key.DatasetID, key.ActivityID)
				out[key] = Result[store.SimulatedActivity]{Value: act, Err: err}
			}
			return out
		}),
		rules: NewLoader(func(ctx context.Context, keys []string) map[string]Result[store.ExpansionRule] {
			out := make(map[string]Result[store.ExpansionRule], len(keys))
			for _, key := range keys {
				rule, err := st.GetRule(ctx, key)
				out[key] = Result[store.ExpansionRule]{Value: rule, Err: err}
			}
			return out
		}),
		sets: NewLoader(func(ctx context.Context, keys []string) map[string]Result[store.ExpansionSet] {
			out := make(map[string]Result[store.ExpansionSet], len(keys))
			for _, key := range keys {
				set, err := st.GetSet(ctx, key)
				out[key] = Result[store.ExpansionSet]{Value: set, Err: err}
			}
			return out
		}),
		artifacts: NewLoader(func(ctx context.Context, keys []string) map[string]Result[*codegen.SchemaSet] {
			out := make(map[string]Result[*codegen.SchemaSet], len(keys))
			for _, key := range keys {
				out[key] = loadSchemaSet(ctx, artifacts, key)
			}
			return out
		}),
	}
}

func loadSchemaSet(ctx context.Context, artifacts artifact.Store, dictionaryID string) Result[*codegen.SchemaSet] {
	mission, version, err := codegen.SplitDictionaryID(dictionaryID)
	if err != nil {
		return Result[*codegen.SchemaSet]{Err: err}
	}
	data, err := artifact.ReadAll(ctx, artifacts, codegen.ArtifactKey(mission, version))
	if err != nil {
		return Result[*codegen.SchemaSet]{Err: err}
	}
	set, err := codegen.DecodeArtifact(data)
	return Result[*codegen.SchemaSet]{Value: set, Err: err}
}

// ActivitySchema loads one activity type's schema.
func (s *Session) ActivitySchema(ctx context.Context, missionModelID, name string) (store.ActivitySchema, error) {
	return s.schemas.Load(ctx, schemaKey{MissionModelID: missionModelID, Name: name})
}

// SimulatedActivities loads all activities of one dataset.
func (s *Session) SimulatedActivities(ctx context.Context, datasetID string) ([]store.SimulatedActivity, error) {
	return s.datasets.Load(ctx, datasetID)
}

// SimulatedActivity loads one activity instance.
func (s *Session) SimulatedActivity(ctx context.Context, datasetID, activityID string) (store.SimulatedActivity, error) {
	return s.activities.Load(ctx, activityKey{DatasetID: datasetID, ActivityID: activityID})
}

// Rule loads one expansion rule.
func (s *Session) Rule(ctx context.Context, id string) (store.ExpansionRule, error) {
	return s.rules.Load(ctx, id)
}

// Rules loads a rule id list with per-key error isolation.
func (s *Session) Rules(ctx context.Context, ids []string) []Result[store.ExpansionRule] {
	return s.rules.LoadMany(ctx, ids)
}

// Set loads one expansion set.
func (s *Session) Set(ctx context.Context, id string) (store.ExpansionSet, error) {
	return s.sets.Load(ctx, id)
}

// SchemaSet loads (and decodes) the generated dictionary artifact.
func (s *Session) SchemaSet(ctx context.Context, dictionaryID string) (*codegen.SchemaSet, error) {
	return s.artifacts.Load(ctx, dictionaryID)
}
