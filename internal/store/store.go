// Package store defines the persistence contracts for expansion authoring
// state (rules, sets), simulation inputs (activity schemas, simulated
// activities) and expansion outputs (runs, expanded sequences), together
// with the domain records they exchange. Backends live in subpackages.
package store

import (
	"context"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
)

// ExpansionRule maps one activity type to expansion logic source text. The
// authoring dictionary and mission model record the context the rule was
// written against.
type ExpansionRule struct {
	ID                      string    `json:"id"`
	ActivityType            string    `json:"activity_type"`
	Logic                   string    `json:"logic"`
	AuthoringDictionaryID   string    `json:"authoring_dictionary_id"`
	AuthoringMissionModelID string    `json:"authoring_mission_model_id"`
	CreatedAt               time.Time `json:"created_at"`
}

// ExpansionSet is an immutable named bundle of rules bound to exactly one
// dictionary and one mission model. Edits produce a new set.
type ExpansionSet struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DictionaryID   string    `json:"dictionary_id"`
	MissionModelID string    `json:"mission_model_id"`
	RuleIDs        []string  `json:"rule_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActivitySchema declares the typed attributes of one activity type in a
// mission model. Attribute types use the primitive labels string, number
// and bool.
type ActivitySchema struct {
	MissionModelID string            `json:"mission_model_id"`
	Name           string            `json:"name"`
	Attributes     map[string]string `json:"attributes"`
}

// SimulatedActivity is one activity instance produced by the simulation
// engine; read-only to this subsystem. Start and end are nil when the
// effect model ran past plan boundaries.
type SimulatedActivity struct {
	ID                  string         `json:"id"`
	TypeName            string         `json:"type_name"`
	SimulationDatasetID string         `json:"simulation_dataset_id"`
	StartOffset         time.Duration  `json:"start_offset"`
	StartTime           *time.Time     `json:"start_time,omitempty"`
	EndTime             *time.Time     `json:"end_time,omitempty"`
	Duration            time.Duration  `json:"duration"`
	Attributes          map[string]any `json:"attributes"`
	Computed            map[string]any `json:"computed,omitempty"`
}

// ActivityResult is the per-activity outcome of an expansion run. Commands
// and Errors are each nullable: both nil means no rule matched, commands
// with empty errors means success, nil commands with errors means failure.
type ActivityResult struct {
	ActivityID   string            `json:"activity_id"`
	ActivityType string            `json:"activity_type"`
	Commands     []seqjson.Command `json:"commands,omitempty"`
	Errors       []diag.Diagnostic `json:"errors,omitempty"`
}

// ExpansionRun records one expansion execution: append-only history.
type ExpansionRun struct {
	ID                  string           `json:"id"`
	SimulationDatasetID string           `json:"simulation_dataset_id"`
	ExpansionSetID      string           `json:"expansion_set_id"`
	CreatedAt           time.Time        `json:"created_at"`
	Results             []ActivityResult `json:"results"`
}

// SequenceRecord is a named sequence within a simulation dataset plus the
// activity instances linked into it.
type SequenceRecord struct {
	SeqID               string         `json:"seq_id"`
	SimulationDatasetID string         `json:"simulation_dataset_id"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	ActivityIDs         []string       `json:"activity_ids"`
}

// Store is the persistence contract. Implementations must return
// apperr.NotFound conditions for missing entities so callers can map them
// to user-facing messages.
type Store interface {
	PutRule(ctx context.Context, rule ExpansionRule) error
	GetRule(ctx context.Context, id string) (ExpansionRule, error)

	// PutSet persists a new expansion set; replacing an existing id is an error.
	PutSet(ctx context.Context, set ExpansionSet) error
	GetSet(ctx context.Context, id string) (ExpansionSet, error)

	PutActivitySchema(ctx context.Context, schema ActivitySchema) error
	GetActivitySchema(ctx context.Context, missionModelID, name string) (ActivitySchema, error)

	PutSimulatedActivities(ctx context.Context, datasetID string, activities []SimulatedActivity) error
	GetSimulatedActivities(ctx context.Context, datasetID string) ([]SimulatedActivity, error)
	GetSimulatedActivity(ctx context.Context, datasetID, activityID string) (SimulatedActivity, error)

	PutRun(ctx context.Context, run ExpansionRun) error
	GetRun(ctx context.Context, id string) (ExpansionRun, error)
	// LatestRun returns the most recent run for a dataset.
	LatestRun(ctx context.Context, datasetID string) (ExpansionRun, error)

	PutSequence(ctx context.Context, seq SequenceRecord) error
	GetSequence(ctx context.Context, datasetID, seqID string) (SequenceRecord, error)
	LinkActivities(ctx context.Context, datasetID, seqID string, activityIDs []string) error

	Close() error
}
