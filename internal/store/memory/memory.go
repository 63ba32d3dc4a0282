// Package memory provides the in-memory store backend. It is the default
// for tests and also the state engine the sqlite backend snapshots.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NASA-AMMOS/aerie-sub006/internal/apperr"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// Store keeps all records in maps guarded by one RWMutex.
type Store struct {
	mu         sync.RWMutex
	rules      map[string]store.ExpansionRule
	sets       map[string]store.ExpansionSet
	schemas    map[string]store.ActivitySchema // key: missionModelID + "/" + name
	activities map[string][]store.SimulatedActivity
	runs       map[string]store.ExpansionRun
	runOrder   []string // append-only history, oldest first
	sequences  map[string]store.SequenceRecord // key: datasetID + "/" + seqID
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		rules:      make(map[string]store.ExpansionRule),
		sets:       make(map[string]store.ExpansionSet),
		schemas:    make(map[string]store.ActivitySchema),
		activities: make(map[string][]store.SimulatedActivity),
		runs:       make(map[string]store.ExpansionRun),
		sequences:  make(map[string]store.SequenceRecord),
	}
}

func schemaKey(missionModelID, name string) string { return missionModelID + "/" + name }
func seqKey(datasetID, seqID string) string        { return datasetID + "/" + seqID }

func (s *Store) PutRule(ctx context.Context, rule store.ExpansionRule) error {
	if rule.ID == "" {
		return fmt.Errorf("expansion rule requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return nil
}

func (s *Store) GetRule(ctx context.Context, id string) (store.ExpansionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return store.ExpansionRule{}, apperr.NotFound("expansion rule", id)
	}
	return rule, nil
}

func (s *Store) PutSet(ctx context.Context, set store.ExpansionSet) error {
	if set.ID == "" {
		return fmt.Errorf("expansion set requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sets[set.ID]; exists {
		return apperr.New(apperr.CodeExpansionSetImmutable, "expansion set %s already exists; edits must create a new set", set.ID)
	}
	s.sets[set.ID] = set
	return nil
}

func (s *Store) GetSet(ctx context.Context, id string) (store.ExpansionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[id]
	if !ok {
		return store.ExpansionSet{}, apperr.NotFound("expansion set", id)
	}
	return set, nil
}

func (s *Store) PutActivitySchema(ctx context.Context, schema store.ActivitySchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schemaKey(schema.MissionModelID, schema.Name)] = schema
	return nil
}

func (s *Store) GetActivitySchema(ctx context.Context, missionModelID, name string) (store.ActivitySchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[schemaKey(missionModelID, name)]
	if !ok {
		return store.ActivitySchema{}, apperr.NotFound("activity schema", schemaKey(missionModelID, name))
	}
	return schema, nil
}

func (s *Store) PutSimulatedActivities(ctx context.Context, datasetID string, activities []store.SimulatedActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[datasetID] = append([]store.SimulatedActivity(nil), activities...)
	return nil
}

func (s *Store) GetSimulatedActivities(ctx context.Context, datasetID string) ([]store.SimulatedActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acts, ok := s.activities[datasetID]
	if !ok {
		return nil, apperr.NotFound("simulation dataset", datasetID)
	}
	return append([]store.SimulatedActivity(nil), acts...), nil
}

func (s *Store) GetSimulatedActivity(ctx context.Context, datasetID, activityID string) (store.SimulatedActivity, error) {
	acts, err := s.GetSimulatedActivities(ctx, datasetID)
	if err != nil {
		return store.SimulatedActivity{}, err
	}
	for _, a := range acts {
		if a.ID == activityID {
			return a, nil
		}
	}
	return store.SimulatedActivity{}, apperr.NotFound("simulated activity", activityID)
}

func (s *Store) PutRun(ctx context.Context, run store.ExpansionRun) error {
	if run.ID == "" {
		return fmt.Errorf("expansion run requires an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (store.ExpansionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return store.ExpansionRun{}, apperr.NotFound("expansion run", id)
	}
	return run, nil
}

func (s *Store) LatestRun(ctx context.Context, datasetID string) (store.ExpansionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		run := s.runs[s.runOrder[i]]
		if run.SimulationDatasetID == datasetID {
			return run, nil
		}
	}
	return store.ExpansionRun{}, apperr.NotFound("expansion run for dataset", datasetID)
}

func (s *Store) PutSequence(ctx context.Context, seq store.SequenceRecord) error {
	if seq.SeqID == "" || seq.SimulationDatasetID == "" {
		return fmt.Errorf("sequence requires seq id and dataset id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[seqKey(seq.SimulationDatasetID, seq.SeqID)] = seq
	return nil
}

func (s *Store) GetSequence(ctx context.Context, datasetID, seqID string) (store.SequenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.sequences[seqKey(datasetID, seqID)]
	if !ok {
		return store.SequenceRecord{}, apperr.NotFound("sequence", seqID)
	}
	return seq, nil
}

func (s *Store) LinkActivities(ctx context.Context, datasetID, seqID string, activityIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seqKey(datasetID, seqID)
	seq, ok := s.sequences[key]
	if !ok {
		return apperr.NotFound("sequence", seqID)
	}
	present := make(map[string]struct{}, len(seq.ActivityIDs))
	for _, id := range seq.ActivityIDs {
		present[id] = struct{}{}
	}
	for _, id := range activityIDs {
		if _, dup := present[id]; !dup {
			seq.ActivityIDs = append(seq.ActivityIDs, id)
			present[id] = struct{}{}
		}
	}
	s.sequences[key] = seq
	return nil
}

func (s *Store) Close() error { return nil }

// Snapshot is the full exported state, used by the sqlite backend.
type Snapshot struct {
	Rules      map[string]store.ExpansionRule       `json:"rules"`
	Sets       map[string]store.ExpansionSet        `json:"sets"`
	Schemas    map[string]store.ActivitySchema      `json:"schemas"`
	Activities map[string][]store.SimulatedActivity `json:"activities"`
	Runs       map[string]store.ExpansionRun        `json:"runs"`
	RunOrder   []string                             `json:"run_order"`
	Sequences  map[string]store.SequenceRecord      `json:"sequences"`
}

// ExportState copies the current state out.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Rules:      make(map[string]store.ExpansionRule, len(s.rules)),
		Sets:       make(map[string]store.ExpansionSet, len(s.sets)),
		Schemas:    make(map[string]store.ActivitySchema, len(s.schemas)),
		Activities: make(map[string][]store.SimulatedActivity, len(s.activities)),
		Runs:       make(map[string]store.ExpansionRun, len(s.runs)),
		RunOrder:   append([]string(nil), s.runOrder...),
		Sequences:  make(map[string]store.SequenceRecord, len(s.sequences)),
	}
	for k, v := range s.rules {
		snap.Rules[k] = v
	}
	for k, v := range s.sets {
		snap.Sets[k] = v
	}
	for k, v := range s.schemas {
		snap.Schemas[k] = v
	}
	for k, v := range s.activities {
		snap.Activities[k] = append([]store.SimulatedActivity(nil), v...)
	}
	for k, v := range s.runs {
		snap.Runs[k] = v
	}
	for k, v := range s.sequences {
		snap.Sequences[k] = v
	}
	return snap
}

// ImportState replaces the current state with a snapshot.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Rules != nil {
		s.rules = snap.Rules
	}
	if snap.Sets != nil {
		s.sets = snap.Sets
	}
	if snap.Schemas != nil {
		s.schemas = snap.Schemas
	}
	if snap.Activities != nil {
		s.activities = snap.Activities
	}
	if snap.Runs != nil {
		s.runs = snap.Runs
	}
	s.runOrder = snap.RunOrder
	if s.runOrder == nil {
		// Rebuild a deterministic order for snapshots written before the
		// history column existed.
		for id := range s.runs {
			s.runOrder = append(s.runOrder, id)
		}
		sort.Strings(s.runOrder)
	}
	if snap.Sequences != nil {
		s.sequences = snap.Sequences
	}
}
