package service

import (
	"context"
	"fmt"

	"github.com/NASA-AMMOS/aerie-sub006/internal/edsl"
	"github.com/NASA-AMMOS/aerie-sub006/internal/fetch"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/sequencing"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// SequenceKey names one sequence within one simulation dataset.
type SequenceKey struct {
	SimulationDatasetID string
	SeqID               string
}

// SeqJSONItem is one entry of a batch rebuild: the document or that item's
// own error, never both.
type SeqJSONItem struct {
	Key     SequenceKey
	SeqJSON []byte
	Err     error
}

// SequenceSeqJSON rebuilds the seqJson document for one sequence from the
// dataset's most recent expansion run.
func (s *Service) SequenceSeqJSON(ctx context.Context, datasetID, seqID string) ([]byte, error) {
	return s.buildSeqJSON(ctx, SequenceKey{SimulationDatasetID: datasetID, SeqID: seqID})
}

// SequenceSeqJSONBatch rebuilds many sequences, isolating failures per
// item: a missing sequence or run surfaces in that item's Err while the
// rest of the batch still resolves.
func (s *Service) SequenceSeqJSONBatch(ctx context.Context, keys []SequenceKey) []SeqJSONItem {
	items := make([]SeqJSONItem, len(keys))
	for i, key := range keys {
		doc, err := s.buildSeqJSON(ctx, key)
		items[i] = SeqJSONItem{Key: key, SeqJSON: doc, Err: err}
	}
	return items
}

func (s *Service) buildSeqJSON(ctx context.Context, key SequenceKey) ([]byte, error) {
	rec, err := s.store.GetSequence(ctx, key.SimulationDatasetID, key.SeqID)
	if err != nil {
		return nil, err
	}
	run, err := s.store.LatestRun(ctx, key.SimulationDatasetID)
	if err != nil {
		return nil, fmt.Errorf("sequence %s has no expansion run to draw from: %w", key.SeqID, err)
	}

	linked := make(map[string]bool, len(rec.ActivityIDs))
	for _, id := range rec.ActivityIDs {
		linked[id] = true
	}
	// Run results are already in activity-start-time order.
	var results []store.ActivityResult
	for _, res := range run.Results {
		if linked[res.ActivityID] {
			results = append(results, res)
		}
	}

	meta := sequencing.Metadata{
		SimulationDatasetID: key.SimulationDatasetID,
		Extra:               rec.Metadata,
	}
	if planID, ok := rec.Metadata["planId"].(string); ok {
		meta.PlanID = planID
	}

	seq := sequencing.Build(key.SeqID, results, meta)
	s.met.SequenceBuilt.Inc()
	return seq.MarshalSeqJSON()
}

// EDSLItem is one entry of a batch regeneration.
type EDSLItem struct {
	Source string
	Err    error
}

// RegenerateEDSL turns a seqJson document back into sequence source text.
// When a dictionary id is given its schemas restore canonical argument
// names and boolean values; without one, names are synthesized.
func (s *Service) RegenerateEDSL(ctx context.Context, doc []byte, dictionaryID string) (string, error) {
	resolver, err := s.resolverFor(ctx, dictionaryID)
	if err != nil {
		return "", err
	}
	return regenerate(doc, resolver)
}

// RegenerateEDSLBatch regenerates many documents against one dictionary.
// A dictionary that cannot be loaded is a shared precondition failure; a
// malformed document only fails its own item.
func (s *Service) RegenerateEDSLBatch(ctx context.Context, docs [][]byte, dictionaryID string) ([]EDSLItem, error) {
	resolver, err := s.resolverFor(ctx, dictionaryID)
	if err != nil {
		return nil, err
	}
	items := make([]EDSLItem, len(docs))
	for i, doc := range docs {
		items[i].Source, items[i].Err = regenerate(doc, resolver)
	}
	return items, nil
}

func (s *Service) resolverFor(ctx context.Context, dictionaryID string) (seqjson.ArgResolver, error) {
	if dictionaryID == "" {
		return nil, nil
	}
	session := fetch.NewSession(s.store, s.artifacts)
	schemas, err := session.SchemaSet(ctx, dictionaryID)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary %s: %w", dictionaryID, err)
	}
	return schemas, nil
}

func regenerate(doc []byte, resolver seqjson.ArgResolver) (string, error) {
	seq, err := seqjson.UnmarshalSeqJSON(doc, resolver)
	if err != nil {
		return "", err
	}
	return edsl.Generate(seq)
}
