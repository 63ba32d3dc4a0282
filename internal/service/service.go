// Package service is the library-facing facade over the expansion core. It
// wires the store, the artifact store and the expansion engine into the
// inbound operations: dictionary upload, rule and set authoring, dataset
// expansion, seqJson retrieval and EDSL regeneration.
package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NASA-AMMOS/aerie-sub006/internal/artifact"
	"github.com/NASA-AMMOS/aerie-sub006/internal/codegen"
	"github.com/NASA-AMMOS/aerie-sub006/internal/ctxlog"
	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/dictionary"
	"github.com/NASA-AMMOS/aerie-sub006/internal/expansion"
	"github.com/NASA-AMMOS/aerie-sub006/internal/fetch"
	"github.com/NASA-AMMOS/aerie-sub006/internal/metrics"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// Service bundles the collaborators of every inbound operation. All methods
// are safe for concurrent use.
type Service struct {
	store     store.Store
	artifacts artifact.Store
	engine    *expansion.Engine
	met       *metrics.Metrics
}

// New wires a service. A nil metrics bundle gets a private one.
func New(st store.Store, artifacts artifact.Store, engine *expansion.Engine, met *metrics.Metrics) *Service {
	if met == nil {
		met = metrics.New()
	}
	return &Service{store: st, artifacts: artifacts, engine: engine, met: met}
}

// UploadDictionary parses a raw command dictionary document, generates the
// schema artifact and persists it keyed by (mission, version). Re-uploading
// the same identity overwrites the artifact content; callers holding the
// dictionary id keep seeing the latest content. Returns the dictionary id.
func (s *Service) UploadDictionary(ctx context.Context, doc string) (string, error) {
	dict, err := dictionary.ParseString(doc)
	if err != nil {
		return "", err
	}
	set, err := codegen.Generate(ctx, dict)
	if err != nil {
		return "", err
	}

	data, err := set.EncodeArtifact()
	if err != nil {
		return "", fmt.Errorf("encoding dictionary artifact: %w", err)
	}
	if _, err := s.artifacts.Put(ctx, codegen.ArtifactKey(set.Mission, set.Version), bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("storing dictionary artifact: %w", err)
	}
	if _, err := s.artifacts.Put(ctx, codegen.DeclarationKey(set.Mission, set.Version), strings.NewReader(set.Declaration()), "text/plain"); err != nil {
		return "", fmt.Errorf("storing dictionary declaration: %w", err)
	}

	ctxlog.FromContext(ctx).Info("Dictionary uploaded.",
		"dictionary", set.DictionaryID(), "stems", len(set.Stems))
	return set.DictionaryID(), nil
}

// SaveRuleInput is one expansion rule submission. DictionaryID and
// MissionModelID are optional; when both are present the logic is
// typechecked immediately and the diagnostics returned as feedback.
type SaveRuleInput struct {
	ActivityType   string
	Logic          string
	DictionaryID   string
	MissionModelID string
}

// SaveRule persists a rule and, when an authoring context is given, returns
// immediate typecheck feedback. Diagnostics do not block the save: the rule
// is stored either way so the author can iterate.
func (s *Service) SaveRule(ctx context.Context, in SaveRuleInput) (store.ExpansionRule, []diag.Diagnostic, error) {
	rule := store.ExpansionRule{
		ID:                      uuid.NewString(),
		ActivityType:            in.ActivityType,
		Logic:                   in.Logic,
		AuthoringDictionaryID:   in.DictionaryID,
		AuthoringMissionModelID: in.MissionModelID,
		CreatedAt:               time.Now().UTC(),
	}

	var diags []diag.Diagnostic
	if in.DictionaryID != "" && in.MissionModelID != "" {
		session := fetch.NewSession(s.store, s.artifacts)
		schemas, err := session.SchemaSet(ctx, in.DictionaryID)
		if err != nil {
			return store.ExpansionRule{}, nil, fmt.Errorf("loading dictionary %s: %w", in.DictionaryID, err)
		}
		actSchema, err := session.ActivitySchema(ctx, in.MissionModelID, in.ActivityType)
		if err != nil {
			return store.ExpansionRule{}, nil, err
		}
		_, diags, err = s.engine.Typecheck(ctx, expansion.TypecheckRequest{
			Schemas:        schemas,
			ActivitySchema: actSchema,
			MissionModelID: in.MissionModelID,
			ActivityType:   in.ActivityType,
			Logic:          in.Logic,
		})
		if err != nil {
			return store.ExpansionRule{}, nil, fmt.Errorf("typechecking rule: %w", err)
		}
	}

	if err := s.store.PutRule(ctx, rule); err != nil {
		return store.ExpansionRule{}, nil, err
	}
	return rule, diags, nil
}

// CreateSet forms an immutable expansion set from existing rules bound to
// one dictionary and one mission model. A missing dictionary or rule fails
// the whole creation; sets are never partially formed.
func (s *Service) CreateSet(ctx context.Context, name, dictionaryID, missionModelID string, ruleIDs []string) (store.ExpansionSet, error) {
	session := fetch.NewSession(s.store, s.artifacts)
	if _, err := session.SchemaSet(ctx, dictionaryID); err != nil {
		return store.ExpansionSet{}, fmt.Errorf("loading dictionary %s: %w", dictionaryID, err)
	}
	for i, res := range session.Rules(ctx, ruleIDs) {
		if res.Err != nil {
			return store.ExpansionSet{}, fmt.Errorf("loading rule %s: %w", ruleIDs[i], res.Err)
		}
	}

	set := store.ExpansionSet{
		ID:             uuid.NewString(),
		Name:           name,
		DictionaryID:   dictionaryID,
		MissionModelID: missionModelID,
		RuleIDs:        append([]string(nil), ruleIDs...),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.PutSet(ctx, set); err != nil {
		return store.ExpansionSet{}, err
	}
	return set, nil
}

// CreateSequence registers a named sequence within a dataset and links the
// activity instances whose commands it will carry.
func (s *Service) CreateSequence(ctx context.Context, rec store.SequenceRecord) error {
	return s.store.PutSequence(ctx, rec)
}
