package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/NASA-AMMOS/aerie-sub006/internal/dictionary"
)

// EncodeArtifact serializes the schema set for durable storage. The derived
// cty types are not serialized; DecodeArtifact rebuilds them from the
// dictionary parameters, so the stored form stays independent of the type
// library's own encoding.
func (s *SchemaSet) EncodeArtifact() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeArtifact restores a schema set from its stored form, rebuilding
// per-argument cty types and the stem index.
func DecodeArtifact(data []byte) (*SchemaSet, error) {
	var set SchemaSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode dictionary artifact: %w", err)
	}
	set.byStem = make(map[string]*StemSchema, len(set.Stems))
	for _, stem := range set.Stems {
		for i := range stem.Args {
			if err := rebuildType(&stem.Args[i]); err != nil {
				return nil, fmt.Errorf("decode dictionary artifact: stem %q: %w", stem.Stem, err)
			}
		}
		set.byStem[stem.Stem] = stem
	}
	return &set, nil
}

func rebuildType(a *ArgSchema) error {
	switch a.Kind {
	case dictionary.KindEnum, dictionary.KindVarString, dictionary.KindFixedString, dictionary.KindTime:
		a.ctyType = cty.String
	case dictionary.KindBoolean:
		a.ctyType = cty.Bool
	case dictionary.KindFloat, dictionary.KindInteger, dictionary.KindUnsigned:
		a.ctyType = cty.Number
	case dictionary.KindRepeat:
		attrs := make(map[string]cty.Type, len(a.Fields))
		for i := range a.Fields {
			if err := rebuildType(&a.Fields[i]); err != nil {
				return err
			}
			attrs[a.Fields[i].Name] = a.Fields[i].ctyType
		}
		a.ctyType = cty.List(cty.Object(attrs))
	default:
		return fmt.Errorf("artifact carries unsupported argument kind %q", a.Kind)
	}
	return nil
}

// Artifact blob keys. Regenerating a dictionary version overwrites both
// blobs in place; the key, and therefore the identity callers hold, never
// changes.
const (
	artifactPrefix = "dictionaries"
)

// SplitDictionaryID splits a "mission@version" identity.
func SplitDictionaryID(id string) (mission, version string, err error) {
	at := strings.IndexByte(id, '@')
	if at <= 0 || at == len(id)-1 {
		return "", "", fmt.Errorf("malformed dictionary id %q: expected mission@version", id)
	}
	return id[:at], id[at+1:], nil
}

// ArtifactKey is the blob key of the machine schema artifact.
func ArtifactKey(mission, version string) string {
	return fmt.Sprintf("%s/%s/%s/schema.json", artifactPrefix, mission, version)
}

// DeclarationKey is the blob key of the declaration text artifact.
func DeclarationKey(mission, version string) string {
	return fmt.Sprintf("%s/%s/%s/declaration.txt", artifactPrefix, mission, version)
}
