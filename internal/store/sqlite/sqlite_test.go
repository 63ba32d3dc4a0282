package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/NASA-AMMOS/aerie-sub006/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "seqgen.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()
	storetest.Run(t, s)
}

func TestReopenRestoresState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqgen.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	storetest.Run(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	rule, err := reopened.GetRule(t.Context(), "rule-1")
	if err != nil {
		t.Fatalf("GetRule after reopen: %v", err)
	}
	if rule.AuthoringDictionaryID != "BANANANATION@1.0.0" {
		t.Errorf("rule = %+v", rule)
	}
	latest, err := reopened.LatestRun(t.Context(), "ds-1")
	if err != nil || latest.ID != "run-2" {
		t.Errorf("LatestRun after reopen = %+v, %v", latest, err)
	}
	seq, err := reopened.GetSequence(t.Context(), "ds-1", "seq-1")
	if err != nil || len(seq.ActivityIDs) != 2 {
		t.Errorf("GetSequence after reopen = %+v, %v", seq, err)
	}
}
