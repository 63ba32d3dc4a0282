package memory

import (
	"testing"

	"github.com/NASA-AMMOS/aerie-sub006/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, New())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	storetest.Run(t, s)

	restored := New()
	restored.ImportState(s.ExportState())

	rule, err := restored.GetRule(t.Context(), "rule-1")
	if err != nil {
		t.Fatalf("GetRule after import: %v", err)
	}
	if rule.ActivityType != "BakeBananaBread" {
		t.Errorf("rule = %+v", rule)
	}
	latest, err := restored.LatestRun(t.Context(), "ds-1")
	if err != nil || latest.ID != "run-2" {
		t.Errorf("LatestRun after import = %+v, %v", latest, err)
	}
}
