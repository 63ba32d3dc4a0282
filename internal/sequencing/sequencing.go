// Package sequencing merges per-activity command lists into one ordered
// sequence. The builder is a pure function of its inputs: it never mutates
// the results it is given and owns no state of its own.
package sequencing

import (
	"sort"
	"strings"
	"time"

	"github.com/NASA-AMMOS/aerie-sub006/internal/diag"
	"github.com/NASA-AMMOS/aerie-sub006/internal/seqjson"
	"github.com/NASA-AMMOS/aerie-sub006/internal/store"
)

// ErrorStem is the synthetic stem substituted for an activity whose
// expansion failed, so the failure is visible in the sequence itself.
const ErrorStem = "$$ERROR$$"

// Metadata names the identities stamped onto a built sequence. Extra
// entries are merged in; the builder's own keys win on collisions.
type Metadata struct {
	PlanID              string
	SimulationDatasetID string
	Extra               map[string]any
}

// sortClass is the timing classification of a merged command list.
type sortClass int

const (
	classAllEpoch sortClass = iota
	classMixedAnchored
	classUnsortable
)

// Build merges per-activity results, given in activity-start-time order,
// into one sequence. Activities that expanded with errors contribute a
// single error-marker command; activities with no matching rule contribute
// nothing. Commands are time-sorted when the timing schemes admit a total
// order, otherwise the merge order is kept and the sequence is marked
// timeSorted=false.
func Build(seqID string, results []store.ActivityResult, meta Metadata) seqjson.Sequence {
	merged := merge(results)
	steps, timeSorted := order(merged)

	md := make(map[string]any, len(meta.Extra)+3)
	for k, v := range meta.Extra {
		md[k] = v
	}
	md["planId"] = meta.PlanID
	md["simulationDatasetId"] = meta.SimulationDatasetID
	md["timeSorted"] = timeSorted

	return seqjson.Sequence{ID: seqID, Metadata: md, Steps: steps}
}

// merge flattens the per-activity lists, substituting error markers. The
// input order is the activity-start-time order and is preserved.
func merge(results []store.ActivityResult) []seqjson.Command {
	var out []seqjson.Command
	for _, res := range results {
		switch {
		case diag.HasErrors(res.Errors):
			out = append(out, errorMarker(res))
		case res.Commands == nil:
			// No rule matched this activity.
		default:
			out = append(out, res.Commands...)
		}
	}
	return out
}

func errorMarker(res store.ActivityResult) seqjson.Command {
	messages := make([]string, 0, len(res.Errors))
	for _, d := range res.Errors {
		messages = append(messages, d.Message)
	}
	cmd := seqjson.NewCommand(ErrorStem, seqjson.Arg{
		Name:  "message",
		Value: strings.Join(messages, "; "),
	})
	return cmd.WithMetadata("simulatedActivityId", res.ActivityID)
}

// order classifies the merged list in a single pass and dispatches to the
// matching pure sort. The classification is conservative: when the timing
// schemes are not commensurable the merge order is returned untouched,
// because a wrong order is worse than the pre-merge order.
func order(merged []seqjson.Command) ([]seqjson.Command, bool) {
	switch classify(merged) {
	case classAllEpoch:
		return sortByEpochOffset(merged), true
	case classMixedAnchored:
		return sortByResolvedInstant(merged), true
	default:
		return append([]seqjson.Command(nil), merged...), false
	}
}

func classify(merged []seqjson.Command) sortClass {
	var epoch, other int
	seenAbsolute := false
	anchorMissing := false
	hasComplete := false

	for _, cmd := range merged {
		switch cmd.Time.Kind {
		case seqjson.TimeEpochRelative:
			epoch++
		case seqjson.TimeAbsolute:
			seenAbsolute = true
			other++
		case seqjson.TimeCommandRelative:
			if !seenAbsolute {
				anchorMissing = true
			}
			other++
		default:
			hasComplete = true
			other++
		}
	}

	if other == 0 {
		return classAllEpoch
	}
	if epoch > 0 || hasComplete || anchorMissing {
		return classUnsortable
	}
	return classMixedAnchored
}

func sortByEpochOffset(merged []seqjson.Command) []seqjson.Command {
	out := append([]seqjson.Command(nil), merged...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Offset < out[j].Time.Offset
	})
	return out
}

// sortByResolvedInstant walks the list tracking the most recently seen
// absolute timestamp, resolves each command-relative offset against it and
// sorts everything by the resolved instant. The classifier guarantees an
// absolute anchor precedes every relative command.
func sortByResolvedInstant(merged []seqjson.Command) []seqjson.Command {
	type resolved struct {
		cmd seqjson.Command
		at  time.Time
	}
	items := make([]resolved, 0, len(merged))

	var anchor time.Time
	for _, cmd := range merged {
		switch cmd.Time.Kind {
		case seqjson.TimeAbsolute:
			anchor = cmd.Time.Absolute
			items = append(items, resolved{cmd: cmd, at: anchor})
		case seqjson.TimeCommandRelative:
			items = append(items, resolved{cmd: cmd, at: anchor.Add(cmd.Time.Offset)})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.Before(items[j].at)
	})
	out := make([]seqjson.Command, len(items))
	for i := range items {
		out[i] = items[i].cmd
	}
	return out
}
