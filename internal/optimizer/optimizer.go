// Package optimizer turns a storage usage percentage into advisory
// compaction steps and applies a chosen step through the manager.
package optimizer

import (
	"context"
	"fmt"

	"github.com/julianstephens/driftlog/internal/archive"
	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/models"
)

// Priority ranks how urgently a step should be taken
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
)

// Step is a single optimization suggestion
type Step struct {
	Priority Priority       `json:"priority"`
	Action   archive.Action `json:"action"`
	Message  string         `json:"message"`
}

// Result summarizes an applied step
type Result struct {
	Action       archive.Action
	RemovedDays  int
	RemovedCount int
	SavedBytes   int64
}

// Compactor is the write path a step is applied through.
type Compactor interface {
	ApplyCompaction(ctx context.Context, fn func(models.EntryStore) models.EntryStore) error
}

// ShouldOptimize reports whether usage is high enough to recommend optimizing.
func ShouldOptimize(percentage float64) bool {
	return percentage > constants.OptimizeThresholdPercent
}

// GetOptimizationSteps returns the suggestions for a usage percentage, most
// urgent first. Bands are cumulative, so a compressEntries step can appear
// twice at different priorities.
func GetOptimizationSteps(percentage float64) []Step {
	var steps []Step

	if percentage > constants.QuotaCriticalPercent {
		steps = append(steps, Step{
			Priority: PriorityCritical,
			Action:   archive.ActionEmergencyCleanup,
			Message:  fmt.Sprintf("⚠️ CRITICAL: Keep only last %d days to free up space immediately", constants.EmergencyRetentionDays),
		})
	}

	if percentage > constants.OptimizeThresholdPercent {
		steps = append(steps,
			Step{
				Priority: PriorityHigh,
				Action:   archive.ActionCleanOldEntries,
				Message:  fmt.Sprintf("Remove entries older than %d days", constants.DefaultCleanThresholdDays),
			},
			Step{
				Priority: PriorityHigh,
				Action:   archive.ActionCompressEntries,
				Message:  "Remove empty days",
			},
		)
	}

	if percentage > constants.CompactThresholdPercent {
		steps = append(steps, Step{
			Priority: PriorityMedium,
			Action:   archive.ActionCompressEntries,
			Message:  "Clean up empty days",
		})
	}

	return steps
}

// Apply runs the engine function matching action against the store, commits
// the result through c and records the outcome in the engine's log.
func Apply(ctx context.Context, c Compactor, engine *archive.Engine, action archive.Action) (Result, error) {
	res := Result{Action: action}
	rec := archive.OptimizationRecord{Action: action}

	var fn func(models.EntryStore) models.EntryStore
	switch action {
	case archive.ActionCleanOldEntries:
		fn = func(doc models.EntryStore) models.EntryStore {
			r := engine.CleanOldEntries(doc, 0)
			res.RemovedCount, res.SavedBytes = r.RemovedCount, r.SavedBytes
			res.RemovedDays = len(doc) - len(r.Remaining)
			rec = r.Record()
			rec.RemovedDays = res.RemovedDays
			return r.Remaining
		}
	case archive.ActionCompressEntries:
		fn = func(doc models.EntryStore) models.EntryStore {
			r := engine.CompressEntries(doc)
			res.RemovedDays, res.SavedBytes = r.RemovedDays, r.SavedBytes
			rec = r.Record()
			return r.Compacted
		}
	case archive.ActionEmergencyCleanup:
		fn = func(doc models.EntryStore) models.EntryStore {
			r := engine.EmergencyCleanup(doc)
			res.RemovedDays, res.RemovedCount, res.SavedBytes = r.RemovedDays, r.RemovedCount, r.SavedBytes
			rec = r.Record()
			return r.Retained
		}
	default:
		return res, fmt.Errorf("unknown optimization action %q", action)
	}

	if err := c.ApplyCompaction(ctx, fn); err != nil {
		engine.Record(archive.OptimizationRecord{Action: action})
		return Result{Action: action}, fmt.Errorf("failed to apply %s: %w", action, err)
	}
	rec.Success = true
	engine.Record(rec)
	return res, nil
}
