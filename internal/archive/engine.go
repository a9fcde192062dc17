// Package archive removes old or empty dates from an entry store and writes
// archived selections out as bundles.
package archive

import (
	"sync"
	"time"

	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/utils"
)

// Action names a compaction operation.
type Action string

const (
	ActionCleanOldEntries  Action = "cleanOldEntries"
	ActionCompressEntries  Action = "compressEntries"
	ActionEmergencyCleanup Action = "emergencyCleanup"
)

type CleanResult struct {
	Remaining     models.EntryStore
	RemovedCount  int
	SavedBytes    int64
	ThresholdDays int
}

func (r CleanResult) Record() OptimizationRecord {
	return OptimizationRecord{
		Action:        ActionCleanOldEntries,
		ThresholdDays: r.ThresholdDays,
		RemovedCount:  r.RemovedCount,
		SavedBytes:    r.SavedBytes,
	}
}

type CompressResult struct {
	Compacted   models.EntryStore
	RemovedDays int
	SavedBytes  int64
}

func (r CompressResult) Record() OptimizationRecord {
	return OptimizationRecord{
		Action:      ActionCompressEntries,
		RemovedDays: r.RemovedDays,
		SavedBytes:  r.SavedBytes,
	}
}

type EmergencyResult struct {
	Retained      models.EntryStore
	RetainedDays  int
	RemovedDays   int
	RemovedCount  int
	SavedBytes    int64
	ThresholdDays int
}

func (r EmergencyResult) Record() OptimizationRecord {
	return OptimizationRecord{
		Action:        ActionEmergencyCleanup,
		ThresholdDays: r.ThresholdDays,
		RemovedCount:  r.RemovedCount,
		RemovedDays:   r.RemovedDays,
		RetainedDays:  r.RetainedDays,
		SavedBytes:    r.SavedBytes,
	}
}

// OptimizationRecord describes one applied compaction. Success is false when
// its commit failed.
type OptimizationRecord struct {
	Action        Action    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
	ThresholdDays int       `json:"thresholdDays,omitempty"`
	RemovedCount  int       `json:"removedCount,omitempty"`
	RemovedDays   int       `json:"removedDays,omitempty"`
	RetainedDays  int       `json:"retainedDays,omitempty"`
	SavedBytes    int64     `json:"savedBytes"`
	Success       bool      `json:"success"`
}

// Engine runs compactions against snapshots. It never touches a live store:
// every result is a fresh clone for the caller to commit, and the caller
// reports the outcome with Record.
type Engine struct {
	clock         utils.Clock
	cleanDays     int
	retentionDays int

	mu  sync.Mutex
	log []OptimizationRecord
}

type Option func(*Engine)

func WithClock(c utils.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithCleanThreshold sets the default age for CleanOldEntries.
func WithCleanThreshold(days int) Option {
	return func(e *Engine) { e.cleanDays = days }
}

// WithEmergencyRetention sets how many days EmergencyCleanup keeps.
func WithEmergencyRetention(days int) Option {
	return func(e *Engine) { e.retentionDays = days }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clock:         utils.SystemClock,
		cleanDays:     constants.DefaultCleanThresholdDays,
		retentionDays: constants.EmergencyRetentionDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CleanOldEntries drops every date older than thresholdDays. A threshold of
// zero or less uses the engine default.
func (e *Engine) CleanOldEntries(store models.EntryStore, thresholdDays int) CleanResult {
	if thresholdDays <= 0 {
		thresholdDays = e.cleanDays
	}
	cutoff := utils.CutoffDate(e.clock(), thresholdDays)

	res := CleanResult{Remaining: models.EntryStore{}}
	for date, day := range store {
		if date >= cutoff {
			res.Remaining[date] = day.Clone()
			continue
		}
		res.RemovedCount += day.EntryCount()
	}
	res.SavedBytes = savedBytes(store, res.Remaining)
	res.ThresholdDays = thresholdDays
	return res
}

// CompressEntries drops every date whose categories are all empty.
func (e *Engine) CompressEntries(store models.EntryStore) CompressResult {
	res := CompressResult{Compacted: models.EntryStore{}}
	for date, day := range store {
		if day.IsEmpty() {
			res.RemovedDays++
			continue
		}
		res.Compacted[date] = day.Clone()
	}
	res.SavedBytes = savedBytes(store, res.Compacted)
	return res
}

// EmergencyCleanup keeps only the retention window, dropping everything
// older regardless of content.
func (e *Engine) EmergencyCleanup(store models.EntryStore) EmergencyResult {
	logger.Warn("Emergency cleanup: keeping only recent days", "days", e.retentionDays)
	cutoff := utils.CutoffDate(e.clock(), e.retentionDays)

	res := EmergencyResult{Retained: models.EntryStore{}}
	for date, day := range store {
		if date >= cutoff {
			res.Retained[date] = day.Clone()
			continue
		}
		res.RemovedDays++
		res.RemovedCount += day.EntryCount()
	}
	res.RetainedDays = len(res.Retained)
	res.SavedBytes = savedBytes(store, res.Retained)
	res.ThresholdDays = e.retentionDays
	return res
}

// Log returns every recorded compaction, oldest first.
func (e *Engine) Log() []OptimizationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]OptimizationRecord, len(e.log))
	copy(out, e.log)
	return out
}

// Record stamps rec and appends it to the log.
func (e *Engine) Record(rec OptimizationRecord) {
	rec.Timestamp = e.clock()

	e.mu.Lock()
	e.log = append(e.log, rec)
	e.mu.Unlock()

	if !rec.Success {
		logger.Warn("Storage optimization failed", "action", rec.Action)
		return
	}
	logger.Info("Storage optimization",
		"action", rec.Action,
		"removed_count", rec.RemovedCount,
		"removed_days", rec.RemovedDays,
		"retained_days", rec.RetainedDays,
		"saved_bytes", rec.SavedBytes,
	)
}

func savedBytes(before, after models.EntryStore) int64 {
	b, _ := models.EncodeDocument(before)
	a, _ := models.EncodeDocument(after)
	return int64(len(b) - len(a))
}
