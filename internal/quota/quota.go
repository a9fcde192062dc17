// Package quota reports how close the persisted document is to its storage
// ceiling and decides which dates are old enough to archive.
package quota

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/logger"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/utils"
)

// Estimator reports bytes used and the storage ceiling. A zero capacity
// means the platform imposes none that it can report.
type Estimator interface {
	Usage(ctx context.Context) (used int64, capacity int64, err error)
}

// Persister asks the platform to keep driftlog's data durable.
type Persister interface {
	Persist(ctx context.Context) (bool, error)
}

type Source string

const (
	SourcePlatform Source = "platform"
	SourceFallback Source = "fallback"
)

type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Info is a point-in-time quota reading.
type Info struct {
	Usage       int64
	Quota       int64
	Percentage  float64
	ShowWarning bool
	Source      Source
}

// Level classifies the reading for display.
func (i Info) Level() Level {
	switch {
	case i.Percentage >= constants.QuotaCriticalPercent:
		return LevelCritical
	case i.Percentage >= constants.QuotaWarningPercent:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Partition splits a store at an age cutoff. The halves are disjoint and
// together hold every date of the input.
type Partition struct {
	ToArchive models.EntryStore
	ToKeep    models.EntryStore
}

type Monitor struct {
	estimator Estimator
	persister Persister
	timeout   time.Duration
	clock     utils.Clock
}

type Option func(*Monitor)

func WithEstimator(e Estimator) Option {
	return func(m *Monitor) { m.estimator = e }
}

func WithPersister(p Persister) Option {
	return func(m *Monitor) { m.persister = p }
}

func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

func WithClock(c utils.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		timeout: constants.QuotaProbeTimeout,
		clock:   utils.SystemClock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequestPersistentStorage asks the platform for durable storage. It never
// fails: any error is logged and reported as false.
func (m *Monitor) RequestPersistentStorage(ctx context.Context) bool {
	if m.persister == nil {
		return false
	}
	granted, err := m.persister.Persist(ctx)
	if err != nil {
		logger.Warn("Persistent storage request failed", "error", err)
		return false
	}
	logger.Debug("Persistent storage requested", "granted", granted)
	return granted
}

// CheckQuota combines the platform estimate with the document's own size.
// The probe is bounded by the monitor timeout and reads as zero usage when
// it fails or times out.
func (m *Monitor) CheckQuota(ctx context.Context, doc models.EntryStore) Info {
	var (
		used, capacity int64
		docSize        int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		used, capacity = m.probe(gctx)
		return nil
	})
	g.Go(func() error {
		docSize = CalculateDataSize(doc)
		return nil
	})
	_ = g.Wait()

	info := Info{
		Usage:  max(used, docSize),
		Quota:  capacity,
		Source: SourcePlatform,
	}
	if info.Quota <= 0 {
		info.Quota = constants.FallbackQuotaBytes
		info.Source = SourceFallback
	}
	info.Percentage = float64(info.Usage) / float64(info.Quota) * 100
	info.ShowWarning = info.Percentage >= constants.QuotaWarningPercent

	logger.Debug("Quota checked",
		"usage", info.Usage,
		"quota", info.Quota,
		"percentage", info.Percentage,
		"source", info.Source,
	)
	return info
}

type probeResult struct {
	used, capacity int64
	err            error
}

func (m *Monitor) probe(ctx context.Context) (int64, int64) {
	if m.estimator == nil {
		return 0, 0
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	ch := make(chan probeResult, 1)
	go func() {
		used, capacity, err := m.estimator.Usage(ctx)
		ch <- probeResult{used: used, capacity: capacity, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			logger.Warn("Storage estimate failed", "error", r.err)
			return 0, 0
		}
		return r.used, r.capacity
	case <-ctx.Done():
		logger.Warn("Storage estimate timed out", "timeout", m.timeout)
		return 0, 0
	}
}

// GetArchivableEntries partitions store at today minus days using the
// monitor's clock.
func (m *Monitor) GetArchivableEntries(store models.EntryStore, days int) Partition {
	return GetArchivableEntries(store, days, m.clock())
}

// GetArchivableEntries puts every date strictly before now minus days into
// ToArchive and everything else into ToKeep. Both halves are clones.
func GetArchivableEntries(store models.EntryStore, days int, now time.Time) Partition {
	cutoff := utils.CutoffDate(now, days)
	p := Partition{
		ToArchive: models.EntryStore{},
		ToKeep:    models.EntryStore{},
	}
	for date, day := range store {
		if date < cutoff {
			p.ToArchive[date] = day.Clone()
		} else {
			p.ToKeep[date] = day.Clone()
		}
	}
	return p
}

// CalculateDataSize is the byte length of the document's canonical encoding.
func CalculateDataSize(doc models.EntryStore) int64 {
	data, err := models.EncodeDocument(doc)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// FormatBytes renders a byte count for display, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}
