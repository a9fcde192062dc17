package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/driftlog/internal/constants"
	"github.com/julianstephens/driftlog/internal/models"
	"github.com/julianstephens/driftlog/internal/utils"
)

type fakeEstimator struct {
	used, capacity int64
	err            error
	delay          time.Duration
}

func (f fakeEstimator) Usage(ctx context.Context) (int64, int64, error) {
	if f.delay > 0 {
		// Deliberately ignores ctx to prove the monitor bounds the probe itself.
		time.Sleep(f.delay)
	}
	return f.used, f.capacity, f.err
}

type fakePersister struct {
	granted bool
	err     error
}

func (f fakePersister) Persist(ctx context.Context) (bool, error) {
	return f.granted, f.err
}

func sampleStore() models.EntryStore {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	day := models.NewDayRecord()
	day[models.CategoryWork] = append(day[models.CategoryWork], models.NewEntry("write the report", now))
	return models.EntryStore{"2024-06-01": day}
}

func TestCheckQuota(t *testing.T) {
	doc := sampleStore()
	docSize := CalculateDataSize(doc)

	tests := []struct {
		name       string
		estimator  Estimator
		wantUsage  int64
		wantQuota  int64
		wantSource Source
	}{
		{
			name:       "platform ceiling",
			estimator:  fakeEstimator{used: 4000, capacity: 10000},
			wantUsage:  4000,
			wantQuota:  10000,
			wantSource: SourcePlatform,
		},
		{
			name:       "document larger than platform usage",
			estimator:  fakeEstimator{used: 1, capacity: 10000},
			wantUsage:  docSize,
			wantQuota:  10000,
			wantSource: SourcePlatform,
		},
		{
			name:       "no ceiling falls back",
			estimator:  fakeEstimator{used: 4000},
			wantUsage:  4000,
			wantQuota:  constants.FallbackQuotaBytes,
			wantSource: SourceFallback,
		},
		{
			name:       "estimate failure reads as zero",
			estimator:  fakeEstimator{used: 4000, capacity: 10000, err: errors.New("boom")},
			wantUsage:  docSize,
			wantQuota:  constants.FallbackQuotaBytes,
			wantSource: SourceFallback,
		},
		{
			name:       "no estimator",
			estimator:  nil,
			wantUsage:  docSize,
			wantQuota:  constants.FallbackQuotaBytes,
			wantSource: SourceFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(WithEstimator(tt.estimator))
			info := m.CheckQuota(context.Background(), doc)
			if info.Usage != tt.wantUsage {
				t.Errorf("Usage = %d, want %d", info.Usage, tt.wantUsage)
			}
			if info.Quota != tt.wantQuota {
				t.Errorf("Quota = %d, want %d", info.Quota, tt.wantQuota)
			}
			if info.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", info.Source, tt.wantSource)
			}
			want := float64(tt.wantUsage) / float64(tt.wantQuota) * 100
			if info.Percentage != want {
				t.Errorf("Percentage = %v, want %v", info.Percentage, want)
			}
		})
	}
}

func TestCheckQuotaProbeTimeout(t *testing.T) {
	doc := sampleStore()
	m := NewMonitor(
		WithEstimator(fakeEstimator{used: 4000, capacity: 10000, delay: 2 * time.Second}),
		WithTimeout(20*time.Millisecond),
	)

	start := time.Now()
	info := m.CheckQuota(context.Background(), doc)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("CheckQuota took %v, want it bounded by the probe timeout", elapsed)
	}
	if info.Usage != CalculateDataSize(doc) {
		t.Errorf("Usage = %d, want document size %d after timeout", info.Usage, CalculateDataSize(doc))
	}
	if info.Source != SourceFallback {
		t.Errorf("Source = %q, want fallback after timeout", info.Source)
	}
}

func TestShowWarningAndLevel(t *testing.T) {
	tests := []struct {
		used        int64
		wantWarning bool
		wantLevel   Level
	}{
		{used: 0, wantWarning: false, wantLevel: LevelNormal},
		{used: 7999, wantWarning: false, wantLevel: LevelNormal},
		{used: 8000, wantWarning: true, wantLevel: LevelWarning},
		{used: 9499, wantWarning: true, wantLevel: LevelWarning},
		{used: 9500, wantWarning: true, wantLevel: LevelCritical},
		{used: 12000, wantWarning: true, wantLevel: LevelCritical},
	}

	for _, tt := range tests {
		m := NewMonitor(WithEstimator(fakeEstimator{used: tt.used, capacity: 10000}))
		info := m.CheckQuota(context.Background(), models.EntryStore{})
		if info.ShowWarning != tt.wantWarning {
			t.Errorf("used=%d: ShowWarning = %v, want %v", tt.used, info.ShowWarning, tt.wantWarning)
		}
		if got := info.Level(); got != tt.wantLevel {
			t.Errorf("used=%d: Level() = %q, want %q", tt.used, got, tt.wantLevel)
		}
	}
}

func TestRequestPersistentStorage(t *testing.T) {
	ctx := context.Background()
	if NewMonitor().RequestPersistentStorage(ctx) {
		t.Error("RequestPersistentStorage() without a persister = true, want false")
	}
	if NewMonitor(WithPersister(fakePersister{err: errors.New("denied")})).RequestPersistentStorage(ctx) {
		t.Error("RequestPersistentStorage() on error = true, want false")
	}
	if !NewMonitor(WithPersister(fakePersister{granted: true})).RequestPersistentStorage(ctx) {
		t.Error("RequestPersistentStorage() = false, want true")
	}
}

func TestGetArchivableEntries(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	store := models.EntryStore{
		"2023-12-01": models.NewDayRecord(),
		"2024-02-08": models.NewDayRecord(),
		"2024-02-09": models.NewDayRecord(),
		"2024-03-10": models.NewDayRecord(),
	}

	p := GetArchivableEntries(store, 30, now)

	for _, date := range []string{"2023-12-01", "2024-02-08"} {
		if _, ok := p.ToArchive[date]; !ok {
			t.Errorf("%s should be archivable", date)
		}
	}
	for _, date := range []string{"2024-02-09", "2024-03-10"} {
		if _, ok := p.ToKeep[date]; !ok {
			t.Errorf("%s should be kept", date)
		}
	}

	m := NewMonitor(WithClock(utils.FixedClock(now)))
	viaMonitor := m.GetArchivableEntries(store, 30)
	if len(viaMonitor.ToArchive) != len(p.ToArchive) {
		t.Errorf("monitor partition differs: %d vs %d archivable", len(viaMonitor.ToArchive), len(p.ToArchive))
	}
}

func TestGetArchivableEntriesDisjointAndExhaustive(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	store := models.EntryStore{}
	start := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	for d := start; !d.After(now); d = d.AddDate(0, 0, 3) {
		store[d.Format(constants.DateFormat)] = models.NewDayRecord()
	}

	for _, days := range []int{1, 7, 30, 90, 365} {
		p := GetArchivableEntries(store, days, now)
		if len(p.ToArchive)+len(p.ToKeep) != len(store) {
			t.Errorf("days=%d: %d + %d != %d", days, len(p.ToArchive), len(p.ToKeep), len(store))
		}
		for date := range p.ToArchive {
			if _, dup := p.ToKeep[date]; dup {
				t.Errorf("days=%d: %s in both halves", days, date)
			}
		}
	}
}

func TestGetArchivableEntriesClones(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	store := sampleStore()
	p := GetArchivableEntries(store, 30, now)
	p.ToArchive["2024-06-01"] = nil
	p.ToKeep["2024-06-01"][models.CategoryWork][0].Text = "changed"

	if store["2024-06-01"].Entries(models.CategoryWork)[0].Text != "write the report" {
		t.Error("partition shares entries with its input")
	}
}

func TestCalculateDataSize(t *testing.T) {
	if got := CalculateDataSize(models.EntryStore{}); got != 2 {
		t.Errorf("CalculateDataSize(empty) = %d, want 2", got)
	}
	if got := CalculateDataSize(nil); got != 2 {
		t.Errorf("CalculateDataSize(nil) = %d, want 2", got)
	}
	data, _ := models.EncodeDocument(sampleStore())
	if got := CalculateDataSize(sampleStore()); got != int64(len(data)) {
		t.Errorf("CalculateDataSize() = %d, want %d", got, len(data))
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{50 * 1024 * 1024, "50 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
