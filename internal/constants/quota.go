package constants

const (
	// QuotaWarningPercent is the usage percentage at which a warning is shown.
	QuotaWarningPercent = 80.0
	// QuotaCriticalPercent is the usage percentage at which the quota is considered critical.
	QuotaCriticalPercent = 95.0
	// OptimizeThresholdPercent is the usage above which optimization is recommended.
	OptimizeThresholdPercent = 85.0
	// CompactThresholdPercent is the usage above which empty-day compaction is suggested.
	CompactThresholdPercent = 70.0

	// FallbackQuotaBytes is the ceiling assumed when the platform reports none (50 MiB).
	FallbackQuotaBytes int64 = 50 * 1024 * 1024

	// Retention windows, in days
	DefaultArchiveDays        = 30
	DefaultCleanThresholdDays = 90
	EmergencyRetentionDays    = 30
	MinArchiveDays            = 1
	MaxArchiveDays            = 365
)

// ArchiveDayPresets are the archive windows offered to the user.
var ArchiveDayPresets = []int{7, 14, 30, 60, 90}
