package constants

import "time"

const (
	AppName            = "driftlog"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/driftlog"
	DefaultDBPath      = "~/.config/driftlog/driftlog.db"
	DefaultConfigFile  = "~/.config/driftlog/config.yaml"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DisplayTimeFormat is the entry timestamp shown next to a captured thought (e.g. "3:04 PM")
	DisplayTimeFormat = "3:04 PM"

	// ExportTimeFormat stamps exports and archives (millisecond ISO-8601, UTC)
	ExportTimeFormat = "2006-01-02T15:04:05.000Z07:00"

	// DocumentKey is the single key under which the entire entry store is persisted
	DocumentKey = "all-entries"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "driftlog-"
	BackupFileSuffix = ".db"

	// Archive bundle constants
	ArchiveDirName          = "archives"
	ArchiveFilePrefix       = "driftlog-archive-"
	ArchiveFileSuffix       = ".json"
	ArchiveCompressedSuffix = ".json.sz"

	// Lock constants
	LockfileName = "driftlog.lock"
)

// QuotaProbeTimeout caps how long a storage estimate may take before falling back to zero usage.
const QuotaProbeTimeout = time.Second
