package models

// ExportEnvelope wraps a full export of the store.
type ExportEnvelope struct {
	ExportedAt string     `json:"exportedAt"`
	Data       EntryStore `json:"data"`
}

// ArchiveEnvelope is an export of the dates removed by an archive operation.
type ArchiveEnvelope struct {
	ExportedAt    string     `json:"exportedAt"`
	Data          EntryStore `json:"data"`
	ArchivedCount int        `json:"archivedCount"`
}
