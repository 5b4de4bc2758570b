package eventstream

import "time"

// Event types emitted by the ingestion pipeline.
const (
	TypeDocumentIndexed = "document.indexed"
	TypeDocumentDeleted = "document.deleted"
)

// Event is the envelope published for every pipeline occurrence. Key is
// used for stream partitioning and is usually the document file name.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`

	// Payload is one of the *Event structs below, chosen by Type.
	Payload any `json:"payload"`
}

// DocumentIndexedEvent reports the outcome of indexing a single document.
type DocumentIndexedEvent struct {
	FileName        string `json:"file_name"`
	URL             string `json:"url"`
	TotalChunks     int    `json:"total_chunks"`
	SucceededChunks int    `json:"succeeded_chunks"`
	FailedChunks    int    `json:"failed_chunks"`
}

// DocumentDeletedEvent reports records removed from the index.
type DocumentDeletedEvent struct {
	// FileName is empty when the whole index was purged.
	FileName       string `json:"file_name,omitempty"`
	RecordsDeleted int    `json:"records_deleted"`
}

// NewDocumentIndexed wraps a DocumentIndexedEvent in its envelope.
func NewDocumentIndexed(payload DocumentIndexedEvent) Event {
	return Event{
		Type:       TypeDocumentIndexed,
		Key:        payload.FileName,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// NewDocumentDeleted wraps a DocumentDeletedEvent in its envelope.
func NewDocumentDeleted(payload DocumentDeletedEvent) Event {
	return Event{
		Type:       TypeDocumentDeleted,
		Key:        payload.FileName,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
