package domain

import "time"

// HistoryRecord captures one completed invocation of the query operation.
type HistoryRecord struct {
	Timestamp    time.Time  `json:"timestamp"`
	InvocationID string     `json:"invocation_id"`
	Query        string     `json:"query"`
	Mode         OutputMode `json:"mode"`
	Retrieval    bool       `json:"retrieval"`
	Output       string     `json:"output"`
	SectionCount int        `json:"section_count"`
	ErrorKind    ErrorKind  `json:"error_kind,omitempty"`
	DurationMS   int64      `json:"duration_ms"`
}

// Succeeded reports whether the invocation ended without a failure.
func (r HistoryRecord) Succeeded() bool {
	return r.ErrorKind == ""
}
