package tracker

// Event is one observed request as handed over by the instrumentation
// boundary. The timestamp is assigned by the Recorder at ingestion, never by
// the caller. Optional measurements are pointers so absence is distinguishable
// from zero.
type Event struct {
	Method         string `json:"method"`
	Path           string `json:"path"`
	StatusCode     int    `json:"status_code"`
	ResponseTimeMs *int64 `json:"response_time_ms,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	ClientIP       string `json:"ip,omitempty"`
	MemoryBytes    *int64 `json:"memory_bytes,omitempty"`
	CPUTicks       *int64 `json:"cpu_ticks,omitempty"`
}

// StoredEvent is the serialized form kept in the raw sample list. It carries
// the normalized key and the ingestion timestamp in epoch milliseconds.
type StoredEvent struct {
	Method         string `json:"method"`
	Path           string `json:"path"`
	Timestamp      int64  `json:"timestamp"`
	StatusCode     int    `json:"status_code"`
	ResponseTimeMs *int64 `json:"response_time_ms,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	ClientIP       string `json:"ip,omitempty"`
	MemoryBytes    *int64 `json:"memory_bytes,omitempty"`
	CPUTicks       *int64 `json:"cpu_ticks,omitempty"`
}

// Int64 is a convenience for building optional event fields.
func Int64(v int64) *int64 {
	return &v
}
