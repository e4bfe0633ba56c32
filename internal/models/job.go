package models

import "time"

// Job origin values. The backend may return origins outside this set;
// unrecognized values are passed through verbatim.
const (
	OriginIndividual = "individual"
	OriginBulk       = "bulk"
	OriginUnknown    = "unknown"
)

// Job is one asynchronous partner-audit unit of work tracked by the engine.
// Status is an open vocabulary at the data-model level; finality is decided
// by the status classifier, not by this struct.
//
// CreatedAt and CompletedAt are opaque backend timestamps (ISO-8601 text);
// the engine never parses them. LastCheckedAt is stamped by the registry at
// upsert time and is never taken from a backend payload.
type Job struct {
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"`
	PartnerIDs    []string  `json:"partner_ids"`
	Origin        string    `json:"origin"`
	RequestedBy   string    `json:"requested_by,omitempty"`
	CreatedAt     string    `json:"created_at,omitempty"`
	CompletedAt   string    `json:"completed_at,omitempty"`
	Error         string    `json:"error,omitempty"`
	Payload       any       `json:"payload,omitempty"`
	Result        any       `json:"result,omitempty"`
	Raw           any       `json:"raw,omitempty"`
	LastCheckedAt time.Time `json:"last_checked_at,omitzero"`
}

// IsFinal reports whether the job's status is terminal
func (j *Job) IsFinal() bool {
	return IsFinalStatus(j.Status)
}

// Clone returns a copy of the job with its own partner ID slice.
// Payload, Result and Raw remain shared references; they are treated as
// read-only snapshots of backend data.
func (j *Job) Clone() Job {
	clone := *j
	if j.PartnerIDs != nil {
		clone.PartnerIDs = make([]string, len(j.PartnerIDs))
		copy(clone.PartnerIDs, j.PartnerIDs)
	}
	return clone
}
