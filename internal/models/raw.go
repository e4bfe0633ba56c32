package models

import "errors"

// ErrMissingJobID is returned when a backend payload carries no job
// identifier and no default supplies one. This is the only hard failure in
// the normalization pipeline and must abort the upsert.
var ErrMissingJobID = errors.New("missing job identifier in audit response")

// RawJob is an untyped job representation as returned by the backend.
// The backend is not consistent about field names or shapes, so RawJob is
// consumed only by Normalize through the alias tables below and never
// leaks into the Job type.
type RawJob map[string]any

// Field name aliases accepted from backend payloads. The backend mixes
// camelCase and snake_case depending on which service produced the response.
var (
	jobIDKeys       = []string{"jobId", "id", "job_id"}
	statusKeys      = []string{"status"}
	partnerIDKeys   = []string{"partnerIds", "partner_ids"}
	originKeys      = []string{"origin"}
	requestedByKeys = []string{"requestedBy", "requested_by"}
	createdAtKeys   = []string{"createdAt", "created_at"}
	completedAtKeys = []string{"completedAt", "completed_at"}
	errorKeys       = []string{"error", "errorMessage", "message"}
	payloadKeys     = []string{"payload"}
	resultKeys      = []string{"result"}
)

// Normalize converts an arbitrary backend payload into a canonical Job.
// Every field follows a three-tier precedence: explicit value in raw
// (checking the key aliases) -> value in defaults -> hard-coded fallback.
// The one exception is LastCheckedAt, which is stamped by the registry at
// upsert time and never read from the payload.
//
// Normalize is pure: it does not mutate raw or defaults.
func Normalize(raw RawJob, defaults Job) (Job, error) {
	job := Job{
		JobID:       firstString(raw, jobIDKeys, defaults.JobID),
		Status:      firstString(raw, statusKeys, defaults.Status),
		PartnerIDs:  stringSlice(raw, partnerIDKeys, defaults.PartnerIDs),
		Origin:      firstString(raw, originKeys, defaults.Origin),
		RequestedBy: firstString(raw, requestedByKeys, defaults.RequestedBy),
		CreatedAt:   firstString(raw, createdAtKeys, defaults.CreatedAt),
		CompletedAt: firstString(raw, completedAtKeys, defaults.CompletedAt),
		Error:       firstString(raw, errorKeys, defaults.Error),
		Payload:     firstAny(raw, payloadKeys, defaults.Payload),
		Result:      firstAny(raw, resultKeys, defaults.Result),
		Raw:         defaults.Raw,
	}

	if job.JobID == "" {
		return Job{}, ErrMissingJobID
	}

	if job.Status == "" {
		job.Status = "pending"
	}
	if job.Origin == "" {
		job.Origin = OriginUnknown
	}
	if job.PartnerIDs == nil {
		job.PartnerIDs = []string{}
	}
	if len(raw) > 0 {
		job.Raw = map[string]any(raw)
	}

	return job, nil
}

// firstString returns the first non-empty string value found under the
// given keys, falling back to def.
func firstString(raw RawJob, keys []string, def string) string {
	for _, key := range keys {
		if val, ok := raw[key]; ok {
			if s, ok := val.(string); ok && s != "" {
				return s
			}
		}
	}
	return def
}

// firstAny returns the first non-nil value found under the given keys,
// falling back to def.
func firstAny(raw RawJob, keys []string, def any) any {
	for _, key := range keys {
		if val, ok := raw[key]; ok && val != nil {
			return val
		}
	}
	return def
}

// stringSlice returns the first value under the given keys coerced to a
// string slice. JSON decoding yields []interface{}, so both shapes are
// accepted. Order is preserved; non-string elements are skipped.
func stringSlice(raw RawJob, keys []string, def []string) []string {
	for _, key := range keys {
		val, ok := raw[key]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case []string:
			out := make([]string, len(v))
			copy(out, v)
			return out
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	if def == nil {
		return nil
	}
	out := make([]string, len(def))
	copy(out, def)
	return out
}
