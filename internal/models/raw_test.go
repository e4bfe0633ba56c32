package models

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalize_FieldPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawJob
		defaults Job
		expected Job
	}{
		{
			name: "raw values win over defaults",
			raw: RawJob{
				"jobId":       "J1",
				"status":      "running",
				"origin":      "individual",
				"partnerIds":  []any{"P1", "P2"},
				"requestedBy": "ops",
			},
			defaults: Job{
				JobID:       "ignored",
				Status:      "queued",
				Origin:      OriginBulk,
				PartnerIDs:  []string{"X"},
				RequestedBy: "someone-else",
			},
			expected: Job{
				JobID:       "J1",
				Status:      "running",
				Origin:      "individual",
				PartnerIDs:  []string{"P1", "P2"},
				RequestedBy: "ops",
			},
		},
		{
			name: "defaults fill missing raw fields",
			raw:  RawJob{"id": "J2"},
			defaults: Job{
				Status:      "queued",
				Origin:      OriginIndividual,
				PartnerIDs:  []string{"P9"},
				RequestedBy: "admin",
			},
			expected: Job{
				JobID:       "J2",
				Status:      "queued",
				Origin:      OriginIndividual,
				PartnerIDs:  []string{"P9"},
				RequestedBy: "admin",
			},
		},
		{
			name:     "hard-coded fallbacks when raw and defaults are empty",
			raw:      RawJob{"jobId": "J3"},
			defaults: Job{},
			expected: Job{
				JobID:      "J3",
				Status:     "pending",
				Origin:     OriginUnknown,
				PartnerIDs: []string{},
			},
		},
		{
			name: "snake_case aliases accepted",
			raw: RawJob{
				"job_id":       "J4",
				"partner_ids":  []any{"P1"},
				"requested_by": "maria",
				"created_at":   "2026-08-01T10:00:00Z",
				"completed_at": "2026-08-01T10:05:00Z",
			},
			defaults: Job{},
			expected: Job{
				JobID:       "J4",
				Status:      "pending",
				Origin:      OriginUnknown,
				PartnerIDs:  []string{"P1"},
				RequestedBy: "maria",
				CreatedAt:   "2026-08-01T10:00:00Z",
				CompletedAt: "2026-08-01T10:05:00Z",
			},
		},
		{
			name: "unrecognized origin passes through verbatim",
			raw:  RawJob{"jobId": "J5", "origin": "scheduled"},
			expected: Job{
				JobID:      "J5",
				Status:     "pending",
				Origin:     "scheduled",
				PartnerIDs: []string{},
			},
		},
		{
			name: "error aliases checked in order",
			raw:  RawJob{"jobId": "J6", "errorMessage": "partner not found"},
			expected: Job{
				JobID:      "J6",
				Status:     "pending",
				Origin:     OriginUnknown,
				PartnerIDs: []string{},
				Error:      "partner not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Normalize(tt.raw, tt.defaults)
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}

			// Raw retention is checked separately
			job.Raw = nil

			if !reflect.DeepEqual(job, tt.expected) {
				t.Errorf("Normalize mismatch:\n got: %+v\nwant: %+v", job, tt.expected)
			}
		})
	}
}

func TestNormalize_MissingJobID(t *testing.T) {
	_, err := Normalize(RawJob{"status": "running"}, Job{})
	if !errors.Is(err, ErrMissingJobID) {
		t.Fatalf("Expected ErrMissingJobID, got %v", err)
	}
}

func TestNormalize_JobIDFromDefaults(t *testing.T) {
	job, err := Normalize(RawJob{"status": "completed"}, Job{JobID: "J7"})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if job.JobID != "J7" {
		t.Errorf("Expected jobID J7, got %q", job.JobID)
	}
}

func TestNormalize_RetainsRawPayload(t *testing.T) {
	raw := RawJob{"jobId": "J8", "status": "queued", "extra": 42}
	job, err := Normalize(raw, Job{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	rawMap, ok := job.Raw.(map[string]any)
	if !ok {
		t.Fatalf("Expected raw payload to be retained as a map, got %T", job.Raw)
	}
	if rawMap["extra"] != 42 {
		t.Errorf("Expected raw payload to retain extra field")
	}
}

func TestNormalize_LastCheckedAtNeverFromRaw(t *testing.T) {
	raw := RawJob{"jobId": "J9", "lastCheckedAt": "2020-01-01T00:00:00Z"}
	job, err := Normalize(raw, Job{})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if !job.LastCheckedAt.IsZero() {
		t.Errorf("Expected zero LastCheckedAt, got %v", job.LastCheckedAt)
	}
}

func TestNormalize_PureFunction(t *testing.T) {
	raw := RawJob{"jobId": "J10", "partnerIds": []any{"P1"}}
	defaults := Job{PartnerIDs: []string{"D1"}}

	job, err := Normalize(raw, defaults)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}

	job.PartnerIDs[0] = "mutated"
	if raw["partnerIds"].([]any)[0] != "P1" {
		t.Errorf("Normalize must not share slices with raw input")
	}
	if defaults.PartnerIDs[0] != "D1" {
		t.Errorf("Normalize must not mutate defaults")
	}
}
