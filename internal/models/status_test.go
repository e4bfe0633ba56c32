package models

import "testing"

func TestIsFinalStatus(t *testing.T) {
	nonFinal := []string{
		"pending", "queued", "running", "processing",
		"PENDING", " Running ", "aguardando", "some-new-status", "",
	}
	for _, status := range nonFinal {
		if IsFinalStatus(status) {
			t.Errorf("Expected %q to be non-final", status)
		}
	}

	final := []string{
		"completed", "COMPLETED", "Concluded", "concluido", "concluído",
		"success", "Sucesso", "failed", "FALHOU", "error", "Erro",
		"cancelled", "canceled", "Cancelado", " completed ",
	}
	for _, status := range final {
		if !IsFinalStatus(status) {
			t.Errorf("Expected %q to be final", status)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{"pending", "Pending"},
		{"RUNNING", "Running"},
		{"completed", "Completed"},
		{"concluído", "Completed"},
		{"sucesso", "Succeeded"},
		{"falhou", "Failed"},
		{"erro", "Error"},
		{"cancelado", "Cancelled"},
		{"weird-status", "weird-status"},
	}

	for _, tt := range tests {
		if got := StatusLabel(tt.status); got != tt.expected {
			t.Errorf("StatusLabel(%q) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestStatusTone(t *testing.T) {
	tests := []struct {
		status   string
		expected Tone
	}{
		{"completed", ToneSuccess},
		{"sucesso", ToneSuccess},
		{"running", ToneWarning},
		{"processing", ToneWarning},
		{"failed", ToneError},
		{"erro", ToneError},
		{"pending", ToneNeutral},
		{"cancelled", ToneNeutral},
		{"unmapped", ToneNeutral},
	}

	for _, tt := range tests {
		if got := StatusTone(tt.status); got != tt.expected {
			t.Errorf("StatusTone(%q) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestJobIsFinal(t *testing.T) {
	job := Job{JobID: "J1", Status: "running"}
	if job.IsFinal() {
		t.Error("Expected running job to be non-final")
	}

	job.Status = "Completed"
	if !job.IsFinal() {
		t.Error("Expected completed job to be final")
	}
}

func TestJobClone(t *testing.T) {
	job := Job{
		JobID:      "J1",
		Status:     "running",
		PartnerIDs: []string{"P1", "P2"},
	}

	clone := job.Clone()
	clone.PartnerIDs[0] = "mutated"

	if job.PartnerIDs[0] != "P1" {
		t.Error("Clone must not share the partner ID slice")
	}
}
