package models

import "strings"

// Tone is the display emphasis for a job status
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneError   Tone = "error"
	ToneNeutral Tone = "neutral"
)

// finalStatuses is the fixed membership set of terminal statuses. The
// backend reports statuses in both English and Portuguese depending on
// which service produced the job, so both vocabularies are covered.
// Matching is case-insensitive and whitespace-normalized.
var finalStatuses = map[string]struct{}{
	"completed": {}, "concluded": {}, "concluido": {}, "concluído": {},
	"concluida": {}, "concluída": {},
	"success": {}, "succeeded": {}, "sucesso": {},
	"failed": {}, "failure": {}, "falha": {}, "falhou": {},
	"error": {}, "erro": {},
	"cancelled": {}, "canceled": {}, "cancelado": {}, "cancelada": {},
}

// statusDisplay maps common statuses to their label and tone. Statuses
// outside this table render with a neutral tone and the raw string.
var statusDisplay = map[string]struct {
	label string
	tone  Tone
}{
	"pending":    {"Pending", ToneNeutral},
	"queued":     {"Queued", ToneNeutral},
	"running":    {"Running", ToneWarning},
	"processing": {"Processing", ToneWarning},
	"completed":  {"Completed", ToneSuccess},
	"concluded":  {"Completed", ToneSuccess},
	"concluido":  {"Completed", ToneSuccess},
	"concluído":  {"Completed", ToneSuccess},
	"concluida":  {"Completed", ToneSuccess},
	"concluída":  {"Completed", ToneSuccess},
	"success":    {"Succeeded", ToneSuccess},
	"succeeded":  {"Succeeded", ToneSuccess},
	"sucesso":    {"Succeeded", ToneSuccess},
	"failed":     {"Failed", ToneError},
	"failure":    {"Failed", ToneError},
	"falha":      {"Failed", ToneError},
	"falhou":     {"Failed", ToneError},
	"error":      {"Error", ToneError},
	"erro":       {"Error", ToneError},
	"cancelled":  {"Cancelled", ToneNeutral},
	"canceled":   {"Cancelled", ToneNeutral},
	"cancelado":  {"Cancelled", ToneNeutral},
	"cancelada":  {"Cancelled", ToneNeutral},
}

// normalizeStatus lowercases and collapses internal whitespace
func normalizeStatus(status string) string {
	return strings.ToLower(strings.Join(strings.Fields(status), " "))
}

// IsFinalStatus reports whether a raw status string is terminal.
// Unrecognized statuses are treated as non-final: an unknown status keeps
// the poller watching the job rather than silently abandoning it mid-flight.
func IsFinalStatus(status string) bool {
	_, ok := finalStatuses[normalizeStatus(status)]
	return ok
}

// StatusLabel returns the display label for a status, or the raw string
// when the status is outside the known vocabulary.
func StatusLabel(status string) string {
	if d, ok := statusDisplay[normalizeStatus(status)]; ok {
		return d.label
	}
	return status
}

// StatusTone returns the display tone for a status
func StatusTone(status string) Tone {
	if d, ok := statusDisplay[normalizeStatus(status)]; ok {
		return d.tone
	}
	return ToneNeutral
}
