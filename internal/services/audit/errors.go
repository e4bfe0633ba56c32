package audit

import (
	"errors"

	"github.com/parceirolabs/auditrecon/internal/partnerapi"
)

// FailureKind is the recovery taxonomy for failed dispatcher operations.
type FailureKind string

const (
	// FailureAuthExpired means the backend rejected the bearer token; the
	// session must be re-established before further operations succeed.
	FailureAuthExpired FailureKind = "auth_expired"

	// FailureForbidden means the caller lacks permission; retrying is pointless.
	FailureForbidden FailureKind = "forbidden"

	// FailureUnsupported means the operation is not available on the current
	// backend version (reprocess/cancel endpoint missing).
	FailureUnsupported FailureKind = "unsupported"

	// FailureGeneric covers every other failure, surfacing the backend
	// message when one exists.
	FailureGeneric FailureKind = "generic"
)

// Op identifies the dispatcher operation that failed. The classifier only
// distinguishes reprocess/cancel (where a 404 means "not implemented on
// this backend" rather than "job not found").
type Op string

const (
	OpTriggerIndividual Op = "trigger_individual"
	OpTriggerBulk       Op = "trigger_bulk"
	OpFetchStatus       Op = "fetch_status"
	OpReprocess         Op = "reprocess"
	OpCancel            Op = "cancel"
)

// Fixed user-facing messages for the non-generic kinds.
const (
	msgAuthExpired = "Your session has expired. Please sign in again."
	msgForbidden   = "You are not authorized to perform this action."
	msgUnsupported = "This operation is not supported by the current backend version."
)

// Failure is a classified dispatcher error carrying a user-facing message.
type Failure struct {
	Kind    FailureKind
	Op      Op
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Classify maps a dispatcher error to the failure taxonomy. fallback is the
// operation-specific default message used when the backend provides none
// (including network-level failures with no response at all).
func Classify(err error, op Op, fallback string) *Failure {
	var apiErr *partnerapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401:
			return &Failure{Kind: FailureAuthExpired, Op: op, Message: msgAuthExpired}
		case apiErr.StatusCode == 403:
			return &Failure{Kind: FailureForbidden, Op: op, Message: msgForbidden}
		case apiErr.StatusCode == 404 && (op == OpReprocess || op == OpCancel):
			return &Failure{Kind: FailureUnsupported, Op: op, Message: msgUnsupported}
		}

		message := apiErr.BackendMessage()
		if message == "" {
			message = fallback
		}
		return &Failure{Kind: FailureGeneric, Op: op, Message: message}
	}

	return &Failure{Kind: FailureGeneric, Op: op, Message: fallback}
}
