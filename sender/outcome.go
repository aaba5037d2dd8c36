package sender

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/signer"
)

// Outcome is the result of one submission: exactly one of *Accepted,
// *Rejected, *Failed or *Cancelled.
type Outcome interface {
	// Kind returns a short lower-case name used in logs and metrics.
	Kind() string
	isOutcome()
}

// Accepted means the provider created the contract. Signers are the
// request's signers with their provider IDs attached.
type Accepted struct {
	ContractID uuid.UUID
	Signers    []signer.Signer
}

// Rejected means the provider answered with a non-200 status.
type Rejected struct {
	StatusCode int
	Reason     string
}

// Failed means the exchange could not be completed or its response could
// not be understood.
type Failed struct {
	Err error
}

// Cancelled means the caller's context ended before the response was
// processed. The request may still have reached the provider.
type Cancelled struct{}

func (*Accepted) Kind() string  { return "accepted" }
func (*Rejected) Kind() string  { return "rejected" }
func (*Failed) Kind() string    { return "failed" }
func (*Cancelled) Kind() string { return "cancelled" }

func (*Accepted) isOutcome()  {}
func (*Rejected) isOutcome()  {}
func (*Failed) isOutcome()    {}
func (*Cancelled) isOutcome() {}

// Error implements error so a Failed outcome can be returned or wrapped.
func (f *Failed) Error() string { return "sender: submission failed: " + f.Err.Error() }

// Unwrap returns the underlying error.
func (f *Failed) Unwrap() error { return f.Err }

func rejected(resp *http.Response) *Rejected {
	reason := http.StatusText(resp.StatusCode)
	if len(resp.Status) > 4 {
		reason = resp.Status[4:]
	}
	return &Rejected{StatusCode: resp.StatusCode, Reason: reason}
}
