package webhook

import (
	"strings"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/metadata"
)

// Event is a parsed provider callback. The concrete type is one of
// *ContractSent, *SignerViewed, *SignerSigned, *SignerDeclined,
// *ContractWithdrawn, *MobileUpdate, *WebHookError or *ContractSigned.
type Event interface {
	Kind() Kind
	ContractID() uuid.UUID
	// Meta returns the decoded metadata echoed back by the provider. It is
	// never nil; a callback without metadata yields an empty set.
	Meta() *metadata.Metadata
	// RawMeta returns the metadata string exactly as received.
	RawMeta() string

	isEvent()
}

// header holds the fields every variant shares.
type header struct {
	contractID uuid.UUID
	meta       *metadata.Metadata
	rawMeta    string
}

func (h header) ContractID() uuid.UUID      { return h.contractID }
func (h header) Meta() *metadata.Metadata   { return h.meta }
func (h header) RawMeta() string            { return h.rawMeta }
func (header) isEvent()                     {}

// Signer is the signer record carried by a callback.
type Signer struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name,omitempty"`
	Email  string    `json:"email,omitempty"`
	Mobile string    `json:"mobile,omitempty"`
}

// SignedSigner is a signer of a completed contract together with its
// lifecycle history and any field values captured while signing.
type SignedSigner struct {
	Signer
	Events      []SignerEvent     `json:"events"`
	FieldValues map[string]string `json:"field_values,omitempty"`
}

// ContractSent reports that the contract was sent to a signer.
type ContractSent struct {
	header
	Signer Signer
}

// SignerViewed reports that a signer opened the contract.
type SignerViewed struct {
	header
	Signer Signer
}

// SignerSigned reports that one signer signed.
type SignerSigned struct {
	header
	Signer Signer
}

// SignerDeclined reports that a signer declined to sign.
type SignerDeclined struct {
	header
	Signer Signer
}

// ContractWithdrawn reports that the contract was withdrawn before
// completion.
type ContractWithdrawn struct {
	header
	Signers []Signer
}

// MobileUpdate reports a signer's request to change their mobile number.
type MobileUpdate struct {
	header
	Signer    Signer
	NewMobile string
}

// WebHookError is the provider's own error notification.
type WebHookError struct {
	header
	Code    string
	Message string
}

// ContractSigned reports that every signer has signed. PDFURL is already
// URL-decoded.
type ContractSigned struct {
	header
	PDFURL  string
	Signers []SignedSigner
}

// BlobKey returns the key under which the raw payload is archived.
func (e *ContractSigned) BlobKey() string {
	return "Signed/" + strings.ReplaceAll(e.contractID.String(), "-", "") + ".json"
}

func (*ContractSent) Kind() Kind      { return KindContractSent }
func (*SignerViewed) Kind() Kind      { return KindSignerViewed }
func (*SignerSigned) Kind() Kind      { return KindSignerSigned }
func (*SignerDeclined) Kind() Kind    { return KindSignerDeclined }
func (*ContractWithdrawn) Kind() Kind { return KindContractWithdrawn }
func (*MobileUpdate) Kind() Kind      { return KindMobileUpdate }
func (*WebHookError) Kind() Kind      { return KindWebHookError }
func (*ContractSigned) Kind() Kind    { return KindContractSigned }

// Subject returns the human-readable label used when relaying e,
// e.g. "ContractSigned (6f1c...)".
func Subject(e Event) string {
	return e.Kind().String() + " (" + e.ContractID().String() + ")"
}
