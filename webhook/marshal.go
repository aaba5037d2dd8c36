package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// busEvent is the normalized JSON form published to the message bus.
type busEvent struct {
	Kind         Kind           `json:"kind"`
	ContractID   uuid.UUID      `json:"contract_id"`
	Metadata     string         `json:"metadata,omitempty"`
	Signer       *Signer        `json:"signer,omitempty"`
	NewMobile    string         `json:"mobile_new,omitempty"`
	Signers      []Signer       `json:"signers,omitempty"`
	Signed       []SignedSigner `json:"signed_by,omitempty"`
	PDFURL       string         `json:"contract_pdf_url,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Marshal renders e in the normalized form relayed to consumers. The
// metadata is carried as the exact string the provider echoed back.
func Marshal(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("webhook: marshal nil event")
	}

	out := busEvent{
		Kind:       e.Kind(),
		ContractID: e.ContractID(),
		Metadata:   e.RawMeta(),
	}

	switch ev := e.(type) {
	case *ContractSent:
		out.Signer = &ev.Signer
	case *SignerViewed:
		out.Signer = &ev.Signer
	case *SignerSigned:
		out.Signer = &ev.Signer
	case *SignerDeclined:
		out.Signer = &ev.Signer
	case *MobileUpdate:
		out.Signer = &ev.Signer
		out.NewMobile = ev.NewMobile
	case *ContractWithdrawn:
		out.Signers = ev.Signers
	case *WebHookError:
		out.ErrorCode = ev.Code
		out.ErrorMessage = ev.Message
	case *ContractSigned:
		out.PDFURL = ev.PDFURL
		out.Signed = ev.Signers
	default:
		return nil, fmt.Errorf("webhook: marshal unknown event %T", e)
	}

	return json.Marshal(out)
}
