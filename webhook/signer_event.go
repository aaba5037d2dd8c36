package webhook

import (
	"fmt"
	"time"
)

// SignerEventKind is one step in a signer's lifecycle as reported in a
// contract-signed callback.
type SignerEventKind int

// Signer lifecycle events.
const (
	ContractViewed SignerEventKind = iota + 1
	DisableReminders
	EmailContractSent
	EmailDeliveryFailed
	EmailFinalContractSent
	EmailSpamComplaint
	MobileUpdateRequest
	ReminderEmailed
	SignContract
	SignatureDeclined
	SMSContractSent
	SMSDeliveryFailed
	SMSFinalContractSent
)

var signerEventNames = [...]string{
	ContractViewed:         "contract_viewed",
	DisableReminders:       "disable_reminders",
	EmailContractSent:      "email_contract_sent",
	EmailDeliveryFailed:    "email_delivery_failed",
	EmailFinalContractSent: "email_final_contract_sent",
	EmailSpamComplaint:     "email_spam_complaint",
	MobileUpdateRequest:    "mobile_update_request",
	ReminderEmailed:        "reminder_emailed",
	SignContract:           "sign_contract",
	SignatureDeclined:      "signature_declined",
	SMSContractSent:        "sms_contract_sent",
	SMSDeliveryFailed:      "sms_delivery_failed",
	SMSFinalContractSent:   "sms_final_contract_sent",
}

// Valid reports whether k is a known lifecycle event.
func (k SignerEventKind) Valid() bool { return k >= ContractViewed && k <= SMSFinalContractSent }

// String returns the provider's wire string.
func (k SignerEventKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("SignerEventKind(%d)", int(k))
	}
	return signerEventNames[k]
}

// ParseSignerEventKind maps a provider lifecycle string to its kind.
func ParseSignerEventKind(s string) (SignerEventKind, error) {
	for k := ContractViewed; k <= SMSFinalContractSent; k++ {
		if signerEventNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedSignerEvent, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k SignerEventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("webhook: unknown signer event %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SignerEventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseSignerEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SignerEvent is one timestamped lifecycle step.
type SignerEvent struct {
	Kind      SignerEventKind `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
}
