package webhook

import "fmt"

// Kind identifies the event variant selected by a callback's status.
type Kind int

// Event kinds. The zero value is not a kind.
const (
	KindContractSent Kind = iota + 1
	KindContractSigned
	KindContractWithdrawn
	KindMobileUpdate
	KindSignerDeclined
	KindSignerSigned
	KindSignerViewed
	KindWebHookError
)

// kinds is the single mapping between kinds, their names and the
// provider's status strings.
var kinds = []struct {
	kind   Kind
	name   string
	status string
}{
	{KindContractSent, "ContractSent", "contract-sent-to-signer"},
	{KindContractSigned, "ContractSigned", "contract-signed"},
	{KindContractWithdrawn, "ContractWithdrawn", "contract-withdrawn"},
	{KindMobileUpdate, "MobileUpdate", "signer-mobile-update-request"},
	{KindSignerDeclined, "SignerDeclined", "signer-declined"},
	{KindSignerSigned, "SignerSigned", "signer-signed"},
	{KindSignerViewed, "SignerViewed", "signer-viewed-the-contract"},
	{KindWebHookError, "WebHookError", "error"},
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i, k := range kinds {
		out[i] = k.kind
	}
	return out
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k >= KindContractSent && k <= KindWebHookError }

// String returns the variant name, e.g. "ContractSigned".
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k-1].name
}

// Status returns the provider's status string for k.
func (k Kind) Status() string {
	if !k.Valid() {
		return ""
	}
	return kinds[k-1].status
}

// KindFromStatus maps a provider status string to its Kind.
func KindFromStatus(status string) (Kind, error) {
	for _, k := range kinds {
		if k.status == status {
			return k.kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedStatus, status)
}

// ParseKind maps a variant name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range kinds {
		if k.name == name {
			return k.kind, nil
		}
	}
	return 0, fmt.Errorf("webhook: unknown kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("webhook: unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
