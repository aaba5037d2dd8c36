package signer_test

import (
	"errors"
	"testing"

	"github.com/squideyes/esignatures/signer"
	"github.com/squideyes/esignatures/value"
)

func validSigner() *signer.Signer {
	return &signer.Signer{
		FullName: "Partner McPartner",
		Nickname: "Partner",
		Email:    "partner@example.com",
		Mobile:   "+15551234567",
		Company:  "Acme",
	}
}

func TestHashStableUnderMobileFormatting(t *testing.T) {
	a := signer.Hash("Partner McPartner", "partner@example.com", "+1 (555) 123-4567")
	b := signer.Hash("Partner McPartner", "partner@example.com", "15551234567")
	if a != b {
		t.Fatalf("hash differs across mobile formatting: %s vs %s", a, b)
	}

	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}

	if a == signer.Hash("Partner McPartnr", "partner@example.com", "15551234567") {
		t.Fatal("hash should change with the name")
	}
	if a == signer.Hash("Partner McPartner", "Partner@example.com", "15551234567") {
		t.Fatal("hash should be case-sensitive on email")
	}
}

func TestHashKnownValue(t *testing.T) {
	got := validSigner().Hash()
	want := "efe1bda5533ffae723a5af79f6e840beff03a816bcc74b4b5db09f2dee36b73e"
	if got != want {
		t.Fatalf("Hash = %s, want %s", got, want)
	}
}

func TestNormalizeMobile(t *testing.T) {
	tests := map[string]string{
		"+1 (555) 123-4567":    "+15551234567",
		"15551234567":          "+15551234567",
		"555.123.4567 ext. 89": "+555123456789",
		"":                     "+",
	}
	for in, want := range tests {
		if got := signer.NormalizeMobile(in); got != want {
			t.Errorf("NormalizeMobile(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignerValidate(t *testing.T) {
	if err := validSigner().Validate(); err != nil {
		t.Fatalf("valid signer rejected: %v", err)
	}

	tests := map[string]func(*signer.Signer){
		"full_name": func(s *signer.Signer) { s.FullName = " Partner" },
		"nickname":  func(s *signer.Signer) { s.Nickname = "1Partner" },
		"email":     func(s *signer.Signer) { s.Email = "partner@example" },
		"mobile":    func(s *signer.Signer) { s.Mobile = "12" },
		"company":   func(s *signer.Signer) { s.Company = "Acme " },
	}

	for field, mutate := range tests {
		s := validSigner()
		mutate(s)

		err := s.Validate()
		var verr *value.ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Errorf("%s: expected validation error on field, got %v", field, err)
		}
	}
}

func TestHandling(t *testing.T) {
	h := signer.DefaultHandling()
	if err := h.Validate(); err != nil {
		t.Fatalf("default handling rejected: %v", err)
	}
	if got := h.IdentificationMethods(); len(got) != 2 || got[0] != "email" || got[1] != "sms" {
		t.Fatalf("IdentificationMethods = %v", got)
	}

	h.IDByEmail = false
	if got := h.IdentificationMethods(); len(got) != 1 || got[0] != "sms" {
		t.Fatalf("IdentificationMethods = %v", got)
	}

	h.Ordinal = -1
	if err := h.Validate(); !errors.Is(err, value.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative ordinal, got %v", err)
	}

	h = signer.DefaultHandling()
	h.RequestBy = signer.Mode(7)
	if err := h.Validate(); !errors.Is(err, value.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown mode, got %v", err)
	}
}

func TestModeText(t *testing.T) {
	b, err := signer.ModeSMS.MarshalText()
	if err != nil || string(b) != "sms" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}

	var m signer.Mode
	if err := m.UnmarshalText([]byte("email")); err != nil || m != signer.ModeEmail {
		t.Fatalf("UnmarshalText = %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("fax")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestAddress(t *testing.T) {
	a := &signer.Address{
		Country:    "US",
		Address1:   "123 Main St",
		Locality:   "Springfield",
		Region:     "IL",
		PostalCode: "62701",
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}
	if got := a.OneLine(); got != "123 Main St, Springfield, IL, 62701, US" {
		t.Fatalf("OneLine = %q", got)
	}

	a.Address2 = "Suite 4"
	if got := a.OneLine(); got != "123 Main St, Suite 4, Springfield, IL, 62701, US" {
		t.Fatalf("OneLine = %q", got)
	}

	a.PostalCode = "K1A 0B1"
	if err := a.Validate(); !errors.Is(err, value.ErrValidation) {
		t.Fatalf("expected ErrValidation for foreign postal code, got %v", err)
	}
}
