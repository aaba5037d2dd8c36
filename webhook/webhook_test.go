package webhook_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures/metadata"
	"github.com/squideyes/esignatures/webhook"
)

const (
	contractID = "11111111-2222-4333-8444-555555555555"
	signerA    = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	signerB    = "bbbbbbbb-cccc-4ddd-8eee-ffffffffffff"
	meta       = "INT32&amount&42|SHORTID&client-id&ABCD2345"
)

const contractSigned = `{
  "status": "contract-signed",
  "data": {
    "contract": {
      "id": "` + contractID + `",
      "metadata": "` + meta + `",
      "contract_pdf_url": "https%3A%2F%2Fexample.com%2Fsigned%2Fabc.pdf%3Fsig%3Dx",
      "signers": [
        {
          "id": "` + signerA + `",
          "name": "Partner McPartner",
          "email": "partner@example.com",
          "mobile": "+15551234567",
          "events": [
            {"event": "sign_contract", "timestamp": "2024-05-04T15:34:21.775Z"}
          ],
          "signer_field_values": {"title": "CEO", "shares": 100}
        },
        {
          "id": "` + signerB + `",
          "name": "Client McClient",
          "email": "client@example.com",
          "events": [
            {"event": "sign_contract", "timestamp": "2024-05-04 16:00:00"}
          ]
        }
      ]
    }
  }
}`

func signerPayload(status string) string {
	return `{"status":"` + status + `","data":{"contract":{"id":"` + contractID +
		`","metadata":"` + meta + `"},"signer":{"id":"` + signerA +
		`","name":"Partner McPartner","email":"partner@example.com","mobile":"+15551234567","mobile_new":"+15557654321"}}}`
}

func TestKindTableIsExhaustive(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range webhook.Kinds() {
		if !k.Valid() {
			t.Fatalf("kind %d not valid", k)
		}
		if seen[k.Status()] {
			t.Fatalf("duplicate status %q", k.Status())
		}
		seen[k.Status()] = true

		back, err := webhook.KindFromStatus(k.Status())
		if err != nil || back != k {
			t.Fatalf("KindFromStatus(%q) = %v, %v; want %v", k.Status(), back, err, k)
		}
		byName, err := webhook.ParseKind(k.String())
		if err != nil || byName != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), byName, err)
		}
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 kinds, got %d", len(seen))
	}
}

func TestSignerEventKinds(t *testing.T) {
	names := []string{
		"contract_viewed", "disable_reminders", "email_contract_sent",
		"email_delivery_failed", "email_final_contract_sent", "email_spam_complaint",
		"mobile_update_request", "reminder_emailed", "sign_contract",
		"signature_declined", "sms_contract_sent", "sms_delivery_failed",
		"sms_final_contract_sent",
	}
	for _, name := range names {
		k, err := webhook.ParseSignerEventKind(name)
		if err != nil {
			t.Fatalf("ParseSignerEventKind(%q): %v", name, err)
		}
		if k.String() != name {
			t.Fatalf("String() = %q, want %q", k.String(), name)
		}
	}

	if _, err := webhook.ParseSignerEventKind("signed_in_blood"); !errors.Is(err, webhook.ErrUnrecognizedSignerEvent) {
		t.Fatalf("expected ErrUnrecognizedSignerEvent, got %v", err)
	}
}

func TestParseContractSigned(t *testing.T) {
	p := webhook.NewParser()

	ev, err := p.Parse([]byte(contractSigned))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cs, ok := ev.(*webhook.ContractSigned)
	if !ok {
		t.Fatalf("expected *ContractSigned, got %T", ev)
	}
	if cs.Kind() != webhook.KindContractSigned {
		t.Fatalf("Kind() = %v", cs.Kind())
	}
	if cs.ContractID() != uuid.MustParse(contractID) {
		t.Fatalf("ContractID() = %v", cs.ContractID())
	}
	if cs.PDFURL != "https://example.com/signed/abc.pdf?sig=x" {
		t.Fatalf("PDFURL not decoded: %q", cs.PDFURL)
	}
	if len(cs.Signers) != 2 {
		t.Fatalf("expected 2 signers, got %d", len(cs.Signers))
	}
	for i, s := range cs.Signers {
		if len(s.Events) != 1 || s.Events[0].Kind != webhook.SignContract {
			t.Fatalf("signer %d: events = %+v", i, s.Events)
		}
	}

	want := time.Date(2024, 5, 4, 15, 34, 21, 775_000_000, time.UTC)
	if !cs.Signers[0].Events[0].Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", cs.Signers[0].Events[0].Timestamp, want)
	}
	if got := cs.Signers[0].FieldValues["title"]; got != "CEO" {
		t.Fatalf("field title = %q", got)
	}
	if got := cs.Signers[0].FieldValues["shares"]; got != "100" {
		t.Fatalf("field shares = %q", got)
	}
	if cs.Signers[1].FieldValues != nil {
		t.Fatalf("expected no field values for second signer")
	}

	amount, err := cs.Meta().Int32("amount")
	if err != nil || amount != 42 {
		t.Fatalf("metadata amount = %d, %v", amount, err)
	}

	if got := cs.BlobKey(); got != "Signed/11111111222243338444555555555555.json" {
		t.Fatalf("BlobKey() = %q", got)
	}
	if got := webhook.Subject(cs); got != "ContractSigned ("+contractID+")" {
		t.Fatalf("Subject() = %q", got)
	}
}

func TestParseIsRepeatable(t *testing.T) {
	p := webhook.NewParser()
	a, err := p.Parse([]byte(contractSigned))
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Parse([]byte(contractSigned))
	if err != nil {
		t.Fatal(err)
	}
	if !a.Meta().Equal(b.Meta()) || a.ContractID() != b.ContractID() {
		t.Fatal("parsing the same payload twice should give equal events")
	}
}

func TestParseSignerVariants(t *testing.T) {
	p := webhook.NewParser()

	tests := []struct {
		status string
		kind   webhook.Kind
	}{
		{"contract-sent-to-signer", webhook.KindContractSent},
		{"signer-viewed-the-contract", webhook.KindSignerViewed},
		{"signer-signed", webhook.KindSignerSigned},
		{"signer-declined", webhook.KindSignerDeclined},
		{"signer-mobile-update-request", webhook.KindMobileUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			ev, err := p.Parse([]byte(signerPayload(tt.status)))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if ev.Kind() != tt.kind {
				t.Fatalf("Kind() = %v, want %v", ev.Kind(), tt.kind)
			}
			if ev.RawMeta() != meta {
				t.Fatalf("RawMeta() = %q", ev.RawMeta())
			}
		})
	}

	ev, err := p.Parse([]byte(signerPayload("signer-mobile-update-request")))
	if err != nil {
		t.Fatal(err)
	}
	mu := ev.(*webhook.MobileUpdate)
	if mu.NewMobile != "+15557654321" || mu.Signer.Name != "Partner McPartner" {
		t.Fatalf("unexpected mobile update: %+v", mu)
	}
}

func TestParseWithdrawnAndError(t *testing.T) {
	p := webhook.NewParser()

	withdrawn := `{"status":"contract-withdrawn","data":{"contract_id":"` + contractID +
		`","contract":{"metadata":"","signers":[{"id":"` + signerA + `","name":"A"},{"id":"` + signerB + `","name":"B"}]}}}`
	ev, err := p.Parse([]byte(withdrawn))
	if err != nil {
		t.Fatalf("Parse withdrawn: %v", err)
	}
	cw := ev.(*webhook.ContractWithdrawn)
	if len(cw.Signers) != 2 || cw.Meta().Len() != 0 {
		t.Fatalf("unexpected withdrawn event: %+v", cw)
	}

	errPayload := `{"status":"error","data":{"error_code":"sms-failed","error_message":"could not send","contract_id":"` +
		contractID + `","metadata":"` + meta + `"}}`
	ev, err = p.Parse([]byte(errPayload))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	we := ev.(*webhook.WebHookError)
	if we.Code != "sms-failed" || we.Message != "could not send" || we.Meta().Len() != 2 {
		t.Fatalf("unexpected error event: %+v", we)
	}
}

func TestParseUnknownStatus(t *testing.T) {
	raw := []byte(`{"status":"unknown-status","data":{}}`)

	if _, err := webhook.NewParser().Parse(raw); !errors.Is(err, webhook.ErrUnrecognizedStatus) {
		t.Fatalf("expected ErrUnrecognizedStatus, got %v", err)
	}
	if _, err := webhook.Status(raw); !errors.Is(err, webhook.ErrUnrecognizedStatus) {
		t.Fatalf("Status: expected ErrUnrecognizedStatus, got %v", err)
	}
}

func TestParseFailures(t *testing.T) {
	p := webhook.NewParser()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{"status":`, webhook.ErrMalformedPayload},
		{"missing signer", `{"status":"signer-signed","data":{"contract":{"id":"` + contractID + `"}}}`, webhook.ErrMalformedPayload},
		{"bad uuid", strings.Replace(signerPayload("signer-signed"), contractID, "not-a-uuid", 1), webhook.ErrMalformedPayload},
		{"bad metadata", strings.Replace(signerPayload("signer-signed"), meta, "BOGUS&x&1", 1), metadata.ErrMalformedMetadata},
		{"bad signer event", strings.Replace(contractSigned, `"event": "sign_contract", "timestamp": "2024-05-04 16:00:00"`, `"event": "signed_in_blood", "timestamp": "2024-05-04 16:00:00"`, 1), webhook.ErrUnrecognizedSignerEvent},
		{"bad timestamp", strings.Replace(contractSigned, "2024-05-04 16:00:00", "yesterday", 1), webhook.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Parse([]byte(tt.raw)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParsePairsCodec(t *testing.T) {
	p := webhook.NewParser(webhook.WithCodec(metadata.Pairs))
	raw := strings.Replace(signerPayload("signer-viewed-the-contract"), meta, "CID=abc|Kind=nda", 1)

	ev, err := p.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := ev.Meta().Text("CID")
	if err != nil || got != "abc" {
		t.Fatalf("CID = %q, %v", got, err)
	}
}

func TestMarshal(t *testing.T) {
	ev, err := webhook.NewParser().Parse([]byte(contractSigned))
	if err != nil {
		t.Fatal(err)
	}

	data, err := webhook.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["kind"] != "ContractSigned" || out["contract_id"] != contractID || out["metadata"] != meta {
		t.Fatalf("unexpected envelope: %v", out)
	}
	signed, ok := out["signed_by"].([]any)
	if !ok || len(signed) != 2 {
		t.Fatalf("signed_by = %v", out["signed_by"])
	}
	first := signed[0].(map[string]any)
	events := first["events"].([]any)
	if events[0].(map[string]any)["event"] != "sign_contract" {
		t.Fatalf("events = %v", events)
	}
}
