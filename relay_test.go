package esignatures_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/squideyes/esignatures"
	busmem "github.com/squideyes/esignatures/bus/memory"
	"github.com/squideyes/esignatures/contract"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/sender"
	"github.com/squideyes/esignatures/signature"
	"github.com/squideyes/esignatures/signer"
	"github.com/squideyes/esignatures/store/memory"
	"github.com/squideyes/esignatures/webhook"
)

const secret = "relay-test-secret"

var (
	contractID = uuid.MustParse("11111111-2222-4333-8444-555555555555")
	signerID   = uuid.MustParse("aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee")
)

func ctx() context.Context { return context.Background() }

type fixture struct {
	relay *esignatures.Relay
	store *memory.Store
	bus   *busmem.Bus
	srv   *httptest.Server
}

func setup(t *testing.T, opts ...esignatures.Option) *fixture {
	t.Helper()
	s := memory.New()
	b := busmem.New()

	all := append([]esignatures.Option{
		esignatures.WithStore(s),
		esignatures.WithBus(b),
		esignatures.WithSecret(secret),
		esignatures.WithPollInterval(10 * time.Millisecond),
		esignatures.WithRetrySchedule([]time.Duration{0}),
		esignatures.WithShutdownTimeout(5 * time.Second),
	}, opts...)

	r, err := esignatures.New(all...)
	if err != nil {
		t.Fatal(err)
	}
	r.Start(ctx())
	t.Cleanup(func() { _ = r.Stop(ctx()) })

	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)

	return &fixture{relay: r, store: s, bus: b, srv: srv}
}

func (f *fixture) callback(t *testing.T, auth, body string) int {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx(), http.MethodPost, f.srv.URL+"/WebHook", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", auth)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresCollaborators(t *testing.T) {
	s := memory.New()
	b := busmem.New()

	tests := []struct {
		name string
		opts []esignatures.Option
		want error
	}{
		{"no store", []esignatures.Option{esignatures.WithBus(b), esignatures.WithSecret(secret)}, esignatures.ErrNoStore},
		{"no bus", []esignatures.Option{esignatures.WithStore(s), esignatures.WithSecret(secret)}, esignatures.ErrNoBus},
		{"no secret", []esignatures.Option{esignatures.WithStore(s), esignatures.WithBus(b)}, esignatures.ErrNoSecret},
		{"colon in secret", []esignatures.Option{esignatures.WithStore(s), esignatures.WithBus(b), esignatures.WithSecret("user:pass")}, signature.ErrUnusableSecret},
		{"colon in admin secret", []esignatures.Option{esignatures.WithStore(s), esignatures.WithBus(b), esignatures.WithSecret(secret), esignatures.WithAdminSecret("admin:")}, signature.ErrUnusableSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := esignatures.New(tt.opts...); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAdminRoutesUseAdminSecret(t *testing.T) {
	const admin = "relay-admin-secret"
	f := setup(t, esignatures.WithAdminSecret(admin))

	call := func(auth string) int {
		req, err := http.NewRequestWithContext(ctx(), http.MethodDelete, f.srv.URL+"/dlq?before="+time.Now().UTC().Format(time.RFC3339), nil)
		if err != nil {
			t.Fatal(err)
		}
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := call(""); code != http.StatusForbidden {
		t.Errorf("no credentials: expected 403, got %d", code)
	}
	if code := call(signature.BasicHeader(secret)); code != http.StatusForbidden {
		t.Errorf("webhook secret: expected 403, got %d", code)
	}
	if code := call(signature.BasicHeader(admin)); code != http.StatusOK {
		t.Errorf("admin secret: expected 200, got %d", code)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := esignatures.DefaultConfig()
	if cfg.MaxBodyBytes != 5<<20 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.MaxAttempts < 1 || cfg.Concurrency < 1 || cfg.BatchSize < 1 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.RetrySchedule) == 0 {
		t.Error("expected a default retry schedule")
	}
}

// TestPartnerMcPartner submits a one-signer contract, then relays the
// provider's signer-signed callback for it.
func TestPartnerMcPartner(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"contract-created","data":{"contract":{"id":%q,"signers":[`+
			`{"id":%q,"name":"Partner McPartner","email":"partner@example.com","mobile":"+15551234567"}]}}}`,
			contractID, signerID)
	}))
	defer provider.Close()

	req, err := contract.New().
		TemplateID(uuid.MustParse("5f2c3b1e-8a41-4c1e-9d35-0e7a9c1f2b11")).
		Title("Partnership Agreement").
		WebhookURL("https://hooks.example.com/WebHook").
		SignDate(time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC)).
		Signer(signer.Signer{
			FullName: "Partner McPartner",
			Nickname: "Partner",
			Email:    "partner@example.com",
			Mobile:   "+15551234567",
		}, signer.DefaultHandling(), nil).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	client, err := sender.New("token", sender.WithBaseURL(provider.URL))
	if err != nil {
		t.Fatal(err)
	}

	outcome := client.Send(ctx(), req)
	accepted, ok := outcome.(*sender.Accepted)
	if !ok {
		t.Fatalf("expected Accepted, got %T %+v", outcome, outcome)
	}
	if accepted.ContractID != contractID {
		t.Fatalf("ContractID = %s, want %s", accepted.ContractID, contractID)
	}
	if len(accepted.Signers) != 1 || accepted.Signers[0].ID != signerID {
		t.Fatalf("signer ID not correlated: %+v", accepted.Signers)
	}

	f := setup(t)
	body := `{"status":"signer-signed","data":{"contract":{"id":"` + contractID.String() +
		`","metadata":""},"signer":{"id":"` + signerID.String() +
		`","name":"Partner McPartner","email":"partner@example.com","mobile":"+15551234567"}}}`

	if code := f.callback(t, signature.BasicHeader(secret), body); code != http.StatusOK {
		t.Fatalf("callback: expected 200, got %d", code)
	}

	waitFor(t, "relayed envelope", func() bool { return f.bus.Len() == 1 })

	env := f.bus.Envelopes()[0]
	if env.CorrelationID != contractID.String() {
		t.Errorf("CorrelationID = %q", env.CorrelationID)
	}
	if env.Subject != "SignerSigned ("+contractID.String()+")" {
		t.Errorf("Subject = %q", env.Subject)
	}
	if env.Properties[delivery.PropWebHookKind] != "SignerSigned" {
		t.Errorf("WebHookKind = %q", env.Properties[delivery.PropWebHookKind])
	}
	if !strings.Contains(string(env.Body), "Partner McPartner") {
		t.Errorf("body does not carry the signer: %s", env.Body)
	}

	waitFor(t, "queue to drain", func() bool {
		n, _ := f.store.CountPending(ctx())
		return n == 0
	})
}

func TestWrongSecretQueuesNothing(t *testing.T) {
	f := setup(t)

	body := `{"status":"contract-withdrawn","data":{"contract_id":"` + contractID.String() + `","metadata":"","signers":[]}}`
	if code := f.callback(t, signature.BasicHeader("wrong-secret"), body); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}

	if n, _ := f.store.CountPending(ctx()); n != 0 {
		t.Fatalf("expected nothing queued, got %d", n)
	}
	time.Sleep(50 * time.Millisecond)
	if f.bus.Len() != 0 {
		t.Fatalf("expected nothing published, got %d", f.bus.Len())
	}
}

func TestSignedContractIsArchived(t *testing.T) {
	f := setup(t)

	body := `{"status":"contract-signed","data":{"contract":{"id":"` + contractID.String() +
		`","metadata":"","contract_pdf_url":"https%3A%2F%2Fexample.com%2Fc.pdf","signers":[{"id":"` + signerID.String() +
		`","name":"Partner McPartner","events":[{"event":"sign_contract","timestamp":"2024-05-04T15:34:21Z"}]}]}}}`

	if code := f.callback(t, signature.BasicHeader(secret), body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	waitFor(t, "relayed envelope", func() bool { return f.bus.Len() == 1 })

	key := "Signed/" + strings.ReplaceAll(contractID.String(), "-", "") + ".json"
	blob, err := f.store.GetBlob(ctx(), key)
	if err != nil {
		t.Fatalf("GetBlob(%s): %v", key, err)
	}
	if string(blob) != body {
		t.Fatalf("archived blob differs from the callback")
	}

	ev, err := f.relay.Parser().Parse(blob)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind() != webhook.KindContractSigned {
		t.Fatalf("unexpected kind %s", ev.Kind())
	}
}

func TestUnparsableCallbackIsPoisoned(t *testing.T) {
	f := setup(t)

	// The status is recognized, so the callback is accepted, but the
	// payload is missing its contract.
	body := `{"status":"signer-viewed-the-contract","data":{}}`
	if code := f.callback(t, signature.BasicHeader(secret), body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	var entries []*dlq.Entry
	waitFor(t, "poison entry", func() bool {
		entries, _ = f.relay.Poison().List(ctx(), dlq.ListOpts{})
		return len(entries) == 1
	})

	if entries[0].Reason != delivery.ReasonParse {
		t.Fatalf("reason = %s", entries[0].Reason)
	}
	if string(entries[0].Payload) != body {
		t.Fatalf("payload not kept verbatim: %s", entries[0].Payload)
	}
	if f.bus.Len() != 0 {
		t.Fatalf("expected nothing published, got %d", f.bus.Len())
	}
}

func TestBusFailuresExhaustAttempts(t *testing.T) {
	f := setup(t, esignatures.WithMaxAttempts(2))
	f.bus.FailNext(2, errors.New("broker down"))

	body := `{"status":"signer-viewed-the-contract","data":{"contract":{"id":"` + contractID.String() +
		`","metadata":""},"signer":{"id":"` + signerID.String() + `","name":"Partner McPartner"}}}`
	if code := f.callback(t, signature.BasicHeader(secret), body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	var entries []*dlq.Entry
	waitFor(t, "poison entry", func() bool {
		entries, _ = f.relay.Poison().List(ctx(), dlq.ListOpts{Reason: delivery.ReasonDelivery})
		return len(entries) == 1
	})
	if entries[0].Attempts != 2 {
		t.Fatalf("attempts = %d", entries[0].Attempts)
	}

	// Replaying after the broker recovers relays the callback.
	if err := f.relay.Poison().Replay(ctx(), entries[0].ID); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "replayed envelope", func() bool { return f.bus.Len() == 1 })
}
