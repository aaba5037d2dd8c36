package delivery_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	busmem "github.com/squideyes/esignatures/bus/memory"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/observability"
	"github.com/squideyes/esignatures/signature"
	"github.com/squideyes/esignatures/store/memory"
)

const (
	contractID = "11111111-2222-4333-8444-555555555555"
	signedBody = `{"status":"contract-signed","data":{"contract":{"id":"` + contractID +
		`","metadata":"INT32&amount&42","contract_pdf_url":"https%3A%2F%2Fexample.com%2Fc.pdf","signers":[` +
		`{"id":"aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee","name":"Partner McPartner","events":[{"event":"sign_contract","timestamp":"2024-05-04T15:34:21Z"}]},` +
		`{"id":"bbbbbbbb-cccc-4ddd-8eee-ffffffffffff","name":"Client McClient","events":[{"event":"sign_contract","timestamp":"2024-05-04T15:40:00Z"}]}]}}}`
	viewedBody = `{"status":"signer-viewed-the-contract","data":{"contract":{"id":"` + contractID +
		`","metadata":""},"signer":{"id":"aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee","name":"Partner McPartner"}}}`
)

// stubPoison records poisoned messages.
type stubPoison struct {
	mu      sync.Mutex
	reasons []delivery.FailureReason
}

func (s *stubPoison) PushPoison(_ context.Context, _ *delivery.Message, reason delivery.FailureReason, _ error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
	return nil
}

func (s *stubPoison) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.reasons)), nil
}

func (s *stubPoison) Reasons() []delivery.FailureReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.FailureReason(nil), s.reasons...)
}

func engineConfig() delivery.EngineConfig {
	return delivery.EngineConfig{
		Concurrency:       2,
		PollInterval:      20 * time.Millisecond,
		BatchSize:         10,
		VisibilityTimeout: time.Minute,
		MaxAttempts:       3,
		RetrySchedule:     []time.Duration{10 * time.Millisecond},
		MessageTTL:        24 * time.Hour,
	}
}

func setupEngine(t *testing.T, cfg delivery.EngineConfig, poison delivery.PoisonPusher) (*memory.Store, *busmem.Bus, *delivery.Engine) {
	t.Helper()
	store := memory.New()
	bus := busmem.New()
	engine := delivery.NewEngine(store, bus, nil, poison, cfg, nil)
	return store, bus, engine
}

func enqueue(t *testing.T, store *memory.Store, body string) *delivery.Message {
	t.Helper()
	m := delivery.NewMessage([]byte(body))
	if err := store.Enqueue(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	return m
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func pending(store *memory.Store) int64 {
	n, _ := store.CountPending(context.Background())
	return n
}

func TestEngineRelaysSignedContract(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := engineConfig()
	cfg.Metrics = observability.NewMetrics(reg)

	store, bus, engine := setupEngine(t, cfg, &stubPoison{})
	enqueue(t, store, signedBody)

	engine.Start(context.Background())
	waitFor(t, func() bool { return bus.Len() == 1 && pending(store) == 0 })
	if err := engine.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	env := bus.Envelopes()[0]
	if env.Subject != "ContractSigned ("+contractID+")" {
		t.Errorf("Subject = %q", env.Subject)
	}
	if env.CorrelationID != contractID {
		t.Errorf("CorrelationID = %q", env.CorrelationID)
	}
	if env.ContentType != "application/json" {
		t.Errorf("ContentType = %q", env.ContentType)
	}
	if env.Properties[delivery.PropWebHookKind] != "ContractSigned" || env.Properties[delivery.PropContractID] != contractID {
		t.Errorf("Properties = %v", env.Properties)
	}
	if env.TTL != 24*time.Hour || env.ExpiresAt().IsZero() {
		t.Errorf("TTL = %v", env.TTL)
	}
	if !strings.HasPrefix(env.MessageID, "msg_") {
		t.Errorf("MessageID = %q", env.MessageID)
	}

	var body map[string]any
	if err := json.Unmarshal(env.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["kind"] != "ContractSigned" {
		t.Errorf("body kind = %v", body["kind"])
	}

	blob, err := store.GetBlob(context.Background(), "Signed/11111111222243338444555555555555.json")
	if err != nil {
		t.Fatalf("expected archived payload: %v", err)
	}
	if string(blob) != signedBody {
		t.Error("archived payload differs from the received body")
	}
}

func TestEngineSignsEnvelopes(t *testing.T) {
	cfg := engineConfig()
	cfg.SigningKey = "relay-key"

	store, bus, engine := setupEngine(t, cfg, &stubPoison{})
	enqueue(t, store, viewedBody)

	engine.Start(context.Background())
	waitFor(t, func() bool { return bus.Len() == 1 })
	_ = engine.Stop(context.Background())

	env := bus.Envelopes()[0]
	sig := env.Properties[delivery.PropSignature]
	ts, err := strconv.ParseInt(env.Properties[delivery.PropSignedAt], 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	if !signature.VerifyMessage(env.Body, "relay-key", ts, sig) {
		t.Error("envelope signature does not verify")
	}
}

func TestEnginePoisonsUnparsablePayload(t *testing.T) {
	poison := &stubPoison{}
	store, bus, engine := setupEngine(t, engineConfig(), poison)

	enqueue(t, store, `{"status":"unknown-status","data":{}}`)
	enqueue(t, store, viewedBody)

	engine.Start(context.Background())
	waitFor(t, func() bool { return bus.Len() == 1 && pending(store) == 0 })
	_ = engine.Stop(context.Background())

	reasons := poison.Reasons()
	if len(reasons) != 1 || reasons[0] != delivery.ReasonParse {
		t.Fatalf("expected one parse poison, got %v", reasons)
	}
}

func TestEngineRetriesThenSucceeds(t *testing.T) {
	poison := &stubPoison{}
	store, bus, engine := setupEngine(t, engineConfig(), poison)
	bus.FailNext(2, errors.New("broker unavailable"))

	m := enqueue(t, store, viewedBody)

	engine.Start(context.Background())
	waitFor(t, func() bool { return bus.Len() == 1 && pending(store) == 0 })
	_ = engine.Stop(context.Background())

	if len(poison.Reasons()) != 0 {
		t.Fatalf("expected no poison, got %v", poison.Reasons())
	}
	if bus.Envelopes()[0].MessageID != m.ID.String() {
		t.Error("redelivered envelope should keep the queue message ID")
	}
}

func TestEngineExhaustsAttemptsAndPoisons(t *testing.T) {
	poison := &stubPoison{}
	store, bus, engine := setupEngine(t, engineConfig(), poison)
	bus.FailNext(100, errors.New("broker unavailable"))

	enqueue(t, store, signedBody)

	engine.Start(context.Background())
	waitFor(t, func() bool { return len(poison.Reasons()) == 1 && pending(store) == 0 })
	_ = engine.Stop(context.Background())

	if poison.Reasons()[0] != delivery.ReasonDelivery {
		t.Fatalf("expected delivery poison, got %v", poison.Reasons())
	}
	if bus.Len() != 0 {
		t.Fatalf("expected nothing published, got %d", bus.Len())
	}
}

func TestEngineNilPoisonKeepsMessage(t *testing.T) {
	store, _, engine := setupEngine(t, engineConfig(), nil)
	m := enqueue(t, store, `not json`)

	engine.Start(context.Background())
	waitFor(t, func() bool {
		got, err := store.GetMessage(context.Background(), m.ID)
		return err == nil && got.LastError != ""
	})
	_ = engine.Stop(context.Background())

	if pending(store) != 1 {
		t.Fatal("without a poison store the message must stay queued")
	}
}

func TestEngineGracefulShutdown(t *testing.T) {
	_, _, engine := setupEngine(t, engineConfig(), nil)
	engine.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := engine.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestEngineThrottlesPublishesPerKind(t *testing.T) {
	cfg := engineConfig()
	cfg.PublishRate = 5
	cfg.PublishBurst = 1

	store, bus, engine := setupEngine(t, cfg, &stubPoison{})
	for range 3 {
		enqueue(t, store, viewedBody)
	}

	start := time.Now()
	engine.Start(context.Background())
	waitFor(t, func() bool { return bus.Len() == 3 })
	elapsed := time.Since(start)
	_ = engine.Stop(context.Background())

	// One token up front, then one every 200ms.
	if elapsed < 350*time.Millisecond {
		t.Errorf("three publishes of one kind took %v, expected throttling", elapsed)
	}
}
