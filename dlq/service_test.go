package dlq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/store/memory"
)

func ctx() context.Context { return context.Background() }

func newService() (*dlq.Service, *memory.Store) {
	store := memory.New()
	svc := dlq.NewService(store, nil)
	return svc, store
}

func TestPushPoison(t *testing.T) {
	svc, _ := newService()

	m := delivery.NewMessage([]byte(`{"status":"nope"}`))
	m.Attempts = 1

	if err := svc.PushPoison(ctx(), m, delivery.ReasonParse, errors.New("webhook: unrecognized status")); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.List(ctx(), dlq.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.MessageID.String() != m.ID.String() {
		t.Errorf("MessageID = %s, want %s", e.MessageID, m.ID)
	}
	if e.Reason != delivery.ReasonParse {
		t.Errorf("Reason = %s", e.Reason)
	}
	if e.Error != "webhook: unrecognized status" {
		t.Errorf("Error = %q", e.Error)
	}
	if string(e.Payload) != `{"status":"nope"}` {
		t.Errorf("Payload = %s", e.Payload)
	}
	if e.Attempts != 1 {
		t.Errorf("Attempts = %d", e.Attempts)
	}

	got, err := svc.Get(ctx(), e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID.String() != e.ID.String() {
		t.Errorf("Get returned %s", got.ID)
	}
}

func TestReplayRequeuesPayload(t *testing.T) {
	svc, store := newService()

	m := delivery.NewMessage([]byte(`{"status":"signer-signed"}`))
	if err := svc.PushPoison(ctx(), m, delivery.ReasonDelivery, errors.New("bus down")); err != nil {
		t.Fatal(err)
	}
	entries, _ := svc.List(ctx(), dlq.ListOpts{})

	if err := svc.Replay(ctx(), entries[0].ID); err != nil {
		t.Fatal(err)
	}

	batch, err := store.Dequeue(ctx(), 10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected 1 replayed message, got %d", len(batch))
	}
	if string(batch[0].Payload) != `{"status":"signer-signed"}` {
		t.Errorf("replayed payload = %s", batch[0].Payload)
	}
	if batch[0].ID.String() == m.ID.String() {
		t.Error("replay should enqueue a fresh message")
	}
}

func TestReplayBulkPurgeCount(t *testing.T) {
	svc, _ := newService()

	for range 3 {
		m := delivery.NewMessage([]byte(`{}`))
		if err := svc.PushPoison(ctx(), m, delivery.ReasonParse, errors.New("bad")); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Now().UTC()
	n, err := svc.ReplayBulk(ctx(), now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3 replayed, got %d", n)
	}

	count, err := svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}

	purged, err := svc.Purge(ctx(), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}
}
