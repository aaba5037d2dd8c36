package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/squideyes/esignatures"
	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/dlq"
	"github.com/squideyes/esignatures/id"
	"github.com/squideyes/esignatures/internal/entity"
	"github.com/squideyes/esignatures/store/redis"
)

func setup(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := redis.New(rdb)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestPing(t *testing.T) {
	s, _ := setup(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestQueueClaimAckRelease(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	m := delivery.NewMessage([]byte(`{"status":"signer-signed"}`))
	if err := s.Enqueue(ctx, m); err != nil {
		t.Fatal(err)
	}

	batch, err := s.Dequeue(ctx, 10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected 1 message, got %d", len(batch))
	}
	got := batch[0]
	if got.ID.String() != m.ID.String() || got.Attempts != 1 || got.State != delivery.StateInFlight {
		t.Fatalf("unexpected claim: %+v", got)
	}
	if string(got.Payload) != `{"status":"signer-signed"}` {
		t.Fatalf("payload = %s", got.Payload)
	}

	again, err := s.Dequeue(ctx, 10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Fatalf("claimed message should be hidden, got %d", len(again))
	}

	if err := s.Release(ctx, m.ID, time.Now().Add(-time.Second), "bus down"); err != nil {
		t.Fatal(err)
	}
	batch, err = s.Dequeue(ctx, 10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].Attempts != 2 || batch[0].LastError != "bus down" {
		t.Fatalf("expected released message back, got %+v", batch)
	}

	if n, _ := s.CountPending(ctx); n != 1 {
		t.Fatalf("expected 1 pending, got %d", n)
	}
	if err := s.Ack(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountPending(ctx); n != 0 {
		t.Fatalf("expected 0 pending, got %d", n)
	}
	if _, err := s.GetMessage(ctx, m.ID); !errors.Is(err, esignatures.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
	if err := s.Ack(ctx, m.ID); !errors.Is(err, esignatures.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound on second ack, got %v", err)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	for range 4 {
		if err := s.Enqueue(ctx, delivery.NewMessage([]byte(`{}`))); err != nil {
			t.Fatal(err)
		}
	}

	first, err := s.Dequeue(ctx, 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Dequeue(ctx, 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 || len(second) != 1 {
		t.Fatalf("expected 3 then 1, got %d then %d", len(first), len(second))
	}
	for _, a := range first {
		if a.ID.String() == second[0].ID.String() {
			t.Fatal("message claimed twice")
		}
	}
}

func TestBlobs(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()

	if _, err := s.GetBlob(ctx, "Signed/abc.json"); !errors.Is(err, esignatures.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
	if err := s.PutBlob(ctx, "Signed/abc.json", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetBlob(ctx, "Signed/abc.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("blob = %s", got)
	}
}

func poisonEntry(failedAt time.Time) *dlq.Entry {
	return &dlq.Entry{
		Entity:    entity.New(),
		ID:        id.NewPoisonID(),
		MessageID: id.NewMessageID(),
		Payload:   []byte(`{"status":"error"}`),
		Reason:    delivery.ReasonDelivery,
		Error:     "publish: broker down",
		Attempts:  5,
		FailedAt:  failedAt.UTC(),
	}
}

func TestPoisonLifecycle(t *testing.T) {
	s, _ := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := poisonEntry(now.Add(-48 * time.Hour))
	recent := poisonEntry(now.Add(-time.Minute))
	for _, e := range []*dlq.Entry{old, recent} {
		if err := s.Push(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListPoison(ctx, dlq.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID.String() != recent.ID.String() {
		t.Fatalf("expected newest first, got %+v", list)
	}

	from := now.Add(-time.Hour)
	windowed, err := s.ListPoison(ctx, dlq.ListOpts{From: &from})
	if err != nil {
		t.Fatal(err)
	}
	if len(windowed) != 1 {
		t.Fatalf("expected 1 entry in window, got %d", len(windowed))
	}

	if err := s.Replay(ctx, recent.ID); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetPoison(ctx, recent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ReplayedAt == nil {
		t.Fatal("expected ReplayedAt")
	}
	if n, _ := s.CountPending(ctx); n != 1 {
		t.Fatalf("expected replayed message queued, got %d", n)
	}

	n, err := s.ReplayBulk(ctx, now.Add(-72*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 bulk replay, got %d", n)
	}

	purged, err := s.Purge(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}
	if c, _ := s.CountPoison(ctx); c != 1 {
		t.Fatalf("expected 1 remaining, got %d", c)
	}
	if _, err := s.GetPoison(ctx, old.ID); !errors.Is(err, esignatures.ErrPoisonNotFound) {
		t.Fatalf("expected ErrPoisonNotFound, got %v", err)
	}
}
