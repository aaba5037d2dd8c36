package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/squideyes/esignatures/bus/memory"
	"github.com/squideyes/esignatures/delivery"
)

func TestPublishRecords(t *testing.T) {
	b := memory.New()

	env := &delivery.Envelope{MessageID: "msg_1", Subject: "ContractSent (x)"}
	if err := b.Publish(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 1 || b.Envelopes()[0].Subject != "ContractSent (x)" {
		t.Fatalf("unexpected envelopes: %+v", b.Envelopes())
	}

	select {
	case <-b.Published():
	default:
		t.Fatal("expected a publish notification")
	}
}

func TestFailNextAndClose(t *testing.T) {
	b := memory.New()
	boom := errors.New("broker down")
	b.FailNext(1, boom)

	if err := b.Publish(context.Background(), &delivery.Envelope{}); !errors.Is(err, boom) {
		t.Fatalf("expected scheduled failure, got %v", err)
	}
	if err := b.Publish(context.Background(), &delivery.Envelope{}); err != nil {
		t.Fatalf("expected success after failure, got %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(context.Background(), &delivery.Envelope{}); !errors.Is(err, memory.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
