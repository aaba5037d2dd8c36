package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNilLimiterIsUnlimited(t *testing.T) {
	l := New(0, 10)
	if l != nil {
		t.Fatal("New(0) should return nil")
	}
	for i := 0; i < 100; i++ {
		if !l.Allow("contract-signed") {
			t.Fatal("nil limiter should always allow")
		}
	}
	if err := l.Wait(context.Background(), "contract-signed"); err != nil {
		t.Fatal(err)
	}
	l.Reset("contract-signed")
}

func TestAllowBurst(t *testing.T) {
	l := New(1, 2)

	if !l.Allow("signer-signed") {
		t.Fatal("first call should be allowed")
	}
	if !l.Allow("signer-signed") {
		t.Fatal("second call should be allowed")
	}
	if l.Allow("signer-signed") {
		t.Fatal("third call should be denied")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 1)

	if !l.Allow("signer-signed") {
		t.Fatal("first key should be allowed")
	}
	if l.Allow("signer-signed") {
		t.Fatal("first key should now be exhausted")
	}
	if !l.Allow("contract-signed") {
		t.Fatal("a different key should have its own bucket")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New(20, 1)

	l.Allow("error")
	if l.Allow("error") {
		t.Fatal("should be denied after exhausting bucket")
	}

	time.Sleep(100 * time.Millisecond)

	if !l.Allow("error") {
		t.Fatal("should be allowed after refill")
	}
}

func TestReset(t *testing.T) {
	l := New(1, 1)

	l.Allow("contract-sent-to-signer")
	if l.Allow("contract-sent-to-signer") {
		t.Fatal("should be denied")
	}

	l.Reset("contract-sent-to-signer")

	if !l.Allow("contract-sent-to-signer") {
		t.Fatal("should be allowed after reset")
	}
}

func TestWaitCancelled(t *testing.T) {
	l := New(0.1, 1)
	l.Allow("contract-withdrawn")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Wait(ctx, "contract-withdrawn"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitSucceeds(t *testing.T) {
	l := New(50, 1)
	l.Allow("signer-viewed-the-contract")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := l.Wait(ctx, "signer-viewed-the-contract"); err != nil {
		t.Fatalf("Wait should succeed once a token refills: %v", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := New(1000, 1000)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Allow("contract-signed")
			}
		}()
	}
	wg.Wait()
}
