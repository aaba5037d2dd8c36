package delivery_test

import (
	"testing"
	"time"

	"github.com/squideyes/esignatures/delivery"
)

func TestRetrierDecide(t *testing.T) {
	retrier := delivery.NewRetrier([]time.Duration{time.Second}, 3)

	tests := []struct {
		name     string
		attempts int
		want     delivery.Decision
	}{
		{"first attempt → Redeliver", 1, delivery.Redeliver},
		{"second attempt → Redeliver", 2, delivery.Redeliver},
		{"last attempt → Poison", 3, delivery.Poison},
		{"beyond limit → Poison", 7, delivery.Poison},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := retrier.Decide(&delivery.Message{Attempts: tt.attempts})
			if got != tt.want {
				t.Errorf("Decide(attempts=%d) = %v, want %v", tt.attempts, got, tt.want)
			}
		})
	}
}

func TestRetrierMinimumOneAttempt(t *testing.T) {
	retrier := delivery.NewRetrier(nil, 0)
	if got := retrier.Decide(&delivery.Message{Attempts: 1}); got != delivery.Poison {
		t.Errorf("expected Poison with a single allowed attempt, got %v", got)
	}
}

func TestComputeNextAttempt(t *testing.T) {
	schedule := []time.Duration{5 * time.Second, 30 * time.Second, 2 * time.Minute}
	retrier := delivery.NewRetrier(schedule, 5)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 30 * time.Second},
		{3, 2 * time.Minute},
		{9, 2 * time.Minute},
	}

	for _, tt := range tests {
		before := time.Now().UTC()
		got := retrier.ComputeNextAttempt(tt.attempt)
		delta := got.Sub(before)
		if delta < tt.want || delta > tt.want+time.Second {
			t.Errorf("ComputeNextAttempt(%d) delta = %v, want ~%v", tt.attempt, delta, tt.want)
		}
	}
}

func TestComputeNextAttemptEmptySchedule(t *testing.T) {
	retrier := delivery.NewRetrier(nil, 5)
	if d := time.Until(retrier.ComputeNextAttempt(2)); d > time.Second {
		t.Errorf("empty schedule should retry immediately, got %v", d)
	}
}
