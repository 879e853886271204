package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestSellerRateLimiter_RejectsOverQuota(t *testing.T) {
	l := NewSellerRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if err := l.CheckLimit("seller-a"); err != nil {
			t.Fatalf("call %d rejected unexpectedly: %v", i+1, err)
		}
	}
	if err := l.CheckLimit("seller-a"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("6th call: err = %v, want ErrRateLimited", err)
	}
}

func TestSellerRateLimiter_KeyedPerSeller(t *testing.T) {
	l := NewSellerRateLimiter(1, time.Minute)

	if err := l.CheckLimit("seller-a"); err != nil {
		t.Fatalf("seller-a first call: %v", err)
	}
	if err := l.CheckLimit("seller-b"); err != nil {
		t.Errorf("seller-b must have its own quota: %v", err)
	}
	if err := l.CheckLimit("seller-a"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("seller-a second call: err = %v, want ErrRateLimited", err)
	}
}
