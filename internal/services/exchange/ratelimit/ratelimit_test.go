package ratelimit

import (
	"testing"

	"golang.org/x/time/rate"
)

func TestAllowEnforcesBurst(t *testing.T) {
	limiter := New(rate.Limit(0), 2)
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("expected first request to pass")
	}
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("expected second request to pass")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected third request to be throttled")
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	limiter := New(rate.Limit(0), 1)
	if !limiter.Allow("1.2.3.4") {
		t.Fatal("expected first key to pass")
	}
	if !limiter.Allow("5.6.7.8") {
		t.Fatal("expected second key to have its own bucket")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatal("expected first key to be throttled")
	}
}

func TestSetCountRetunesWindow(t *testing.T) {
	limiter := PerMinute(5)
	limiter.SetCount(2)
	if !limiter.Allow("client") {
		t.Fatal("expected first request to pass")
	}
	if !limiter.Allow("client") {
		t.Fatal("expected second request to pass")
	}
	if limiter.Allow("client") {
		t.Fatal("expected third request under the tightened count to be throttled")
	}
}

func TestPerMinuteAllowsConfiguredBurst(t *testing.T) {
	limiter := PerMinute(5)
	for i := 0; i < 5; i++ {
		if !limiter.Allow("client") {
			t.Fatalf("expected request %d to pass", i+1)
		}
	}
	if limiter.Allow("client") {
		t.Fatal("expected sixth request within a minute to be throttled")
	}
}
