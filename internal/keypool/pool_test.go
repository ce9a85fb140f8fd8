// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package keypool

import (
	"sync"
	"testing"
	"time"
)

// TestAcquireDistributesEvenly verifies that N acquisitions without releases
// spread load as evenly as possible across the pool (max-min <= 1).
func TestAcquireDistributesEvenly(t *testing.T) {
	keys := []string{"key-a", "key-b", "key-c"}
	p := New(keys, DefaultCooldown)

	counts := make(map[string]int)
	for i := 0; i < 7; i++ {
		k, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire() error: %v", err)
		}
		counts[k]++
	}

	min, max := 7, 0
	for _, k := range keys {
		if counts[k] < min {
			min = counts[k]
		}
		if counts[k] > max {
			max = counts[k]
		}
	}
	if max-min > 1 {
		t.Errorf("uneven distribution: %v (max-min = %d)", counts, max-min)
	}
}

// TestAcquirePrefersLeastLoaded verifies that a released credential is
// picked again before loaded ones.
func TestAcquirePrefersLeastLoaded(t *testing.T) {
	p := New([]string{"key-a", "key-b"}, DefaultCooldown)

	a, _ := p.Acquire()
	b, _ := p.Acquire()
	if a == b {
		t.Fatalf("expected two distinct keys, got %q twice", a)
	}

	p.Release(a, true)

	got, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if got != a {
		t.Errorf("Acquire() = %q, want least-loaded %q", got, a)
	}
}

// TestFailureCooldownExcludesKey verifies that a failed release puts the
// credential into cooldown and the next acquisition avoids it.
func TestFailureCooldownExcludesKey(t *testing.T) {
	p := New([]string{"key-a", "key-b"}, DefaultCooldown)

	k, _ := p.Acquire()
	p.Release(k, false)

	for i := 0; i < 4; i++ {
		got, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire() error: %v", err)
		}
		if got == k {
			t.Fatalf("Acquire() returned cooling-down key %q while another was available", k)
		}
	}
}

// TestAllCoolingDownPicksSoonestExpiry verifies graceful degradation: when
// every credential is cooling down, the one recovering soonest is returned
// instead of blocking or failing.
func TestAllCoolingDownPicksSoonestExpiry(t *testing.T) {
	p := New([]string{"key-a", "key-b", "key-c"}, DefaultCooldown)

	base := time.Now()
	clock := base
	p.now = func() time.Time { return clock }

	// Fail key-a first, then key-b, then key-c: key-a recovers soonest.
	for _, k := range []string{"key-a", "key-b", "key-c"} {
		p.cooldownUntil[k] = clock.Add(DefaultCooldown)
		clock = clock.Add(time.Second)
	}

	got, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if got != "key-a" {
		t.Errorf("Acquire() = %q, want soonest-expiring key-a", got)
	}
}

// TestCooldownExpiry verifies a credential becomes eligible again once its
// cooldown window has passed.
func TestCooldownExpiry(t *testing.T) {
	p := New([]string{"key-a", "key-b"}, DefaultCooldown)

	clock := time.Now()
	p.now = func() time.Time { return clock }

	k, _ := p.Acquire()
	p.Release(k, false)

	clock = clock.Add(DefaultCooldown + time.Second)

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		got, _ := p.Acquire()
		seen[got] = true
	}
	if !seen[k] {
		t.Errorf("key %q still excluded after cooldown expired", k)
	}
}

// TestReleaseFloorsAtZero verifies the in-flight counter never goes negative.
func TestReleaseFloorsAtZero(t *testing.T) {
	p := New([]string{"key-a"}, DefaultCooldown)

	p.Release("key-a", true)
	p.Release("key-a", true)

	if n := p.inflight["key-a"]; n != 0 {
		t.Errorf("inflight = %d, want 0", n)
	}

	// Unknown keys are ignored, not tracked.
	p.Release("key-z", false)
	if _, ok := p.inflight["key-z"]; ok {
		t.Error("Release() must not create entries for unknown keys")
	}
}

// TestEmptyPoolFailsFast verifies that an empty pool returns ErrNoKeys
// immediately rather than blocking.
func TestEmptyPoolFailsFast(t *testing.T) {
	p := New(nil, DefaultCooldown)
	if _, err := p.Acquire(); err != ErrNoKeys {
		t.Errorf("Acquire() error = %v, want ErrNoKeys", err)
	}

	p = New([]string{"", ""}, DefaultCooldown)
	if _, err := p.Acquire(); err != ErrNoKeys {
		t.Errorf("Acquire() on blank-only keys = %v, want ErrNoKeys", err)
	}
}

// TestShuffledReturnsAllKeys verifies the failover iteration order contains
// every credential exactly once.
func TestShuffledReturnsAllKeys(t *testing.T) {
	keys := []string{"key-a", "key-b", "key-c", "key-d"}
	p := New(keys, DefaultCooldown)

	got := p.Shuffled()
	if len(got) != len(keys) {
		t.Fatalf("Shuffled() returned %d keys, want %d", len(got), len(keys))
	}
	seen := make(map[string]bool)
	for _, k := range got {
		seen[k] = true
	}
	for _, k := range keys {
		if !seen[k] {
			t.Errorf("Shuffled() missing key %q", k)
		}
	}
}

// TestFingerprintNeverEchoesKey verifies log fingerprints do not leak key material.
func TestFingerprintNeverEchoesKey(t *testing.T) {
	fp := Fingerprint("gsk_super_secret_key")
	if fp == "gsk_super_secret_key" || len(fp) != 8 {
		t.Errorf("Fingerprint() = %q, want 8 hex chars", fp)
	}
	if Fingerprint("") != "none" {
		t.Errorf("Fingerprint(\"\") = %q, want \"none\"", Fingerprint(""))
	}
}

// TestConcurrentAcquireRelease exercises the pool under concurrent callers.
func TestConcurrentAcquireRelease(t *testing.T) {
	p := New([]string{"key-a", "key-b", "key-c"}, DefaultCooldown)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			k, err := p.Acquire()
			if err != nil {
				t.Errorf("Acquire() error: %v", err)
				return
			}
			p.Release(k, n%7 != 0)
		}(i)
	}
	wg.Wait()

	for k, n := range p.inflight {
		if n != 0 {
			t.Errorf("inflight[%s] = %d after all releases, want 0", Fingerprint(k), n)
		}
		if n < 0 {
			t.Errorf("inflight[%s] negative", Fingerprint(k))
		}
	}
}
