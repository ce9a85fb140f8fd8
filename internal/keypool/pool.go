// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package keypool

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// DefaultCooldown is how long a credential is deprioritized after a failure.
const DefaultCooldown = 25 * time.Second

// ErrNoKeys is returned when the pool was constructed without any
// credentials. This is a configuration error: callers surface it once and
// must not retry.
var ErrNoKeys = errors.New("no API keys configured for provider")

// Pool tracks a fixed set of credentials for one provider and load-balances
// across them. Safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	// keys preserves insertion order; ties on in-flight count are broken
	// by this order.
	keys          []string
	inflight      map[string]int
	cooldownUntil map[string]time.Time

	cooldown time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a pool from the given keys. Blank keys are dropped. A
// cooldown of zero or less selects DefaultCooldown.
func New(keys []string, cooldown time.Duration) *Pool {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	p := &Pool{
		inflight:      make(map[string]int),
		cooldownUntil: make(map[string]time.Time),
		cooldown:      cooldown,
		now:           time.Now,
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := p.inflight[k]; dup {
			continue
		}
		p.keys = append(p.keys, k)
		p.inflight[k] = 0
		p.cooldownUntil[k] = time.Time{}
	}
	return p
}

// Len returns the number of credentials in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Acquire picks a credential and increments its in-flight count.
//
// Among credentials whose cooldown has expired, the one with the lowest
// in-flight count wins (insertion order breaks ties). If every credential is
// cooling down, the one whose cooldown expires soonest is returned anyway —
// graceful degradation, never a blocking wait. Only an empty pool fails.
func (p *Pool) Acquire() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", ErrNoKeys
	}

	now := p.now()

	var best string
	bestInflight := -1
	for _, k := range p.keys {
		if p.cooldownUntil[k].After(now) {
			continue
		}
		if bestInflight == -1 || p.inflight[k] < bestInflight {
			best = k
			bestInflight = p.inflight[k]
		}
	}

	if bestInflight == -1 {
		// Everything is cooling down: take the soonest to recover.
		best = p.keys[0]
		soonest := p.cooldownUntil[best]
		for _, k := range p.keys[1:] {
			if p.cooldownUntil[k].Before(soonest) {
				best = k
				soonest = p.cooldownUntil[k]
			}
		}
	}

	p.inflight[best]++
	return best, nil
}

// Release decrements the credential's in-flight count (floored at zero).
// When ok is false the credential enters cooldown for the configured window.
func (p *Pool) Release(key string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, known := p.inflight[key]; !known {
		return
	}
	if p.inflight[key] > 0 {
		p.inflight[key]--
	}
	if !ok {
		p.cooldownUntil[key] = p.now().Add(p.cooldown)
	}
}

// Shuffled returns the keys in randomized order. The search adapter walks
// this slice on failover so that no credential accumulates a persistent
// preference across turns.
func (p *Pool) Shuffled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.keys))
	copy(out, p.keys)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// KeyStatus describes one credential for status displays. The credential
// itself is never exposed, only its fingerprint.
type KeyStatus struct {
	Fingerprint string
	Inflight    int
	CoolingDown bool
}

// Snapshot returns the current per-credential state for status displays.
func (p *Pool) Snapshot() []KeyStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	out := make([]KeyStatus, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, KeyStatus{
			Fingerprint: Fingerprint(k),
			Inflight:    p.inflight[k],
			CoolingDown: p.cooldownUntil[k].After(now),
		})
	}
	return out
}

// Fingerprint returns a short SHA-256 fingerprint of a credential for
// logging. The key material itself must never appear in logs.
func Fingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}
