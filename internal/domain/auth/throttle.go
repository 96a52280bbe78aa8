package auth

import (
	"sync"
	"time"
)

// ThrottlePolicy tunes the login brute-force deterrent.
type ThrottlePolicy struct {
	MaxFailures int
	Lockout     time.Duration
	// RecordTTL prunes records that never reached the threshold.
	RecordTTL time.Duration
}

// DefaultThrottlePolicy matches the documented lockout behaviour: 5 failures
// open a 15 minute lockout, stale records expire after 30 minutes.
func DefaultThrottlePolicy() ThrottlePolicy {
	return ThrottlePolicy{
		MaxFailures: 5,
		Lockout:     15 * time.Minute,
		RecordTTL:   30 * time.Minute,
	}
}

type attemptRecord struct {
	failureCount   int
	firstFailureAt time.Time
	lockedUntil    time.Time
}

// ThrottleStatus is the answer to "may this address attempt a login".
type ThrottleStatus struct {
	Allowed           bool
	AttemptsRemaining int
	LockedFor         time.Duration
}

// Throttle is the per-address login failure counter. State is deliberately
// process-local and lost on restart: a restart is an amnesty, the password
// hash and TOTP remain the actual security boundary.
type Throttle struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
	policy  ThrottlePolicy
	now     func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// NewThrottle builds a throttle with the given policy.
func NewThrottle(policy ThrottlePolicy) *Throttle {
	if policy.MaxFailures <= 0 {
		policy.MaxFailures = 5
	}
	if policy.Lockout <= 0 {
		policy.Lockout = 15 * time.Minute
	}
	if policy.RecordTTL <= 0 {
		policy.RecordTTL = 30 * time.Minute
	}
	return &Throttle{
		records: make(map[string]*attemptRecord),
		policy:  policy,
		now:     time.Now,
	}
}

// Check reports whether the address may attempt a login right now.
func (t *Throttle) Check(clientAddress string) ThrottleStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.liveRecord(clientAddress)
	if rec == nil {
		return ThrottleStatus{Allowed: true, AttemptsRemaining: t.policy.MaxFailures}
	}
	now := t.now()
	if now.Before(rec.lockedUntil) {
		return ThrottleStatus{LockedFor: rec.lockedUntil.Sub(now)}
	}
	return ThrottleStatus{
		Allowed:           true,
		AttemptsRemaining: t.policy.MaxFailures - rec.failureCount,
	}
}

// RecordFailure counts one failed attempt and returns the post-failure state.
// Tipping the counter over the threshold opens the lockout.
func (t *Throttle) RecordFailure(clientAddress string) ThrottleStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec := t.liveRecord(clientAddress)
	if rec == nil {
		rec = &attemptRecord{firstFailureAt: now}
		t.records[clientAddress] = rec
	}
	rec.failureCount++
	if rec.failureCount >= t.policy.MaxFailures {
		rec.lockedUntil = now.Add(t.policy.Lockout)
		return ThrottleStatus{LockedFor: t.policy.Lockout}
	}
	return ThrottleStatus{
		Allowed:           true,
		AttemptsRemaining: t.policy.MaxFailures - rec.failureCount,
	}
}

// Reset clears the record for an address, called on full login success.
func (t *Throttle) Reset(clientAddress string) {
	t.mu.Lock()
	delete(t.records, clientAddress)
	t.mu.Unlock()
}

// liveRecord returns the record for the address, discarding it when the
// lockout has expired or the record has gone stale. Caller holds the lock.
func (t *Throttle) liveRecord(clientAddress string) *attemptRecord {
	rec, ok := t.records[clientAddress]
	if !ok {
		return nil
	}
	now := t.now()
	if !rec.lockedUntil.IsZero() {
		if now.Before(rec.lockedUntil) {
			return rec
		}
		// An expired lockout is treated as if no record existed.
		delete(t.records, clientAddress)
		return nil
	}
	if now.Sub(rec.firstFailureAt) > t.policy.RecordTTL {
		delete(t.records, clientAddress)
		return nil
	}
	return rec
}

// StartSweep launches the periodic prune of stale records to bound memory.
func (t *Throttle) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = 20 * time.Minute
	}
	t.sweepStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.prune()
			case <-t.sweepStop:
				return
			}
		}
	}()
}

// StopSweep halts the background prune.
func (t *Throttle) StopSweep() {
	if t.sweepStop == nil {
		return
	}
	t.sweepOnce.Do(func() {
		close(t.sweepStop)
	})
}

func (t *Throttle) prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for addr, rec := range t.records {
		if !rec.lockedUntil.IsZero() {
			if !now.Before(rec.lockedUntil) {
				delete(t.records, addr)
			}
			continue
		}
		if now.Sub(rec.firstFailureAt) > t.policy.RecordTTL {
			delete(t.records, addr)
		}
	}
}
