package lstore

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/store"
	storetesting "github.com/ValentinKolb/rKV/lib/store/testing"
)

func TestLocalStore(t *testing.T) {
	storetesting.RunIStoreTests(t, "lstore", func() store.IStore {
		return NewLocalStore(&Options{ExpiryInterval: 10 * time.Millisecond})
	})

	storetesting.RunIStoreTests(t, "lstore-no-sweep", func() store.IStore {
		return NewLocalStore(&Options{ExpiryInterval: -1})
	})
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestPurgeExpiredOrder tests that the sweep removes exactly the expired keys
func TestPurgeExpiredOrder(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := NewLocalStore(&Options{ExpiryInterval: -1, Now: clock.Now})
	defer s.Close()

	_ = s.SetE("a", []byte("1"), 1*time.Second)
	_ = s.SetE("b", []byte("2"), 3*time.Second)
	_ = s.SetE("c", []byte("3"), 2*time.Second)
	_ = s.Set("d", []byte("4"))

	clock.Advance(2 * time.Second)
	if n := s.PurgeExpired(); n != 2 {
		t.Errorf("Expected 2 purged keys, got %d", n)
	}
	if s.Len() != 2 {
		t.Errorf("Expected 2 remaining entries, got %d", s.Len())
	}
	if has, _ := s.Has("b"); !has {
		t.Error("Key b should still exist")
	}

	clock.Advance(time.Hour)
	if n := s.PurgeExpired(); n != 1 {
		t.Errorf("Expected 1 purged key, got %d", n)
	}
	if has, _ := s.Has("d"); !has {
		t.Error("Key without expiry should never be purged")
	}
	if got := s.expired.Get(); got != 3 {
		t.Errorf("Expected expired counter 3, got %d", got)
	}
}

// TestOverwriteMovesDeadline tests that SetE on an existing key replaces its deadline
func TestOverwriteMovesDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := NewLocalStore(&Options{ExpiryInterval: -1, Now: clock.Now})
	defer s.Close()

	_ = s.SetE("k", []byte("v1"), time.Second)
	_ = s.SetE("k", []byte("v2"), time.Minute)

	clock.Advance(2 * time.Second)
	if n := s.PurgeExpired(); n != 0 {
		t.Errorf("Expected no purged keys, got %d", n)
	}
	value, loaded, _ := s.Get("k")
	if !loaded || string(value) != "v2" {
		t.Errorf("Expected v2, got %q (loaded=%v)", value, loaded)
	}
}

// TestBackgroundSweep tests that expired keys are reclaimed without being read
func TestBackgroundSweep(t *testing.T) {
	s := NewLocalStore(&Options{ExpiryInterval: 5 * time.Millisecond})
	defer s.Close()

	for _, key := range []string{"a", "b", "c"} {
		_ = s.SetE(key, []byte("v"), 10*time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for s.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("Timeout waiting for sweep, %d entries left", s.Len())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// TestClosed tests that a closed store rejects all operations
func TestClosed(t *testing.T) {
	s := NewLocalStore(nil)
	_ = s.Set("k", []byte("v"))

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	_ = s.Close()

	var storeErr *store.Error
	if err := s.Set("k", []byte("v")); !errors.As(err, &storeErr) || storeErr.Code != store.RetCClosed {
		t.Errorf("Expected RetCClosed, got %v", err)
	}
	if _, _, err := s.Get("k"); err == nil {
		t.Error("Expected Get on closed store to fail")
	}
	if _, err := s.Delete("k"); err == nil {
		t.Error("Expected Delete on closed store to fail")
	}
	if _, err := s.Has("k"); err == nil {
		t.Error("Expected Has on closed store to fail")
	}
}
