package lstore

import (
	"sync"
	"time"

	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/lib/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("store")

// DefaultExpiryInterval is the default period of the background expiry sweep
const DefaultExpiryInterval = 100 * time.Millisecond

// Options configures a LocalStore
type Options struct {
	// ExpiryInterval is the period of the background sweep that purges expired keys.
	// Zero uses DefaultExpiryInterval, a negative value disables the sweep
	// (expired keys are still invisible to readers).
	ExpiryInterval time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the default store options
func DefaultOptions() *Options {
	return &Options{
		ExpiryInterval: DefaultExpiryInterval,
		Now:            time.Now,
	}
}

// entry is one stored value. expiresAt is a unix nano deadline, 0 means never.
type entry struct {
	value     []byte
	expiresAt int64
}

func (e entry) expired(now int64) bool {
	return e.expiresAt != 0 && e.expiresAt <= now
}

// LocalStore is an in-memory store.IStore. All state is guarded by one mutex
// that is only held for the duration of a single map operation.
type LocalStore struct {
	mu      sync.Mutex
	entries map[string]entry
	expiry  *util.MapHeap[string] // keys with a deadline, earliest first
	closed  bool

	now func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	set     *metrics.Set
	expired *metrics.Counter
}

// NewLocalStore creates a new local store and starts its expiry sweep.
// A nil opts uses DefaultOptions. Call Close to stop the sweep.
func NewLocalStore(opts *Options) *LocalStore {
	if opts == nil {
		opts = DefaultOptions()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.ExpiryInterval
	if interval == 0 {
		interval = DefaultExpiryInterval
	}

	s := &LocalStore{
		entries: make(map[string]entry),
		expiry:  util.NewMapHeap[string](),
		now:     now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		set:     metrics.NewSet(),
	}
	s.expired = s.set.NewCounter("rkv_store_expired_keys_total")
	s.set.NewGauge("rkv_store_keys", func() float64 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return float64(len(s.entries))
	})

	if interval > 0 {
		go s.sweep(interval)
	} else {
		close(s.done)
	}
	return s
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *LocalStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed()
	}
	s.entries[key] = entry{value: clone(value)}
	s.expiry.RemoveByKey(key)
	return nil
}

func (s *LocalStore) SetE(key string, value []byte, expireIn time.Duration) error {
	if expireIn < 0 {
		return store.NewError(store.RetCInvalidOperation, "expiry must not be negative")
	}
	if expireIn == 0 {
		return s.Set(key, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed()
	}
	deadline := s.now().Add(expireIn).UnixNano()
	s.entries[key] = entry{value: clone(value), expiresAt: deadline}
	s.expiry.AddItem(key, deadline)
	return nil
}

func (s *LocalStore) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, errClosed()
	}
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	s.expiry.RemoveByKey(key)
	return !e.expired(s.now().UnixNano()), nil
}

func (s *LocalStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, errClosed()
	}
	e, ok := s.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return clone(e.value), true, nil
}

func (s *LocalStore) Has(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, errClosed()
	}
	_, ok := s.lookup(key)
	return ok, nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close stops the expiry sweep. Every operation after Close fails with RetCClosed.
func (s *LocalStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		s.closed = true
		s.entries = make(map[string]entry)
		s.expiry = util.NewMapHeap[string]()
		s.mu.Unlock()
	})
	return nil
}

// Len returns the number of stored entries, including expired ones not purged yet
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Metrics returns the metric set of this store
func (s *LocalStore) Metrics() *metrics.Set {
	return s.set
}

// PurgeExpired removes every entry whose deadline has passed and returns how many were removed.
// Entries are visited in deadline order, so this stops at the first live entry.
func (s *LocalStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixNano()
	purged := 0
	for {
		key, deadline, ok := s.expiry.Peek()
		if !ok || deadline > now {
			break
		}
		s.expiry.PopMin()
		delete(s.entries, key)
		purged++
	}
	if purged > 0 {
		s.expired.Add(purged)
	}
	return purged
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// lookup returns the live entry for key. An expired entry is removed on access.
// The caller must hold s.mu.
func (s *LocalStore) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now().UnixNano()) {
		delete(s.entries, key)
		s.expiry.RemoveByKey(key)
		s.expired.Inc()
		return entry{}, false
	}
	return e, true
}

// sweep periodically purges expired keys until the store is closed
func (s *LocalStore) sweep(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.PurgeExpired(); n > 0 {
				log.Debugf("purged %d expired keys", n)
			}
		}
	}
}

func clone(value []byte) []byte {
	out := make([]byte, len(value))
	copy(out, value)
	return out
}

func errClosed() error {
	return store.NewError(store.RetCClosed, "store is closed")
}

var _ store.IStore = (*LocalStore)(nil)
