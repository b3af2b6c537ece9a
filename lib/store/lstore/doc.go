// Package lstore implements a local, in-memory key-value store based on the
// store.IStore interface. Data is not persisted between process restarts.
//
// Concurrency:
//
//	The whole store is guarded by a single mutex. Every operation takes the lock
//	for exactly one map access and releases it before returning, so the lock is
//	never held while a caller waits on network I/O. Values are copied on the way
//	in and on the way out; callers may modify slices they passed or received.
//
// Expiry:
//
//	SetE stores a deadline with the value and indexes the key in a min-heap
//	ordered by deadline. Readers treat an expired entry as absent and remove it.
//	A background sweep pops expired keys from the top of the heap in deadline
//	order every ExpiryInterval, so keys that are never read again are reclaimed
//	as well.
//
// Usage Example:
//
//	s := lstore.NewLocalStore(lstore.DefaultOptions())
//	defer s.Close()
//
//	// store a value with 5-minute expiration
//	err := s.SetE("session:123", sessionData, 5*time.Minute)
//
//	value, exists, err := s.Get("session:123")
package lstore
