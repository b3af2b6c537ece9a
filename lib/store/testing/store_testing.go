package testing

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/store"
)

// StoreFactory is a function that creates a new, empty instance of an IStore implementation
type StoreFactory func() store.IStore

// RunIStoreTests runs the common test suite for an IStore implementation.
func RunIStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("SetClearsExpiry", func(t *testing.T) {
			testSetClearsExpiry(t, factory())
		})

		t.Run("InvalidExpiry", func(t *testing.T) {
			testInvalidExpiry(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func closeStore(t testing.TB, s store.IStore) {
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}
}

func mustSet(t testing.TB, s store.IStore, key string, value []byte) {
	t.Helper()
	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(t testing.TB, s store.IStore, key string) ([]byte, bool) {
	t.Helper()
	value, loaded, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, loaded
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, s, testKey, testValue1)
	result, exists := mustGet(t, s, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, s, testKey, testValue2)
	result, exists = mustGet(t, s, testKey)
	if !exists || !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s after overwrite, got %s (exists=%v)", testValue2, result, exists)
	}

	if _, exists = mustGet(t, s, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// returned values must not alias the stored value
	result[0] = 'X'
	result, _ = mustGet(t, s, testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Modifying a returned value changed the store: got %s", result)
	}

	// neither may the value passed to Set
	input := []byte("input")
	mustSet(t, s, "input-key", input)
	input[0] = 'X'
	result, _ = mustGet(t, s, "input-key")
	if string(result) != "input" {
		t.Errorf("Modifying the input slice changed the store: got %s", result)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	mustSet(t, s, "key", []byte("value"))

	deleted, err := s.Delete("key")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("Expected Delete to report an existing key")
	}

	if _, exists := mustGet(t, s, "key"); exists {
		t.Error("Expected key to be gone after Delete")
	}

	deleted, err = s.Delete("key")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("Expected second Delete to report a missing key")
	}
}

func testHas(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	has, err := s.Has("key")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if has {
		t.Error("Expected Has to be false for a missing key")
	}

	mustSet(t, s, "key", []byte("value"))
	if has, _ = s.Has("key"); !has {
		t.Error("Expected Has to be true after Set")
	}

	if _, err := s.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if has, _ = s.Has("key"); has {
		t.Error("Expected Has to be false after Delete")
	}
}

func testKeyExpiry(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	if err := s.SetE("short", []byte("value"), 50*time.Millisecond); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	if err := s.SetE("long", []byte("value"), time.Hour); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}

	if _, exists := mustGet(t, s, "short"); !exists {
		t.Fatal("Expected key to exist before its deadline")
	}

	time.Sleep(200 * time.Millisecond)

	if _, exists := mustGet(t, s, "short"); exists {
		t.Error("Expected key to be gone after its deadline")
	}
	if has, _ := s.Has("short"); has {
		t.Error("Expected Has to be false after the deadline")
	}
	if deleted, _ := s.Delete("short"); deleted {
		t.Error("Expected Delete of an expired key to report a missing key")
	}
	if _, exists := mustGet(t, s, "long"); !exists {
		t.Error("Expected key with a long deadline to still exist")
	}
}

func testSetClearsExpiry(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	if err := s.SetE("key", []byte("old"), 50*time.Millisecond); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}
	mustSet(t, s, "key", []byte("new"))

	// zero expiry means no expiry
	if err := s.SetE("zero", []byte("value"), 0); err != nil {
		t.Fatalf("SetE failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	value, exists := mustGet(t, s, "key")
	if !exists || string(value) != "new" {
		t.Errorf("Expected Set to clear the previous expiry, got %q (exists=%v)", value, exists)
	}
	if _, exists := mustGet(t, s, "zero"); !exists {
		t.Error("Expected SetE with zero expiry to never expire")
	}
}

func testInvalidExpiry(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	if err := s.SetE("key", []byte("value"), -time.Second); err == nil {
		t.Error("Expected SetE with negative expiry to fail")
	}
	if _, exists := mustGet(t, s, "key"); exists {
		t.Error("Expected failed SetE to not store the key")
	}
}

func testEdgeCases(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	// empty key
	mustSet(t, s, "", []byte("empty-key"))
	if value, exists := mustGet(t, s, ""); !exists || string(value) != "empty-key" {
		t.Errorf("Empty key: got %q (exists=%v)", value, exists)
	}

	// empty value
	mustSet(t, s, "empty-value", []byte{})
	if value, exists := mustGet(t, s, "empty-value"); !exists || len(value) != 0 {
		t.Errorf("Empty value: got %q (exists=%v)", value, exists)
	}

	// binary value containing protocol delimiters
	binary := []byte("a\r\nb\x00c$-1\r\n*2\r\n")
	mustSet(t, s, "binary", binary)
	if value, _ := mustGet(t, s, "binary"); !bytes.Equal(value, binary) {
		t.Errorf("Binary value: expected %q, got %q", binary, value)
	}

	// large value
	large := bytes.Repeat([]byte("0123456789"), 100*1024)
	mustSet(t, s, "large", large)
	if value, _ := mustGet(t, s, "large"); !bytes.Equal(value, large) {
		t.Errorf("Large value: expected %d bytes, got %d", len(large), len(value))
	}

	// unicode key
	mustSet(t, s, "schlüssel-🔑", []byte("wert"))
	if value, _ := mustGet(t, s, "schlüssel-🔑"); string(value) != "wert" {
		t.Errorf("Unicode key: got %q", value)
	}
}

func testConcurrent(t *testing.T, s store.IStore) {
	defer closeStore(t, s)

	const goroutines = 8
	const opsPerGoroutine = 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				key := fmt.Sprintf("g%d-k%d", id, i)
				if err := s.Set(key, []byte(key)); err != nil {
					t.Errorf("Set(%q) failed: %v", key, err)
					return
				}
				if i%2 == 1 {
					if _, err := s.Delete(key); err != nil {
						t.Errorf("Delete(%q) failed: %v", key, err)
						return
					}
				}
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < goroutines; g++ {
		for i := 0; i < opsPerGoroutine; i++ {
			key := fmt.Sprintf("g%d-k%d", g, i)
			value, exists := mustGet(t, s, key)
			if i%2 == 1 && exists {
				t.Errorf("Key %s should have been deleted", key)
			}
			if i%2 == 0 && (!exists || string(value) != key) {
				t.Errorf("Key %s: expected own name as value, got %q (exists=%v)", key, value, exists)
			}
		}
	}
}
