package util

import (
	"sort"
	"testing"
)

// TestNewMapHeap tests the creation of a new MapHeap
func TestNewMapHeap(t *testing.T) {
	mh := NewMapHeap[string]()

	if mh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", mh.Len())
	}
	if _, _, ok := mh.Peek(); ok {
		t.Error("Peek on empty heap should return ok=false")
	}
	if _, _, ok := mh.PopMin(); ok {
		t.Error("PopMin on empty heap should return ok=false")
	}
}

// TestAddItem tests adding items and the min-heap order
func TestAddItem(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 50)

	if mh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", mh.Len())
	}
	for _, key := range []string{"a", "b", "c"} {
		if !mh.Contains(key) {
			t.Errorf("Heap should contain key %s", key)
		}
	}

	key, priority, ok := mh.Peek()
	if !ok {
		t.Fatal("Peek() should return an item")
	}
	if key != "c" || priority != 50 {
		t.Errorf("Expected min item to be (c,50), got (%s,%d)", key, priority)
	}
}

// TestUpdateItem tests that re-adding a key changes its priority
func TestUpdateItem(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("a", 300)

	if mh.Len() != 2 {
		t.Errorf("Update should not add a second item, length is %d", mh.Len())
	}
	if p, _ := mh.GetPriority("a"); p != 300 {
		t.Errorf("Item a should have priority 300, got %d", p)
	}
	if key, _, _ := mh.Peek(); key != "b" {
		t.Errorf("Min item should now be b, got %s", key)
	}

	mh.AddItem("b", 50)
	if key, priority, _ := mh.Peek(); key != "b" || priority != 50 {
		t.Errorf("Min item should now be (b,50), got (%s,%d)", key, priority)
	}
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	mh := NewMapHeap[string]()

	mh.AddItem("a", 100)
	mh.AddItem("b", 200)
	mh.AddItem("c", 300)

	priority, exists := mh.RemoveByKey("b")
	if !exists {
		t.Fatal("RemoveByKey should return true for existing key")
	}
	if priority != 200 {
		t.Errorf("RemoveByKey should return priority 200, got %d", priority)
	}
	if mh.Len() != 2 || mh.Contains("b") {
		t.Error("Key b should be gone after removal")
	}

	if _, exists = mh.RemoveByKey("zz"); exists {
		t.Error("RemoveByKey should return false for non-existent key")
	}
}

// TestPopOrder tests that items are popped by ascending priority
func TestPopOrder(t *testing.T) {
	mh := NewMapHeap[int]()

	items := []struct {
		key      int
		priority int64
	}{
		{5, 50}, {3, 30}, {1, 10}, {4, 40}, {2, 20}, {6, -5},
	}
	for _, it := range items {
		mh.AddItem(it.key, it.priority)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].priority < items[j].priority
	})

	for i, expected := range items {
		key, priority, ok := mh.PopMin()
		if !ok {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(items))
		}
		if key != expected.key || priority != expected.priority {
			t.Errorf("Pop %d: expected (%d,%d), got (%d,%d)", i, expected.key, expected.priority, key, priority)
		}
		if mh.Contains(key) {
			t.Errorf("Popped key %d should no longer be contained", key)
		}
	}

	if mh.Len() != 0 {
		t.Errorf("Heap should be empty after popping all items, has %d items", mh.Len())
	}
}

// TestLargeNumberOfItems tests heap order with many updates and removals
func TestLargeNumberOfItems(t *testing.T) {
	mh := NewMapHeap[int]()

	const n = 1000
	for i := 0; i < n; i++ {
		mh.AddItem(i, int64((i*7919)%n))
	}
	for i := 0; i < n; i += 3 {
		mh.RemoveByKey(i)
	}

	last := int64(-1)
	for mh.Len() > 0 {
		_, priority, _ := mh.PopMin()
		if priority < last {
			t.Fatalf("Heap order violated: %d after %d", priority, last)
		}
		last = priority
	}
}
