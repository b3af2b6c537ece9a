// Package util contains small data structures shared by the store implementations.
package util

import (
	"container/heap"
	"fmt"
)

// item is one entry of the heap
type item[K comparable] struct {
	Key      K
	Priority int64
	index    int // maintained by the heap package
}

func (i *item[K]) String() string {
	return fmt.Sprintf("{Key: %v, Priority: %d}", i.Key, i.Priority)
}

// MapHeap is a min-heap ordered by priority that also allows O(1) lookup and
// O(log n) removal by key. Every key is present at most once.
//
// The store uses it as expiry index: the key is the entry name, the priority
// its deadline in unix nanoseconds, so the next key to expire is always at the top.
//
// MapHeap is not safe for concurrent use.
type MapHeap[K comparable] struct {
	items    []*item[K]
	itemsMap map[K]*item[K]
}

// NewMapHeap creates an empty heap
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items:    make([]*item[K], 0),
		itemsMap: make(map[K]*item[K]),
	}
}

// Len returns the number of items (part of heap.Interface)
func (h *MapHeap[K]) Len() int { return len(h.items) }

// Less orders items by ascending priority (part of heap.Interface)
func (h *MapHeap[K]) Less(i, j int) bool {
	return h.items[i].Priority < h.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (h *MapHeap[K]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push adds an item (part of heap.Interface, use AddItem instead)
func (h *MapHeap[K]) Push(x any) {
	it := x.(*item[K])
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.itemsMap[it.Key] = it
}

// Pop removes the last item (part of heap.Interface, use PopMin instead)
func (h *MapHeap[K]) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	h.items = old[:n-1]
	delete(h.itemsMap, it.Key)
	return it
}

// AddItem inserts key with the given priority or updates the priority of an existing key
func (h *MapHeap[K]) AddItem(key K, priority int64) {
	if it, exists := h.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &item[K]{Key: key, Priority: priority})
}

// RemoveByKey removes key and returns its priority
func (h *MapHeap[K]) RemoveByKey(key K) (int64, bool) {
	it, exists := h.itemsMap[key]
	if !exists {
		return 0, false
	}
	heap.Remove(h, it.index)
	return it.Priority, true
}

// Peek returns the key with the lowest priority without removing it
func (h *MapHeap[K]) Peek() (key K, priority int64, ok bool) {
	if len(h.items) == 0 {
		return key, 0, false
	}
	return h.items[0].Key, h.items[0].Priority, true
}

// PopMin removes and returns the key with the lowest priority
func (h *MapHeap[K]) PopMin() (key K, priority int64, ok bool) {
	if len(h.items) == 0 {
		return key, 0, false
	}
	it := heap.Pop(h).(*item[K])
	return it.Key, it.Priority, true
}

// Contains checks if key is in the heap
func (h *MapHeap[K]) Contains(key K) bool {
	_, exists := h.itemsMap[key]
	return exists
}

// GetPriority returns the priority of key
func (h *MapHeap[K]) GetPriority(key K) (int64, bool) {
	it, exists := h.itemsMap[key]
	if !exists {
		return 0, false
	}
	return it.Priority, true
}
