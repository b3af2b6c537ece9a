package pool

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

// TestQueueBasicOperations tests push and receive in order for a single producer
func TestQueueBasicOperations(t *testing.T) {
	q := NewQueue[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		if !q.Push(i) {
			t.Fatalf("Failed to push item %d", i)
		}
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %d", i, val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("Queue should be empty, but got %d", val)
	case <-time.After(10 * time.Millisecond):
	}
}

// TestQueueCloseDrains tests that closing keeps queued items and then closes the channel
func TestQueueCloseDrains(t *testing.T) {
	q := NewQueue[int]()

	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	q.Close()

	if q.Push(100) {
		t.Error("Should not be able to push after queue is closed")
	}
	if !q.IsClosed() {
		t.Error("Queue should report closed")
	}

	for i := 0; i < 5; i++ {
		select {
		case val := <-q.Recv():
			if val != i {
				t.Errorf("Expected %d, got %d", i, val)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for item %d after close", i)
		}
	}

	select {
	case _, ok := <-q.Recv():
		if ok {
			t.Error("Channel should be closed but is still open")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for channel to close")
	}

	// closing twice is fine
	q.Close()
}

// TestQueueConcurrentProducersConsumers tests many producers and many consumers
func TestQueueConcurrentProducersConsumers(t *testing.T) {
	q := NewQueue[int]()

	const numProducers = 8
	const itemsPerProducer = 1000
	const numConsumers = 4

	var mu sync.Mutex
	received := make(map[int]bool)

	var consumers sync.WaitGroup
	for c := 0; c < numConsumers; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for val := range q.Recv() {
				mu.Lock()
				if received[val] {
					t.Errorf("Duplicate item received: %d", val)
				}
				received[val] = true
				mu.Unlock()
			}
		}()
	}

	var producers sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		producers.Add(1)
		go func(producerID int) {
			defer producers.Done()
			base := producerID * itemsPerProducer
			for i := 0; i < itemsPerProducer; i++ {
				if !q.Push(base + i) {
					t.Errorf("Producer %d failed to push item %d", producerID, i)
				}
				if i%100 == 0 {
					runtime.Gosched()
				}
			}
		}(p)
	}

	producers.Wait()
	q.Close()

	done := make(chan struct{})
	go func() {
		consumers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for consumers to finish")
	}

	if len(received) != numProducers*itemsPerProducer {
		t.Errorf("Expected %d items, got %d", numProducers*itemsPerProducer, len(received))
	}
}

// TestQueueIdleWakeup tests that a push after an idle period is delivered
func TestQueueIdleWakeup(t *testing.T) {
	q := NewQueue[string]()
	defer q.Close()

	for i := 0; i < 100; i++ {
		// give the pump time to go to sleep
		if i%10 == 0 {
			time.Sleep(time.Millisecond)
		}
		q.Push("x")
		select {
		case <-q.Recv():
		case <-time.After(time.Second):
			t.Fatalf("Lost wakeup at push %d", i)
		}
	}
}

func BenchmarkQueuePush(b *testing.B) {
	q := NewQueue[int]()
	go func() {
		for range q.Recv() {
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			i++
		}
	})
	b.StopTimer()
	q.Close()
}
