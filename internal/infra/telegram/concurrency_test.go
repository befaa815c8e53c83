package telegram

import (
	"sync"
	"testing"
	"time"
)

func TestDedupWindow(t *testing.T) {
	d := newDedup(50 * time.Millisecond)

	if d.seen(-300, 1) {
		t.Error("first delivery should not be a duplicate")
	}
	if !d.seen(-300, 1) {
		t.Error("second delivery within the window should be a duplicate")
	}
	if d.seen(-300, 2) {
		t.Error("different message id is not a duplicate")
	}
	if d.seen(-301, 1) {
		t.Error("different chat is not a duplicate")
	}

	time.Sleep(60 * time.Millisecond)
	if d.seen(-300, 1) {
		t.Error("delivery after the window should pass again")
	}
}

func TestChatLocksSerializePerChat(t *testing.T) {
	locks := newChatLocks()

	var mu sync.Mutex
	order := []int{}
	record := func(n int) {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
	}

	unlock := locks.lock(-300)
	done := make(chan struct{})
	go func() {
		u := locks.lock(-300)
		record(2)
		u()
		close(done)
	}()

	// The other chat's lock must not block.
	u2 := locks.lock(-400)
	u2()

	time.Sleep(10 * time.Millisecond)
	record(1)
	unlock()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want holder first, waiter second", order)
	}
}
