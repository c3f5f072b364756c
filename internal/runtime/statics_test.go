package runtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quill/internal/object"
)

func TestStaticTableInitOnce(t *testing.T) {
	st := NewStaticTable()
	var inits atomic.Int32
	init := func() (object.Value, error) {
		inits.Add(1)
		return &object.Int{Value: 7}, nil
	}

	cells := make([]*object.Cell, 16)
	var wg sync.WaitGroup
	for i := range cells {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := st.Cell("f", 0, init)
			if err != nil {
				t.Error(err)
				return
			}
			cells[i] = c
		}(i)
	}
	wg.Wait()
	for _, c := range cells[1:] {
		if c != cells[0] {
			t.Fatalf("static declaration got more than one cell")
		}
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}

	other, _ := st.Cell("f", 1, init)
	if other == cells[0] || st.Len() != 2 {
		t.Errorf("second declaration shares the first one's cell")
	}
}

func TestOwnerLockReentrant(t *testing.T) {
	l := newOwnerLock()
	a := NewEnv(context.Background(), nil, nil)
	b := NewEnv(context.Background(), nil, nil)

	if err := l.Lock(a); err != nil {
		t.Fatal(err)
	}
	if err := l.Lock(a); err != nil { // recursion in the same Env does not deadlock
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := l.Lock(b); err != nil {
			t.Error(err)
			return
		}
		close(acquired)
		l.Unlock(b)
	}()

	l.Unlock(a)
	select {
	case <-acquired:
		t.Fatalf("lock taken by another Env while still held")
	case <-time.After(20 * time.Millisecond):
	}
	l.Unlock(a)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("lock not handed over after release")
	}
}

func TestOwnerLockCancelled(t *testing.T) {
	l := newOwnerLock()
	a := NewEnv(context.Background(), nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	b := NewEnv(ctx, nil, nil)

	if err := l.Lock(a); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- l.Lock(b) }()
	select {
	case err := <-done:
		if err != context.DeadlineExceeded {
			t.Errorf("Lock() = %v, want %v", err, context.DeadlineExceeded)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter did not give up when its context ended")
	}

	// the holder is unaffected and the lock is free afterwards
	l.Unlock(a)
	if err := l.Lock(NewEnv(context.Background(), nil, nil)); err != nil {
		t.Errorf("lock not free after release: %v", err)
	}
}

func TestOwnerLockForeignUnlock(t *testing.T) {
	l := newOwnerLock()
	a := NewEnv(context.Background(), nil, nil)
	b := NewEnv(context.Background(), nil, nil)
	if err := l.Lock(a); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("release by a non owner did not panic")
		}
	}()
	l.Unlock(b)
}
