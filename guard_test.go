package resources

import (
	"sync"
	"testing"
	"time"

	"github.com/wippyai/resources/errors"
)

func TestGuard_ConcurrentReaders(t *testing.T) {
	c := New()
	Insert(c, name{Value: "x"})

	first, err := Get[name](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer first.Release()

	// A second reader must not block behind the first.
	done := make(chan string, 1)
	go func() {
		second, err := Get[name](c)
		if err != nil {
			done <- ""
			return
		}
		defer second.Release()
		done <- second.Value().Value
	}()

	select {
	case v := <-done:
		if v != "x" {
			t.Fatalf("Expected x, got %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second reader blocked behind first")
	}
}

func TestGuard_WriterWaitsForReaders(t *testing.T) {
	c := New()
	Insert(c, counter{})

	r1, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	r2, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		w, err := GetMut[counter](c)
		if err != nil {
			t.Errorf("GetMut failed: %v", err)
			close(acquired)
			return
		}
		w.Value().N = 1
		w.Release()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired while read guards outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	r1.Release()
	select {
	case <-acquired:
		t.Fatal("writer acquired while one read guard still outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	r2.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never acquired after readers released")
	}

	ref, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer ref.Release()
	if ref.Value().N != 1 {
		t.Fatalf("Expected writer's increment visible, got %d", ref.Value().N)
	}
}

func TestGuard_ReaderWaitsForWriter(t *testing.T) {
	c := New()
	Insert(c, counter{})

	w, err := GetMut[counter](c)
	if err != nil {
		t.Fatalf("GetMut failed: %v", err)
	}

	observed := make(chan int, 1)
	go func() {
		r, err := Get[counter](c)
		if err != nil {
			observed <- -1
			return
		}
		defer r.Release()
		observed <- r.Value().N
	}()

	select {
	case <-observed:
		t.Fatal("reader acquired while write guard outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	w.Value().N = 42
	w.Release()

	select {
	case n := <-observed:
		if n != 42 {
			t.Fatalf("Expected reader to observe 42, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader never acquired after writer released")
	}
}

func TestGuard_TryVariants(t *testing.T) {
	c := New()
	Insert(c, counter{})

	r, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Read guard outstanding: TryGet fine, TryGetMut busy.
	tr, err := TryGet[counter](c)
	if err != nil {
		t.Fatalf("TryGet under read guard failed: %v", err)
	}
	tr.Release()

	if _, err := TryGetMut[counter](c); !errors.IsBusy(err) {
		t.Fatalf("Expected busy error, got %v", err)
	}
	r.Release()

	w, err := TryGetMut[counter](c)
	if err != nil {
		t.Fatalf("TryGetMut after release failed: %v", err)
	}

	// Write guard outstanding: both try variants busy.
	if _, err := TryGet[counter](c); !errors.IsBusy(err) {
		t.Fatalf("Expected busy error, got %v", err)
	}
	if _, err := TryGetMut[counter](c); !errors.IsBusy(err) {
		t.Fatalf("Expected busy error, got %v", err)
	}
	w.Release()
}

func TestGuard_ReleaseIdempotent(t *testing.T) {
	c := New()
	Insert(c, counter{})

	r, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	r.Release()
	r.Release()

	w, err := GetMut[counter](c)
	if err != nil {
		t.Fatalf("GetMut failed: %v", err)
	}
	w.Release()
	w.Release()

	// The slot must still be in a clean unheld state.
	w2, err := TryGetMut[counter](c)
	if err != nil {
		t.Fatalf("TryGetMut after double release failed: %v", err)
	}
	w2.Release()
}

func TestGuard_UseAfterReleasePanics(t *testing.T) {
	c := New()
	Insert(c, counter{})

	r, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	r.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("Value after Release should panic")
		}
	}()
	r.Value()
}

func TestGuard_SetReplacesValue(t *testing.T) {
	c := New()
	Insert(c, name{Value: "a"})

	w, err := GetMut[name](c)
	if err != nil {
		t.Fatalf("GetMut failed: %v", err)
	}
	w.Set(name{Value: "b"})
	w.Release()

	r, err := Get[name](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer r.Release()
	if r.Value().Value != "b" {
		t.Fatalf("Expected b, got %q", r.Value().Value)
	}
}

func TestGuard_ManyConcurrentWriters(t *testing.T) {
	c := New()
	Insert(c, counter{})

	const writers = 32
	const perWriter = 50

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				w, err := GetMut[counter](c)
				if err != nil {
					t.Errorf("GetMut failed: %v", err)
					return
				}
				w.Value().N++
				w.Release()
			}
		}()
	}
	wg.Wait()

	r, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer r.Release()
	if r.Value().N != writers*perWriter {
		t.Fatalf("Expected %d increments, got %d", writers*perWriter, r.Value().N)
	}
}
