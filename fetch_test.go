package resources

import (
	"sync"
	"testing"
	"time"

	"github.com/wippyai/resources/errors"
)

func TestFetch_MixedModes(t *testing.T) {
	c := New()
	Insert(c, counter{N: 1})
	Insert(c, name{Value: "x"})

	b, err := Fetch(c, Write[counter](), Read[name]())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer b.Release()

	Mut[counter](b).N++
	if got := View[counter](b); got.N != 2 {
		t.Fatalf("Expected 2 through batch, got %d", got.N)
	}
	if got := View[name](b); got.Value != "x" {
		t.Fatalf("Expected x, got %q", got.Value)
	}
}

func TestFetch_EmptyAndSingle(t *testing.T) {
	c := New()
	Insert(c, counter{N: 5})

	b, err := Fetch(c)
	if err != nil {
		t.Fatalf("empty Fetch failed: %v", err)
	}
	b.Release()

	b, err = Fetch(c, Read[counter]())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer b.Release()
	if got := View[counter](b); got.N != 5 {
		t.Fatalf("Expected 5, got %d", got.N)
	}
}

func TestFetch_NotPresentReleasesEverything(t *testing.T) {
	c := New()
	Insert(c, counter{})
	// gauge never inserted

	_, err := Fetch(c, Write[counter](), Read[gauge]())
	if !errors.IsNotPresent(err) {
		t.Fatalf("Expected not-present error, got %v", err)
	}

	// The counter lock taken before the failure must have been released.
	w, err := TryGetMut[counter](c)
	if err != nil {
		t.Fatalf("counter lock leaked by failed Fetch: %v", err)
	}
	w.Release()
}

func TestFetch_DuplicateTypePanics(t *testing.T) {
	c := New()
	Insert(c, counter{})

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate type in one Fetch should panic")
		}
	}()
	Fetch(c, Read[counter](), Write[counter]())
}

func TestFetch_MutOnReadRequestPanics(t *testing.T) {
	c := New()
	Insert(c, counter{})

	b, err := Fetch(c, Read[counter]())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer b.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("Mut through a Read request should panic")
		}
	}()
	Mut[counter](b)
}

func TestFetch_UnrequestedTypePanics(t *testing.T) {
	c := New()
	Insert(c, counter{})
	Insert(c, name{Value: "x"})

	b, err := Fetch(c, Read[counter]())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	defer b.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("View of an unrequested type should panic")
		}
	}()
	View[name](b)
}

func TestFetch_ReleaseIdempotent(t *testing.T) {
	c := New()
	Insert(c, counter{})

	b, err := Fetch(c, Write[counter]())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	b.Release()
	b.Release()

	w, err := TryGetMut[counter](c)
	if err != nil {
		t.Fatalf("lock leaked after double Release: %v", err)
	}
	w.Release()
}

func TestFetch_WriteExcludesReaders(t *testing.T) {
	c := New()
	Insert(c, counter{})
	Insert(c, name{Value: "x"})

	b, err := Fetch(c, Write[counter](), Write[name]())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := Get[name](c)
		if err == nil {
			r.Release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired while batch write guard outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	b.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("reader never acquired after batch release")
	}
}

func TestFetch_ReversedOrdersNoDeadlock(t *testing.T) {
	c := New()
	Insert(c, counter{})
	Insert(c, name{Value: "x"})
	Insert(c, gauge{})

	// Two goroutines repeatedly fetch overlapping type sets in opposite
	// argument orders, with writes on both sides. Canonical acquisition
	// order means this must always run to completion.
	const rounds = 500

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			b, err := Fetch(c, Write[counter](), Read[name](), Write[gauge]())
			if err != nil {
				t.Errorf("Fetch failed: %v", err)
				return
			}
			Mut[counter](b).N++
			b.Release()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			b, err := Fetch(c, Write[gauge](), Write[name](), Read[counter]())
			if err != nil {
				t.Errorf("Fetch failed: %v", err)
				return
			}
			Mut[gauge](b).V++
			b.Release()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("reversed-order concurrent Fetch calls deadlocked")
	}

	r, err := Get[counter](c)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer r.Release()
	if r.Value().N != rounds {
		t.Fatalf("Expected %d counter increments, got %d", rounds, r.Value().N)
	}
}

func TestFetch_OverCeilingPanics(t *testing.T) {
	c := New()

	reqs := make([]Request, MaxFetch+1)
	for i := range reqs {
		reqs[i] = Read[counter]()
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("Fetch with %d requests should panic", MaxFetch+1)
		}
	}()
	Fetch(c, reqs...)
}
