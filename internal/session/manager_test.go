package session

import (
	"sync"
	"testing"
)

func TestGetOrCreate(t *testing.T) {
	m := NewManager()

	s1, created := m.GetOrCreate("10.0.0.1:50000")
	if !created {
		t.Fatal("first GetOrCreate should create")
	}
	if s1.ID == "" {
		t.Error("session should get an ID")
	}

	s2, created := m.GetOrCreate("10.0.0.1:50000")
	if created {
		t.Error("second GetOrCreate should not create")
	}
	if s1 != s2 {
		t.Error("same address must map to same session")
	}

	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	m := NewManager()

	const goroutines = 32
	var wg sync.WaitGroup
	created := make([]bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, c := m.GetOrCreate("10.0.0.1:50000")
			created[i] = c
		}(i)
	}
	wg.Wait()

	var total int
	for _, c := range created {
		if c {
			total++
		}
	}
	if total != 1 {
		t.Errorf("session created %d times, want exactly 1", total)
	}
}

func TestRemoveFiresOnSessionEnd(t *testing.T) {
	m := NewManager()

	var ended []*Session
	m.OnSessionEnd = func(s *Session) { ended = append(ended, s) }

	s, _ := m.GetOrCreate("10.0.0.1:50000")
	s.AddBytesUp(100)
	s.AddBytesDown(250)

	if err := m.Remove("10.0.0.1:50000"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(ended) != 1 || ended[0] != s {
		t.Fatalf("OnSessionEnd not fired for removed session")
	}
	if ended[0].BytesUp() != 100 || ended[0].BytesDown() != 250 {
		t.Errorf("byte counters lost: up=%d down=%d", ended[0].BytesUp(), ended[0].BytesDown())
	}

	if err := m.Remove("10.0.0.1:50000"); err == nil {
		t.Error("removing a missing session should error")
	}
}

func TestRemoveAll(t *testing.T) {
	m := NewManager()

	var ended int
	m.OnSessionEnd = func(*Session) { ended++ }

	m.GetOrCreate("10.0.0.1:50000")
	m.GetOrCreate("10.0.0.2:50000")
	m.GetOrCreate("10.0.0.3:50000")

	if n := m.RemoveAll(); n != 3 {
		t.Errorf("RemoveAll = %d, want 3", n)
	}
	if ended != 3 {
		t.Errorf("OnSessionEnd fired %d times, want 3", ended)
	}
	if m.Count() != 0 {
		t.Errorf("count = %d after RemoveAll", m.Count())
	}
}
