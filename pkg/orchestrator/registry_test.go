package orchestrator

import (
	"fmt"
	"sync"
	"testing"
)

func entryFor(name string) CompensationEntry {
	return CompensationEntry{
		Step:     &Step{ID: name, Name: name},
		Resource: ResourceRef{RemoteID: name},
	}
}

func TestRegistry_DrainIsLIFO(t *testing.T) {
	r := newCompensationRegistry()
	r.push(entryFor("first"))
	r.push(entryFor("second"))
	r.push(entryFor("third"))

	entries := r.drain()

	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	want := []string{"third", "second", "first"}
	for i, name := range want {
		if entries[i].Step.Name != name {
			t.Errorf("Expected entry %d = %s, got %s", i, name, entries[i].Step.Name)
		}
	}
}

func TestRegistry_DrainOnce(t *testing.T) {
	r := newCompensationRegistry()
	r.push(entryFor("only"))

	if got := r.drain(); len(got) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(got))
	}
	if got := r.drain(); got != nil {
		t.Errorf("Expected nil on second drain, got %v", got)
	}
}

func TestRegistry_PushAfterDrainPanics(t *testing.T) {
	r := newCompensationRegistry()
	r.drain()

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on push after drain")
		}
	}()
	r.push(entryFor("late"))
}

func TestRegistry_ResourcesInPushOrder(t *testing.T) {
	r := newCompensationRegistry()
	r.push(entryFor("a"))
	r.push(entryFor("b"))

	refs := r.resources()
	if len(refs) != 2 || refs[0].RemoteID != "a" || refs[1].RemoteID != "b" {
		t.Errorf("Expected resources in push order, got %v", refs)
	}
	if r.len() != 2 {
		t.Errorf("Expected len 2, got %d", r.len())
	}
}

func TestRegistry_ConcurrentPush(t *testing.T) {
	r := newCompensationRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.push(entryFor(fmt.Sprintf("step-%d", n)))
		}(i)
	}
	wg.Wait()

	if r.len() != 50 {
		t.Errorf("Expected 50 entries, got %d", r.len())
	}
}
