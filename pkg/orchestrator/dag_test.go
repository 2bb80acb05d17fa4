package orchestrator

import (
	"strings"
	"testing"
)

func TestBuildLevels_LinearChain(t *testing.T) {
	steps := []Step{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	}

	levels, err := newDAGBuilder().buildLevels(steps)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(levels) != 3 {
		t.Fatalf("Expected 3 levels, got %d", len(levels))
	}
	for i, want := range []string{"a", "b", "c"} {
		if len(levels[i]) != 1 || levels[i][0] != want {
			t.Errorf("Expected level %d = [%s], got %v", i, want, levels[i])
		}
	}

	// Depth is recorded on the steps themselves.
	if steps[2].Level != 2 {
		t.Errorf("Expected step c at level 2, got %d", steps[2].Level)
	}
}

func TestBuildLevels_SiblingsShareALevel(t *testing.T) {
	steps := []Step{
		{ID: "root"},
		{ID: "z", DependsOn: []string{"root"}},
		{ID: "a", DependsOn: []string{"root"}},
		{ID: "m", DependsOn: []string{"root"}},
	}

	levels, err := newDAGBuilder().buildLevels(steps)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d", len(levels))
	}

	// Within a level, ordering is deterministic (sorted by ID).
	want := []string{"a", "m", "z"}
	for i, id := range want {
		if levels[1][i] != id {
			t.Errorf("Expected levels[1]=%v, got %v", want, levels[1])
			break
		}
	}
}

func TestBuildLevels_EmptyPlan(t *testing.T) {
	_, err := newDAGBuilder().buildLevels(nil)
	if err == nil {
		t.Fatal("Expected error for empty plan, got nil")
	}
}

func TestBuildLevels_DuplicateID(t *testing.T) {
	steps := []Step{{ID: "a"}, {ID: "a"}}

	_, err := newDAGBuilder().buildLevels(steps)
	if err == nil {
		t.Fatal("Expected error for duplicate step ID, got nil")
	}
	if !IsValidation(err) {
		t.Errorf("Expected validation class, got %s", ClassOf(err))
	}
}

func TestBuildLevels_UnknownDependency(t *testing.T) {
	steps := []Step{{ID: "a", DependsOn: []string{"missing"}}}

	_, err := newDAGBuilder().buildLevels(steps)
	if err == nil {
		t.Fatal("Expected error for unknown dependency, got nil")
	}
}

func TestBuildLevels_CycleDetected(t *testing.T) {
	steps := []Step{
		{ID: "a", DependsOn: []string{"c"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	}

	_, err := newDAGBuilder().buildLevels(steps)
	if err == nil {
		t.Fatal("Expected error for cycle, got nil")
	}
	if !strings.Contains(err.Error(), "circular") {
		t.Errorf("Expected circular-dependency message, got: %v", err)
	}
}

func TestBuildLevels_SelfDependency(t *testing.T) {
	steps := []Step{{ID: "a", DependsOn: []string{"a"}}}

	_, err := newDAGBuilder().buildLevels(steps)
	if err == nil {
		t.Fatal("Expected error for self dependency, got nil")
	}
}

func TestBuildLevels_Diamond(t *testing.T) {
	steps := []Step{
		{ID: "top"},
		{ID: "left", DependsOn: []string{"top"}},
		{ID: "right", DependsOn: []string{"top"}},
		{ID: "bottom", DependsOn: []string{"left", "right"}},
	}

	levels, err := newDAGBuilder().buildLevels(steps)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(levels) != 3 {
		t.Fatalf("Expected 3 levels, got %d", len(levels))
	}
	if len(levels[1]) != 2 {
		t.Errorf("Expected left and right at level 1, got %v", levels[1])
	}
	if levels[2][0] != "bottom" {
		t.Errorf("Expected bottom at level 2, got %v", levels[2])
	}
}

func TestToDOT(t *testing.T) {
	orch := New(newFakeClient())

	plan, err := orch.BuildPlan(Request{
		Workspace: WorkspaceSpec{Name: "Sales"},
		Channels:  []ChannelSpec{{Name: "General"}},
	})
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	dot := plan.ToDOT()

	if !strings.HasPrefix(dot, "digraph") {
		t.Error("Expected DOT output to start with digraph")
	}
	for _, want := range []string{"create-workspace", "create-channel-General", "->"} {
		if !strings.Contains(dot, want) {
			t.Errorf("Expected DOT output to contain %q", want)
		}
	}
}
