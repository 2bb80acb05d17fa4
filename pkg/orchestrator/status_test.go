package orchestrator

import "testing"

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusRolledBack, StatusRolledBackPartial}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("Expected %s terminal", s)
		}
	}

	live := []Status{StatusPlanning, StatusExecuting, StatusRollingBack}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("Expected %s not terminal", s)
		}
	}
}

func TestStatus_Validate(t *testing.T) {
	if err := StatusExecuting.Validate(); err != nil {
		t.Errorf("Expected valid status, got: %v", err)
	}
	if err := Status("limbo").Validate(); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestStatus_Transitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPlanning, StatusExecuting},
		{StatusExecuting, StatusSucceeded},
		{StatusExecuting, StatusRollingBack},
		{StatusRollingBack, StatusRolledBack},
		{StatusRollingBack, StatusRolledBackPartial},
	}
	for _, tr := range allowed {
		if !tr.from.canTransition(tr.to) {
			t.Errorf("Expected %s -> %s allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusPlanning, StatusSucceeded},
		{StatusSucceeded, StatusExecuting},
		{StatusRolledBack, StatusRollingBack},
		{StatusExecuting, StatusRolledBack},
		{StatusRollingBack, StatusSucceeded},
	}
	for _, tr := range forbidden {
		if tr.from.canTransition(tr.to) {
			t.Errorf("Expected %s -> %s forbidden", tr.from, tr.to)
		}
	}
}
