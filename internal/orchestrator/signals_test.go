package orchestrator

import (
	"testing"
)

func TestSignalManagerCancelAndClear(t *testing.T) {
	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatalf("new signal manager: %v", err)
	}
	defer sm.Close()

	if sm.Cancelled("s1") {
		t.Fatal("fresh session should not be cancelled")
	}

	if err := sm.CancelSession("s1"); err != nil {
		t.Fatalf("cancel session: %v", err)
	}
	// Cancelled stats the file directly, no need to wait for the watcher.
	if !sm.Cancelled("s1") {
		t.Fatal("expected session s1 cancelled")
	}
	if sm.Cancelled("s2") {
		t.Fatal("session s2 should be unaffected")
	}

	sm.Clear("s1")
	if sm.Cancelled("s1") {
		t.Fatal("expected session s1 clear after Clear")
	}
}

func TestSessionFromSignal(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"cancel-abc123", "abc123", true},
		{"cancel-", "", false},
		{"kill", "", false},
		{"cancelabc", "", false},
	}
	for _, tt := range tests {
		got, ok := sessionFromSignal(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("sessionFromSignal(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
