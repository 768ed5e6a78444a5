package models

import "testing"

func TestCollaborationStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status CollaborationStatus
		want   bool
	}{
		{CollaborationStatusPending, false},
		{CollaborationStatusAccepted, true},
		{CollaborationStatusRejected, true},
		{CollaborationStatusCancelled, true},
	}

	for _, tc := range tests {
		if got := tc.status.IsTerminal(); got != tc.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestIsValidCollaborationStatus(t *testing.T) {
	for _, status := range []CollaborationStatus{
		CollaborationStatusPending,
		CollaborationStatusAccepted,
		CollaborationStatusRejected,
		CollaborationStatusCancelled,
	} {
		if !IsValidCollaborationStatus(status) {
			t.Errorf("IsValidCollaborationStatus(%s) = false", status)
		}
	}
	if IsValidCollaborationStatus("archived") {
		t.Error("IsValidCollaborationStatus(archived) = true")
	}
}
