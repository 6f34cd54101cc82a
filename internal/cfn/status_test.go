package cfn

import "testing"

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status          string
		success         bool
		failure         bool
		deleted         bool
		inProgress      bool
		creationFailure bool
	}{
		{status: "CREATE_COMPLETE", success: true},
		{status: "UPDATE_COMPLETE", success: true},
		{status: "DELETE_COMPLETE", success: true, deleted: true},
		{status: "CREATE_FAILED", failure: true, creationFailure: true},
		{status: "DELETE_FAILED", failure: true},
		{status: "ROLLBACK_COMPLETE", creationFailure: true},
		{status: "UPDATE_ROLLBACK_COMPLETE"},
		{status: "ROLLBACK_FAILED", failure: true, creationFailure: true},
		{status: "CREATE_IN_PROGRESS", inProgress: true},
		{status: "UPDATE_IN_PROGRESS", inProgress: true},
		{status: "DELETE_IN_PROGRESS", inProgress: true},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			s := StackStatus{Name: tt.status}
			if got := s.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := s.IsFailure(); got != tt.failure {
				t.Errorf("IsFailure() = %v, want %v", got, tt.failure)
			}
			if got := s.IsDeleted(); got != tt.deleted {
				t.Errorf("IsDeleted() = %v, want %v", got, tt.deleted)
			}
			if got := s.IsInProgress(); got != tt.inProgress {
				t.Errorf("IsInProgress() = %v, want %v", got, tt.inProgress)
			}
			if got := s.IsCreationFailure(); got != tt.creationFailure {
				t.Errorf("IsCreationFailure() = %v, want %v", got, tt.creationFailure)
			}
		})
	}
}

func TestStatusString(t *testing.T) {
	s := StackStatus{Name: "CREATE_FAILED", Reason: "Resource limit exceeded"}
	if got := s.String(); got != "CREATE_FAILED (Resource limit exceeded)" {
		t.Errorf("unexpected String(): %q", got)
	}
	bare := StackStatus{Name: "CREATE_COMPLETE"}
	if got := bare.String(); got != "CREATE_COMPLETE" {
		t.Errorf("unexpected String(): %q", got)
	}
}
