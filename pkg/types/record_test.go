package types

import (
	"testing"
	"time"
)

func TestRecordValidate(t *testing.T) {
	valid := PersistenceRecord{
		ComponentID:   ComponentTag,
		CorrelationID: "0192f7a0-1111-7000-8000-000000000000",
		InstalledAt:   time.Now().UTC(),
		Status:        StatusInstalled,
	}

	tests := []struct {
		name    string
		mutate  func(r *PersistenceRecord)
		wantErr error
	}{
		{"valid", func(r *PersistenceRecord) {}, nil},
		{"unknown component", func(r *PersistenceRecord) { r.ComponentID = "rootkit" }, ErrInvalidComponent},
		{"missing correlation id", func(r *PersistenceRecord) { r.CorrelationID = "" }, ErrInvalidRecord},
		{"zero installed at", func(r *PersistenceRecord) { r.InstalledAt = time.Time{} }, ErrInvalidRecord},
		{"unknown status", func(r *PersistenceRecord) { r.Status = "pending" }, ErrInvalidRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRollbackOrderReversesInstallOrder(t *testing.T) {
	install := InstallOrder()
	rollback := RollbackOrder()
	if len(install) != len(rollback) {
		t.Fatalf("order length mismatch: %d vs %d", len(install), len(rollback))
	}
	for i := range install {
		if install[i] != rollback[len(rollback)-1-i] {
			t.Errorf("rollback[%d] = %s, want %s", len(rollback)-1-i, rollback[len(rollback)-1-i], install[i])
		}
	}
	// Loops must be stopped before the one-shot footprints are undone.
	if rollback[0] != ComponentReportForge || rollback[1] != ComponentLogInject {
		t.Errorf("rollback order must start with the loop components, got %v", rollback)
	}
}

func TestReportOutcomes(t *testing.T) {
	r := &Report{Operation: "install"}
	r.Add(ComponentTag, OutcomeOK, nil)
	r.Add(ComponentService, OutcomeFailed, ErrNotPrivileged)
	r.Add(ComponentLogInject, OutcomeDegraded, &PartialFailure{
		Op:     "restore",
		Failed: []ResourceFailure{{Path: "/x", Err: "permission denied"}},
	})

	if r.OK() {
		t.Error("OK() = true with a failed outcome")
	}
	if !r.Degraded() {
		t.Error("Degraded() = false with a degraded outcome")
	}
	if got := r.Outcome(ComponentService); got == nil || got.Error == "" {
		t.Errorf("Outcome(service) = %+v, want failure text", got)
	}
	if got := r.Outcome(ComponentReportForge); got != nil {
		t.Errorf("Outcome(reportforge) = %+v, want nil", got)
	}
}

func TestPartialFailureError(t *testing.T) {
	pf := &PartialFailure{Op: "restore", Failed: []ResourceFailure{
		{Path: "/a", Err: "busy"},
		{Path: "/b", Err: "gone"},
	}}
	got := pf.Error()
	want := "restore failed for 2 resource(s): /a, /b"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if _, ok := AsPartialFailure(pf); !ok {
		t.Error("AsPartialFailure failed to unwrap a PartialFailure")
	}
	if _, ok := AsPartialFailure(ErrNotFound); ok {
		t.Error("AsPartialFailure matched a plain sentinel")
	}
}
