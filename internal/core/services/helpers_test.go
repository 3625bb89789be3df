package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/mocks"
)

const testPassword = "Str0ng!Pass"

type testEnv struct {
	svc       *RecordService
	store     *mocks.MockDocumentStore
	publisher *mocks.MockAlertPublisher
	generator *mocks.MockFeedbackGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mocks.NewMockDocumentStore()
	publisher := mocks.NewMockAlertPublisher()
	generator := mocks.NewMockFeedbackGenerator("Rest and drink water.")

	svc, err := NewRecordService(context.Background(), store, publisher, generator, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRecordService: %v", err)
	}
	return &testEnv{svc: svc, store: store, publisher: publisher, generator: generator}
}

// clock returns a now func that advances one second per call.
func clock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func (e *testEnv) register(t *testing.T, hospital, username string, role domain.Role) {
	t.Helper()
	outcome, err := e.svc.Register(context.Background(), RegistrationRequest{
		Username:   username,
		Password:   testPassword,
		Role:       role,
		HospitalID: hospital,
	})
	if err != nil {
		t.Fatalf("Register(%s, %s): %v", username, role, err)
	}
	if outcome != RegisterApproved && outcome != RegisterPending {
		t.Fatalf("Register(%s, %s) = %s", username, role, outcome)
	}
}

func (e *testEnv) approve(t *testing.T, hospital, username string, role domain.Role) {
	t.Helper()
	ok, err := e.svc.ApproveUser(context.Background(), hospital, username, role)
	if err != nil || !ok {
		t.Fatalf("ApproveUser(%s): ok=%v err=%v", username, ok, err)
	}
}

func (e *testEnv) assign(t *testing.T, hospital, patient, clinician string) {
	t.Helper()
	ok, err := e.svc.AssignClinician(context.Background(), hospital, patient, clinician)
	if err != nil || !ok {
		t.Fatalf("AssignClinician(%s, %s): ok=%v err=%v", patient, clinician, ok, err)
	}
}

// seedHospital creates H1 with admin1, clinicians clin1 and clin2, and
// patients p1 and p2. clin1 is assigned to p1.
func (e *testEnv) seedHospital(t *testing.T) {
	t.Helper()
	e.register(t, "H1", "admin1", domain.RoleAdmin)
	e.register(t, "H1", "clin1", domain.RoleClinician)
	e.register(t, "H1", "clin2", domain.RoleClinician)
	e.approve(t, "H1", "clin1", domain.RoleClinician)
	e.approve(t, "H1", "clin2", domain.RoleClinician)
	e.register(t, "H1", "p1", domain.RolePatient)
	e.register(t, "H1", "p2", domain.RolePatient)
	e.assign(t, "H1", "p1", "clin1")
}

func (e *testEnv) addNote(t *testing.T, note domain.Note) domain.Note {
	t.Helper()
	stored, err := e.svc.AddNote(context.Background(), "H1", note)
	if err != nil || stored == nil {
		t.Fatalf("AddNote: stored=%v err=%v", stored, err)
	}
	return *stored
}

var (
	admin1 = domain.Caller{Username: "admin1", Role: domain.RoleAdmin, Hospital: "H1"}
	clin1  = domain.Caller{Username: "clin1", Role: domain.RoleClinician, Hospital: "H1"}
	clin2  = domain.Caller{Username: "clin2", Role: domain.RoleClinician, Hospital: "H1"}
	p1     = domain.Caller{Username: "p1", Role: domain.RolePatient, Hospital: "H1"}
	p2     = domain.Caller{Username: "p2", Role: domain.RolePatient, Hospital: "H1"}
)

func nopLogger() *zap.Logger { return zap.NewNop() }

// mustMessage fails the test when an add-message call does not store.
func mustMessage(t *testing.T) func(*domain.Message, error) {
	t.Helper()
	return func(m *domain.Message, err error) {
		t.Helper()
		if err != nil || m == nil {
			t.Fatalf("message not stored: msg=%v err=%v", m, err)
		}
	}
}
