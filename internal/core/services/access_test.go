package services

import (
	"context"
	"testing"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

// seedNotes adds, for p1: a public patient note, a private patient note, a
// visible clinician note and a clinician note hidden from the patient.
func seedNotes(t *testing.T, env *testEnv) map[string]string {
	t.Helper()
	ids := map[string]string{}

	public := patientNote("p1", 3)
	ids["public"] = env.addNote(t, public).NoteID

	private := patientNote("p1", 4)
	private.IsPrivate = true
	ids["private"] = env.addNote(t, private).NoteID

	ids["clinician"] = env.addNote(t, domain.Note{
		PatientID: "p1", AuthorID: "clin1", Source: domain.SourceClinician, Diagnoses: "Stable",
	}).NoteID

	ids["hidden"] = env.addNote(t, domain.Note{
		PatientID: "p1", AuthorID: "clin1", Source: domain.SourceClinician, HiddenFromPatient: true,
	}).NoteID

	ids["other"] = env.addNote(t, patientNote("p2", 1)).NoteID
	return ids
}

func noteIDs(notes []domain.Note) map[string]bool {
	set := map[string]bool{}
	for _, n := range notes {
		set[n.NoteID] = true
	}
	return set
}

func TestNoteVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ids := seedNotes(t, env)

	tests := []struct {
		name   string
		caller domain.Caller
		want   []string
	}{
		{name: "admin", caller: admin1, want: []string{"public", "private", "clinician", "hidden"}},
		{name: "assigned clinician", caller: clin1, want: []string{"public", "clinician", "hidden"}},
		{name: "unassigned clinician", caller: clin2},
		{name: "owner patient", caller: p1, want: []string{"public", "private", "clinician"}},
		{name: "other patient", caller: p2},
		{name: "unknown role", caller: domain.Caller{Username: "x", Role: "nurse", Hospital: "H1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := noteIDs(env.svc.GetNotesForPatient(tt.caller, "H1", "p1"))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d notes, want %d", len(got), len(tt.want))
			}
			for _, label := range tt.want {
				if !got[ids[label]] {
					t.Errorf("missing %s note", label)
				}
			}
			if got[ids["other"]] {
				t.Error("another patient's note leaked")
			}
		})
	}
}

func TestNoteVisibilityIsNested(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ids := seedNotes(t, env)

	adminView := noteIDs(env.svc.GetNotesForPatient(admin1, "H1", "p1"))
	assignedView := noteIDs(env.svc.GetNotesForPatient(clin1, "H1", "p1"))
	unassignedView := noteIDs(env.svc.GetNotesForPatient(clin2, "H1", "p1"))

	for id := range assignedView {
		if !adminView[id] {
			t.Errorf("assigned clinician sees %s which admin does not", id)
		}
	}
	if len(unassignedView) != 0 {
		t.Errorf("unassigned clinician sees %d notes", len(unassignedView))
	}
	for _, view := range []map[string]bool{assignedView, unassignedView} {
		if view[ids["private"]] {
			t.Error("private patient note visible to a non-owner, non-admin caller")
		}
	}
}

func TestPrivateNoteFeedbackStaysPrivate(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ctx := context.Background()

	private := patientNote("p1", 4)
	private.IsPrivate = true
	private.Notes = "secret diary"
	stored := env.addNote(t, private)

	ok, err := env.svc.GenerateAndStoreAIFeedback(ctx, "H1", stored.NoteID)
	if err != nil || !ok {
		t.Fatalf("generate: ok=%v err=%v", ok, err)
	}

	if got := env.svc.GetPendingFeedback(clin1, "H1"); len(got) != 0 {
		t.Errorf("assigned clinician sees private note via pending feedback: %+v", got)
	}
	if got := env.svc.GetPendingFeedback(admin1, "H1"); len(got) != 1 {
		t.Errorf("admin sees %d pending, want 1", len(got))
	}
}

func TestGetVisibleNote(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ids := seedNotes(t, env)

	tests := []struct {
		name   string
		caller domain.Caller
		label  string
		want   bool
	}{
		{name: "admin reads private", caller: admin1, label: "private", want: true},
		{name: "owner reads private", caller: p1, label: "private", want: true},
		{name: "assigned clinician denied private", caller: clin1, label: "private"},
		{name: "assigned clinician reads public", caller: clin1, label: "public", want: true},
		{name: "unassigned clinician denied public", caller: clin2, label: "public"},
		{name: "owner denied hidden clinician note", caller: p1, label: "hidden"},
		{name: "assigned clinician reads hidden", caller: clin1, label: "hidden", want: true},
		{name: "other patient denied", caller: p2, label: "public"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := env.svc.GetVisibleNote(tt.caller, "H1", ids[tt.label])
			if ok != tt.want {
				t.Fatalf("GetVisibleNote ok = %v, want %v", ok, tt.want)
			}
			if ok && n.NoteID != ids[tt.label] {
				t.Errorf("got note %s, want %s", n.NoteID, ids[tt.label])
			}
		})
	}

	if _, ok := env.svc.GetVisibleNote(admin1, "H1", "missing"); ok {
		t.Error("missing note reported visible")
	}
	if _, ok := env.svc.GetVisibleNote(admin1, "H9", ids["public"]); ok {
		t.Error("note found in unknown hospital")
	}
}

func TestGetAllPatients(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)

	tests := []struct {
		name   string
		caller domain.Caller
		want   []string
	}{
		{name: "admin", caller: admin1, want: []string{"p1", "p2"}},
		{name: "assigned clinician", caller: clin1, want: []string{"p1"}},
		{name: "unassigned clinician", caller: clin2, want: []string{}},
		{name: "patient", caller: p2, want: []string{"p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.svc.GetAllPatients(tt.caller, "H1")
			if len(got) != len(tt.want) {
				t.Fatalf("got %d patients, want %v", len(got), tt.want)
			}
			for i, u := range got {
				if u.Username != tt.want[i] {
					t.Errorf("patient[%d] = %s, want %s", i, u.Username, tt.want[i])
				}
			}
		})
	}

	if got := env.svc.GetAllPatients(admin1, "H9"); len(got) != 0 {
		t.Errorf("unknown hospital patients = %v", got)
	}
}

func TestReturnedNotesAreCopies(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	seedNotes(t, env)

	notes := env.svc.GetNotesForPatient(admin1, "H1", "p1")
	notes[0].Notes = "tampered"

	again := env.svc.GetNotesForPatient(admin1, "H1", "p1")
	if again[0].Notes == "tampered" {
		t.Error("caller mutation reached the stored note")
	}
}
