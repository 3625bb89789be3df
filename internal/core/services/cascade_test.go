package services

import (
	"context"
	"testing"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

func TestDeleteClinicianCascade(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ctx := context.Background()
	msgs := NewMessagingService(env.svc, nopLogger())

	env.assign(t, "H1", "p2", "clin1")
	env.assign(t, "H1", "p2", "clin2")

	patientOwn := env.addNote(t, patientNote("p1", 2))
	byClin1 := env.addNote(t, domain.Note{PatientID: "p1", AuthorID: "clin1", Source: domain.SourceClinician})
	byClin2 := env.addNote(t, domain.Note{PatientID: "p2", AuthorID: "clin2", Source: domain.SourceClinician})
	// A patient-sourced note whose author field happens to match stays.
	oddAuthor := env.addNote(t, domain.Note{PatientID: "p1", AuthorID: "clin1", Source: domain.SourcePatient})

	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "clin1", domain.RoleClinician, "hello p1"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p2", "clin1", "p2", domain.RolePatient, "hello clin1"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p2", "clin2", "p2", domain.RolePatient, "hello clin2"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "clin1", domain.RoleClinician, "team update"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "p1", domain.RolePatient, "thanks"))

	ok, err := env.svc.DeleteUser(ctx, admin1, "H1", "clin1", domain.RoleClinician)
	if err != nil || !ok {
		t.Fatalf("DeleteUser: ok=%v err=%v", ok, err)
	}

	for _, p := range []string{"p1", "p2"} {
		for _, c := range env.svc.GetAssignedClinicians("H1", p) {
			if c == "clin1" {
				t.Errorf("clin1 still assigned to %s", p)
			}
		}
	}
	if got := env.svc.GetAssignedClinicians("H1", "p2"); len(got) != 1 || got[0] != "clin2" {
		t.Errorf("p2 assignments = %v", got)
	}

	for label, id := range map[string]string{"patient own": patientOwn.NoteID, "clin2": byClin2.NoteID, "patient-sourced": oddAuthor.NoteID} {
		if _, found := env.svc.GetNote("H1", id); !found {
			t.Errorf("%s note was removed", label)
		}
	}
	if _, found := env.svc.GetNote("H1", byClin1.NoteID); found {
		t.Error("clin1's clinician note survived")
	}

	ds := env.svc.GetHospitalDataset("H1")
	for patient, threads := range ds.Chats.Direct {
		if _, ok := threads["clin1"]; ok {
			t.Errorf("direct thread with clin1 survived under %s", patient)
		}
	}
	if _, ok := ds.Chats.Direct["p2"]["clin2"]; !ok {
		t.Error("unrelated direct thread was removed")
	}
	general := ds.Chats.General["p1"]
	if len(general) != 1 || general[0].Sender != "p1" {
		t.Errorf("general thread after cascade = %+v", general)
	}

	snap := env.store.Snapshot()
	if _, ok := snap.Hospitals["H1"].Users["clin1_clinician"]; ok {
		t.Error("deletion was not persisted")
	}
}

func TestDeletePatientCascade(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ctx := context.Background()
	msgs := NewMessagingService(env.svc, nopLogger())

	env.addNote(t, patientNote("p1", 10))
	kept := env.addNote(t, patientNote("p2", 10))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "p1", domain.RolePatient, "hi"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "p1", domain.RolePatient, "hi"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p2", "p2", domain.RolePatient, "hi"))

	ok, err := env.svc.DeleteUser(ctx, admin1, "H1", "p1", domain.RolePatient)
	if err != nil || !ok {
		t.Fatalf("DeleteUser: ok=%v err=%v", ok, err)
	}

	if notes := env.svc.GetNotesForPatient(admin1, "H1", "p1"); len(notes) != 0 {
		t.Errorf("p1 notes survived: %d", len(notes))
	}
	alerts := env.svc.GetPainAlerts("H1")
	if len(alerts) != 1 || alerts[0].AlertID != kept.NoteID {
		t.Errorf("alerts after cascade = %+v", alerts)
	}

	ds := env.svc.GetHospitalDataset("H1")
	if _, ok := ds.Chats.General["p1"]; ok {
		t.Error("p1 general thread survived")
	}
	if _, ok := ds.Chats.Direct["p1"]; ok {
		t.Error("p1 direct threads survived")
	}
	if _, ok := ds.Chats.General["p2"]; !ok {
		t.Error("p2 general thread removed")
	}
}

func TestDeleteAdminStripsOnlyTheirMessages(t *testing.T) {
	env := newTestEnv(t)
	env.seedHospital(t)
	ctx := context.Background()
	msgs := NewMessagingService(env.svc, nopLogger())

	env.register(t, "H1", "admin2", domain.RoleAdmin)
	env.approve(t, "H1", "admin2", domain.RoleAdmin)

	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "admin2", domain.RoleAdmin, "from admin"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "admin2", domain.RoleAdmin, "admin note"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "clin1", domain.RoleClinician, "clinician note"))

	ok, err := env.svc.DeleteUser(ctx, admin1, "H1", "admin2", domain.RoleAdmin)
	if err != nil || !ok {
		t.Fatalf("DeleteUser: ok=%v err=%v", ok, err)
	}

	if got := msgs.GetGeneralMessages("H1", "p1", 0); len(got) != 0 {
		t.Errorf("general thread = %+v", got)
	}
	direct := msgs.GetDirectMessages("H1", "p1", "clin1", 0)
	if len(direct) != 1 || direct[0].Sender != "clin1" {
		t.Errorf("direct thread = %+v", direct)
	}
}
