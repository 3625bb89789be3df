package services

import (
	"context"
	"testing"
	"time"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

func newMessagingEnv(t *testing.T) (*testEnv, *MessagingService) {
	t.Helper()
	env := newTestEnv(t)
	env.seedHospital(t)
	env.svc.now = clock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	return env, NewMessagingService(env.svc, nopLogger())
}

func TestGeneralMessages(t *testing.T) {
	env, msgs := newMessagingEnv(t)
	ctx := context.Background()

	first, err := msgs.AddGeneralMessage(ctx, "H1", "p1", "p1", domain.RolePatient, "  Morning all  ")
	if err != nil || first == nil {
		t.Fatalf("AddGeneralMessage: msg=%v err=%v", first, err)
	}
	if first.Text != "Morning all" || first.Channel != domain.ChannelGeneral || first.PatientUsername != "p1" || first.MessageID == "" {
		t.Errorf("message = %+v", first)
	}
	if first.Timestamp.Nanosecond() != 0 || first.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp %v is not second-precision UTC", first.Timestamp)
	}

	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "clin1", domain.RoleClinician, "Hi p1"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "admin1", domain.RoleAdmin, "Reminder"))

	all := msgs.GetGeneralMessages("H1", "p1", 0)
	if len(all) != 3 || all[0].Text != "Morning all" || all[2].Text != "Reminder" {
		t.Fatalf("thread = %+v", all)
	}
	tail := msgs.GetGeneralMessages("H1", "p1", 2)
	if len(tail) != 2 || tail[0].Text != "Hi p1" || tail[1].Text != "Reminder" {
		t.Errorf("limited thread = %+v", tail)
	}

	if got := env.store.Snapshot().Hospitals["H1"].Chats.General["p1"]; len(got) != 3 {
		t.Errorf("persisted thread has %d messages", len(got))
	}
}

func TestAddMessageRejections(t *testing.T) {
	_, msgs := newMessagingEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		add  func() (*domain.Message, error)
	}{
		{
			name: "blank general",
			add: func() (*domain.Message, error) {
				return msgs.AddGeneralMessage(ctx, "H1", "p1", "p1", domain.RolePatient, "   ")
			},
		},
		{
			name: "blank direct",
			add: func() (*domain.Message, error) {
				return msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "p1", domain.RolePatient, "")
			},
		},
		{
			name: "unknown hospital",
			add: func() (*domain.Message, error) {
				return msgs.AddGeneralMessage(ctx, "H9", "p1", "p1", domain.RolePatient, "hi")
			},
		},
		{
			name: "unassigned clinician",
			add: func() (*domain.Message, error) {
				return msgs.AddDirectMessage(ctx, "H1", "p1", "clin2", "p1", domain.RolePatient, "hi")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.add()
			if err != nil || msg != nil {
				t.Errorf("msg=%v err=%v, want nil, nil", msg, err)
			}
		})
	}
}

func TestDirectMessagesWithoutAssignments(t *testing.T) {
	_, msgs := newMessagingEnv(t)

	// p2 has no care team yet, so any clinician may be messaged.
	msg, err := msgs.AddDirectMessage(context.Background(), "H1", "p2", "clin2", "p2", domain.RolePatient, "Question")
	if err != nil || msg == nil {
		t.Fatalf("msg=%v err=%v", msg, err)
	}
	if msg.Channel != domain.ChannelDirect || msg.ClinicianUsername != "clin2" || msg.PatientUsername != "p2" {
		t.Errorf("message = %+v", msg)
	}
}

func TestReadsDoNotCreateThreads(t *testing.T) {
	env, msgs := newMessagingEnv(t)

	if got := msgs.GetGeneralMessages("H1", "p1", 0); len(got) != 0 {
		t.Errorf("general = %+v", got)
	}
	if got := msgs.GetDirectMessages("H1", "p1", "clin1", 5); len(got) != 0 {
		t.Errorf("direct = %+v", got)
	}
	if got := msgs.GetGeneralMessages("H9", "p1", 0); got == nil || len(got) != 0 {
		t.Errorf("unknown hospital = %#v", got)
	}

	ds := env.svc.GetHospitalDataset("H1")
	if len(ds.Chats.General) != 0 || len(ds.Chats.Direct) != 0 {
		t.Errorf("reads created threads: %+v", ds.Chats)
	}
}

func TestClearMessages(t *testing.T) {
	env, msgs := newMessagingEnv(t)
	ctx := context.Background()

	if ok, _ := msgs.ClearGeneralMessages(ctx, "H1", "p1"); ok {
		t.Error("clearing a missing general thread reported true")
	}
	if ok, _ := msgs.ClearDirectMessages(ctx, "H1", "p1", "clin1"); ok {
		t.Error("clearing a missing direct thread reported true")
	}

	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "p1", domain.RolePatient, "one"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "p1", domain.RolePatient, "two"))

	ok, err := msgs.ClearGeneralMessages(ctx, "H1", "p1")
	if err != nil || !ok {
		t.Fatalf("ClearGeneralMessages: ok=%v err=%v", ok, err)
	}
	ok, err = msgs.ClearDirectMessages(ctx, "H1", "p1", "clin1")
	if err != nil || !ok {
		t.Fatalf("ClearDirectMessages: ok=%v err=%v", ok, err)
	}

	ds := env.svc.GetHospitalDataset("H1")
	general, ok := ds.Chats.General["p1"]
	if !ok || len(general) != 0 {
		t.Errorf("general thread after clear = %v (present %v)", general, ok)
	}
	direct, ok := ds.Chats.Direct["p1"]["clin1"]
	if !ok || len(direct) != 0 {
		t.Errorf("direct thread after clear = %v (present %v)", direct, ok)
	}
}

func TestThreadListingsNewestFirst(t *testing.T) {
	env, msgs := newMessagingEnv(t)
	ctx := context.Background()
	env.register(t, "H1", "p3", domain.RolePatient)
	env.assign(t, "H1", "p2", "clin1")
	env.assign(t, "H1", "p3", "clin1")

	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p2", "p2", domain.RolePatient, "a"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p1", "p1", domain.RolePatient, "b"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p3", "p3", domain.RolePatient, "c"))
	mustMessage(t)(msgs.AddGeneralMessage(ctx, "H1", "p2", "p2", domain.RolePatient, "d"))

	got := msgs.ListGeneralPatients("H1")
	want := []string{"p2", "p3", "p1"}
	if len(got) != len(want) {
		t.Fatalf("general patients = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("general patients = %v, want %v", got, want)
			break
		}
	}

	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p3", "clin1", "p3", domain.RolePatient, "x"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p1", "clin1", "p1", domain.RolePatient, "y"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p2", "clin1", "p2", domain.RolePatient, "z"))
	mustMessage(t)(msgs.AddDirectMessage(ctx, "H1", "p3", "clin1", "clin1", domain.RoleClinician, "w"))

	threads := msgs.ListDirectThreadsForClinician("H1", "clin1")
	want = []string{"p3", "p2", "p1"}
	if len(threads) != len(want) {
		t.Fatalf("direct threads = %v, want %v", threads, want)
	}
	for i := range want {
		if threads[i] != want[i] {
			t.Errorf("direct threads = %v, want %v", threads, want)
			break
		}
	}

	if got := msgs.ListDirectThreadsForClinician("H1", "clin2"); len(got) != 0 {
		t.Errorf("clin2 threads = %v", got)
	}
}
