package services

import (
	"sort"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

// Visibility follows one shape everywhere: admins see the whole hospital,
// clinicians see what the assignment relation grants them, and patients see
// their own data only.

// GetNotesForPatient returns the patient's notes as visible to caller.
func (s *RecordService) GetNotesForPatient(caller domain.Caller, hospitalID, patient string) []domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok || !canAccessPatient(h, caller, patient) {
		return []domain.Note{}
	}

	out := []domain.Note{}
	for _, n := range h.Notes {
		if n.PatientID == patient && noteVisible(caller, n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

// GetVisibleNote returns a copy of the note when caller may see it under the
// rules of GetNotesForPatient.
func (s *RecordService) GetVisibleNote(caller domain.Caller, hospitalID, noteID string) (domain.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return domain.Note{}, false
	}
	n := s.findNote(hospitalID, noteID)
	if n == nil || !canAccessPatient(h, caller, n.PatientID) || !noteVisible(caller, *n) {
		return domain.Note{}, false
	}
	return n.Clone(), true
}

// GetPendingFeedback lists notes whose AI feedback awaits review.
func (s *RecordService) GetPendingFeedback(caller domain.Caller, hospitalID string) []domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return []domain.Note{}
	}
	if caller.Role != domain.RoleAdmin && caller.Role != domain.RoleClinician {
		return []domain.Note{}
	}

	out := []domain.Note{}
	for _, n := range h.Notes {
		if n.HasPendingFeedback() && canAccessPatient(h, caller, n.PatientID) && noteVisible(caller, n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

// canAccessPatient reports whether caller may read the patient's records at
// all: admins always, the patient themself, and assigned clinicians.
func canAccessPatient(h *domain.Hospital, caller domain.Caller, patient string) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePatient:
		return caller.Username == patient
	case domain.RoleClinician:
		p, ok := h.User(patient, domain.RolePatient)
		return ok && p.IsAssigned(caller.Username)
	}
	return false
}

// noteVisible applies the per-note rules once patient access is granted. A
// patient's private note is only for that patient and admins; a clinician
// note hidden from the patient is only for staff.
func noteVisible(caller domain.Caller, n domain.Note) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePatient:
		return !(n.Source == domain.SourceClinician && n.HiddenFromPatient)
	case domain.RoleClinician:
		return !(n.Source == domain.SourcePatient && n.IsPrivate)
	}
	return false
}

// GetAllPatients lists the patient records caller may see, ordered by username.
func (s *RecordService) GetAllPatients(caller domain.Caller, hospitalID string) []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return []domain.User{}
	}

	out := []domain.User{}
	for _, u := range h.Users {
		if u.Role != domain.RolePatient {
			continue
		}
		switch caller.Role {
		case domain.RoleAdmin:
		case domain.RoleClinician:
			if !u.IsAssigned(caller.Username) {
				continue
			}
		case domain.RolePatient:
			if u.Username != caller.Username {
				continue
			}
		default:
			continue
		}
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
