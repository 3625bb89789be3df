package services

import (
	"slices"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

// cascadeDelete removes what a deleted user leaves behind in the hospital.
// The user record itself has already been removed; the caller persists once
// afterwards.
func cascadeDelete(h *domain.Hospital, username string, role domain.Role) {
	switch role {
	case domain.RolePatient:
		h.Notes = slices.DeleteFunc(h.Notes, func(n domain.Note) bool {
			return n.PatientID == username
		})
		h.Alerts = slices.DeleteFunc(h.Alerts, func(a domain.Alert) bool {
			return a.PatientID == username
		})
		delete(h.Chats.General, username)
		delete(h.Chats.Direct, username)

	case domain.RoleClinician:
		for _, u := range h.Users {
			if u.Role == domain.RolePatient {
				u.AssignedClinicians = slices.DeleteFunc(u.AssignedClinicians, func(c string) bool {
					return c == username
				})
			}
		}
		h.Notes = slices.DeleteFunc(h.Notes, func(n domain.Note) bool {
			return n.AuthorID == username && n.Source == domain.SourceClinician
		})
		for _, threads := range h.Chats.Direct {
			delete(threads, username)
		}
		stripSender(h.Chats.General, username, role)

	case domain.RoleAdmin:
		stripSender(h.Chats.General, username, role)
		for _, threads := range h.Chats.Direct {
			stripSender(threads, username, role)
		}
	}
}

// stripSender drops messages sent by the (sender, role) account only.
func stripSender(threads map[string][]domain.Message, sender string, role domain.Role) {
	for key, msgs := range threads {
		threads[key] = slices.DeleteFunc(msgs, func(m domain.Message) bool {
			return m.Sender == sender && m.SenderRole == role
		})
	}
}
