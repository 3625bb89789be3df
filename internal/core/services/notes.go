package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

var ErrInvalidNote = errors.New("invalid note")

// AddNote stores a note and, for a patient-sourced entry at maximum pain,
// raises an alert. It returns nil when the hospital does not exist.
func (s *RecordService) AddNote(ctx context.Context, hospitalID string, note domain.Note) (*domain.Note, error) {
	if err := s.validate.Struct(note); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}

	stored, alert, err := s.addNote(ctx, hospitalID, note)
	if err != nil || stored == nil {
		return stored, err
	}

	if alert != nil {
		s.publishAlert(ctx, hospitalID, *alert)
	}
	return stored, nil
}

func (s *RecordService) addNote(ctx context.Context, hospitalID string, note domain.Note) (*domain.Note, *domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return nil, nil, nil
	}

	if note.NoteID == "" {
		note.NoteID = newID()
	}
	if note.Timestamp.IsZero() {
		note.Timestamp = s.now().UTC()
	}
	note.HospitalID = hospitalID
	h.Notes = append(h.Notes, note.Clone())

	var alert *domain.Alert
	if note.Source == domain.SourcePatient && note.Pain == domain.MaxPain {
		alert = &domain.Alert{
			AlertID:   note.NoteID,
			PatientID: note.PatientID,
			Timestamp: note.Timestamp,
			Status:    domain.AlertNew,
		}
		h.Alerts = append(h.Alerts, *alert)
	}

	if err := s.persist(ctx); err != nil {
		return nil, nil, err
	}
	return &note, alert, nil
}

// publishAlert runs after the note is persisted; a broker failure does not
// undo the note.
func (s *RecordService) publishAlert(ctx context.Context, hospitalID string, alert domain.Alert) {
	if s.publisher == nil {
		return
	}
	evt := ports.PainAlertEvent{
		AlertID:   alert.AlertID,
		Hospital:  hospitalID,
		PatientID: alert.PatientID,
		Timestamp: alert.Timestamp,
	}
	if err := s.publisher.PublishPainAlert(ctx, evt); err != nil {
		s.log.Warn("records: failed to publish pain alert",
			zap.String("hospital", hospitalID),
			zap.String("alert_id", alert.AlertID),
			zap.Error(err),
		)
	}
}

func (s *RecordService) UpdateNote(ctx context.Context, hospitalID, noteID string, upd domain.NoteUpdate) (bool, error) {
	if err := s.validate.Struct(upd); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.findNote(hospitalID, noteID)
	if n == nil {
		return false, nil
	}
	upd.Apply(n)

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// DeleteNote is idempotent: an unknown note ID in an existing hospital still
// reports true.
func (s *RecordService) DeleteNote(ctx context.Context, hospitalID, noteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	before := len(h.Notes)
	h.Notes = slices.DeleteFunc(h.Notes, func(n domain.Note) bool {
		return n.NoteID == noteID
	})
	if len(h.Notes) == before {
		return true, nil
	}

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GetNote returns a copy of the note regardless of visibility rules.
func (s *RecordService) GetNote(hospitalID, noteID string) (domain.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.findNote(hospitalID, noteID)
	if n == nil {
		return domain.Note{}, false
	}
	return n.Clone(), true
}

// findNote returns a pointer into the hospital's note slice. The caller holds s.mu.
func (s *RecordService) findNote(hospitalID, noteID string) *domain.Note {
	h, ok := s.hospital(hospitalID)
	if !ok {
		return nil
	}
	for i := range h.Notes {
		if h.Notes[i].NoteID == noteID {
			return &h.Notes[i]
		}
	}
	return nil
}

// SearchNotes matches term case-insensitively against the notes and diagnoses
// text of the notes caller may see. An empty term returns all of them.
func (s *RecordService) SearchNotes(caller domain.Caller, hospitalID, patient, term string) []domain.Note {
	notes := s.GetNotesForPatient(caller, hospitalID, patient)
	if term == "" {
		return notes
	}
	term = strings.ToLower(term)
	return slices.DeleteFunc(notes, func(n domain.Note) bool {
		return !strings.Contains(strings.ToLower(n.Notes), term) &&
			!strings.Contains(strings.ToLower(n.Diagnoses), term)
	})
}

func (s *RecordService) GetPainAlerts(hospitalID string) []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return []domain.Alert{}
	}
	return append([]domain.Alert{}, h.Alerts...)
}

func (s *RecordService) DismissAlert(ctx context.Context, hospitalID, alertID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	before := len(h.Alerts)
	h.Alerts = slices.DeleteFunc(h.Alerts, func(a domain.Alert) bool {
		return a.AlertID == alertID
	})
	if len(h.Alerts) == before {
		return true, nil
	}

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// GenerateAndStoreAIFeedback asks the generator for feedback on a note and
// stores it as pending. The generator is called without holding the lock.
func (s *RecordService) GenerateAndStoreAIFeedback(ctx context.Context, hospitalID, noteID string) (bool, error) {
	if s.generator == nil {
		return false, nil
	}

	s.mu.Lock()
	n := s.findNote(hospitalID, noteID)
	if n == nil {
		s.mu.Unlock()
		return false, nil
	}
	text, mood, pain, appetite := n.Notes, n.Mood, n.Pain, n.Appetite
	s.mu.Unlock()

	feedback, err := s.generator.Generate(ctx, text, mood, pain, appetite)
	if err != nil || strings.TrimSpace(feedback) == "" {
		s.log.Warn("records: feedback generation failed",
			zap.String("hospital", hospitalID),
			zap.String("note_id", noteID),
			zap.Error(err),
		)
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The note may have been deleted while the generator ran.
	n = s.findNote(hospitalID, noteID)
	if n == nil {
		return false, nil
	}
	n.AIFeedback = &domain.AIFeedback{Text: feedback, Status: domain.FeedbackPending}

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RecordService) ApproveAIFeedback(ctx context.Context, hospitalID, noteID, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.findNote(hospitalID, noteID)
	if n == nil || n.AIFeedback == nil {
		return false, nil
	}
	n.AIFeedback.Text = text
	n.AIFeedback.Status = domain.FeedbackApproved

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RecordService) RejectAIFeedback(ctx context.Context, hospitalID, noteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.findNote(hospitalID, noteID)
	if n == nil || n.AIFeedback == nil {
		return false, nil
	}
	n.AIFeedback = nil

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}
