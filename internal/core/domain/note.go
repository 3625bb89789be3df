package domain

import "time"

type Source string

const (
	SourcePatient   Source = "patient"
	SourceClinician Source = "clinician"
)

type FeedbackStatus string

const (
	FeedbackPending  FeedbackStatus = "pending"
	FeedbackApproved FeedbackStatus = "approved"
)

type AIFeedback struct {
	Text   string         `json:"text"`
	Status FeedbackStatus `json:"status"`
}

// MaxPain is the score that raises a pain alert on patient-sourced notes.
const MaxPain = 10

type Note struct {
	NoteID            string      `json:"note_id"`
	HospitalID        string      `json:"hospital_id"`
	PatientID         string      `json:"patient_id" validate:"required"`
	AuthorID          string      `json:"author_id" validate:"required"`
	Timestamp         time.Time   `json:"timestamp"`
	Mood              int         `json:"mood" validate:"min=0,max=10"`
	Pain              int         `json:"pain" validate:"min=0,max=10"`
	Appetite          int         `json:"appetite" validate:"min=0,max=10"`
	Notes             string      `json:"notes"`
	Diagnoses         string      `json:"diagnoses"`
	Source            Source      `json:"source" validate:"oneof=patient clinician"`
	IsPrivate         bool        `json:"is_private"`
	HiddenFromPatient bool        `json:"hidden_from_patient"`
	AIFeedback        *AIFeedback `json:"ai_feedback,omitempty"`
}

func (n Note) Clone() Note {
	if n.AIFeedback != nil {
		fb := *n.AIFeedback
		n.AIFeedback = &fb
	}
	return n
}

func (n Note) HasPendingFeedback() bool {
	return n.AIFeedback != nil && n.AIFeedback.Status == FeedbackPending
}

// NoteUpdate carries a partial note edit; nil fields are left untouched.
type NoteUpdate struct {
	Mood              *int    `json:"mood,omitempty" validate:"omitempty,min=0,max=10"`
	Pain              *int    `json:"pain,omitempty" validate:"omitempty,min=0,max=10"`
	Appetite          *int    `json:"appetite,omitempty" validate:"omitempty,min=0,max=10"`
	Notes             *string `json:"notes,omitempty"`
	Diagnoses         *string `json:"diagnoses,omitempty"`
	IsPrivate         *bool   `json:"is_private,omitempty"`
	HiddenFromPatient *bool   `json:"hidden_from_patient,omitempty"`
}

func (u NoteUpdate) Apply(n *Note) {
	if u.Mood != nil {
		n.Mood = *u.Mood
	}
	if u.Pain != nil {
		n.Pain = *u.Pain
	}
	if u.Appetite != nil {
		n.Appetite = *u.Appetite
	}
	if u.Notes != nil {
		n.Notes = *u.Notes
	}
	if u.Diagnoses != nil {
		n.Diagnoses = *u.Diagnoses
	}
	if u.IsPrivate != nil {
		n.IsPrivate = *u.IsPrivate
	}
	if u.HiddenFromPatient != nil {
		n.HiddenFromPatient = *u.HiddenFromPatient
	}
}

type AlertStatus string

const AlertNew AlertStatus = "new"

// Alert flags a maximum-severity pain report. Its ID is the triggering note's ID.
type Alert struct {
	AlertID   string      `json:"alert_id"`
	PatientID string      `json:"patient_id"`
	Timestamp time.Time   `json:"timestamp"`
	Status    AlertStatus `json:"status"`
}
