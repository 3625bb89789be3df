package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/services"
)

type NoteHandler struct {
	records RecordService
	log     *zap.Logger
}

func NewNoteHandler(records RecordService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{records: records, log: logger}
}

// NoteRequest is a new daily entry. The author and source come from the session.
type NoteRequest struct {
	Mood              int    `json:"mood"`
	Pain              int    `json:"pain"`
	Appetite          int    `json:"appetite"`
	Notes             string `json:"notes"`
	Diagnoses         string `json:"diagnoses"`
	IsPrivate         bool   `json:"is_private"`
	HiddenFromPatient bool   `json:"hidden_from_patient"`
}

type FeedbackApproval struct {
	Text string `json:"text"`
}

func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	notes := h.records.SearchNotes(c, hospitalID(r), chi.URLParam(r, "patient"), r.URL.Query().Get("q"))
	writeJSON(w, h.log, http.StatusOK, notes)
}

func (h *NoteHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient := chi.URLParam(r, "patient")

	var source domain.Source
	switch {
	case c.Is(patient, domain.RolePatient):
		source = domain.SourcePatient
	case c.Role == domain.RoleClinician && canSeePatient(h.records, c, patient):
		source = domain.SourceClinician
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	note := domain.Note{
		PatientID: patient,
		AuthorID:  c.Username,
		Mood:      req.Mood,
		Pain:      req.Pain,
		Appetite:  req.Appetite,
		Notes:     req.Notes,
		Diagnoses: req.Diagnoses,
		Source:    source,
	}
	if source == domain.SourcePatient {
		note.IsPrivate = req.IsPrivate
	} else {
		note.HiddenFromPatient = req.HiddenFromPatient
	}

	stored, err := h.records.AddNote(r.Context(), hospitalID(r), note)
	if errors.Is(err, services.ErrInvalidNote) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, h.log, "failed to store note", err)
		return
	}
	if stored == nil {
		http.Error(w, "hospital not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, stored)
}

// ownNote loads the {noteID} note and checks that caller wrote it or is an
// admin. It answers the request itself when the check fails.
func (h *NoteHandler) ownNote(w http.ResponseWriter, r *http.Request, c domain.Caller) (domain.Note, bool) {
	n, found := h.records.GetNote(hospitalID(r), chi.URLParam(r, "noteID"))
	if !found {
		http.Error(w, "note not found", http.StatusNotFound)
		return domain.Note{}, false
	}
	if c.Role == domain.RoleAdmin {
		return n, true
	}
	if n.AuthorID != c.Username || string(n.Source) != string(c.Role) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return domain.Note{}, false
	}
	return n, true
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	n, ok := h.ownNote(w, r, c)
	if !ok {
		return
	}

	var upd domain.NoteUpdate
	if err := decodeJSON(r, &upd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	done, err := h.records.UpdateNote(r.Context(), hospitalID(r), n.NoteID, upd)
	if errors.Is(err, services.ErrInvalidNote) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	boolResult(w, h.log, done, err, "Note updated", "note not found")
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	n, ok := h.ownNote(w, r, c)
	if !ok {
		return
	}
	done, err := h.records.DeleteNote(r.Context(), hospitalID(r), n.NoteID)
	boolResult(w, h.log, done, err, "Note deleted", "note not found")
}

// ListAlerts returns pain alerts. Clinicians only see their assigned patients.
func (h *NoteHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	alerts := h.records.GetPainAlerts(hospitalID(r))
	if c.Role == domain.RoleAdmin {
		writeJSON(w, h.log, http.StatusOK, alerts)
		return
	}
	out := []domain.Alert{}
	for _, a := range alerts {
		if canSeePatient(h.records, c, a.PatientID) {
			out = append(out, a)
		}
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

// DismissAlert removes an alert. Clinicians may only dismiss alerts of their
// assigned patients.
func (h *NoteHandler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	alertID := chi.URLParam(r, "alertID")
	if c.Role != domain.RoleAdmin {
		for _, a := range h.records.GetPainAlerts(hospitalID(r)) {
			if a.AlertID == alertID && !canSeePatient(h.records, c, a.PatientID) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
	}
	done, err := h.records.DismissAlert(r.Context(), hospitalID(r), alertID)
	boolResult(w, h.log, done, err, "Alert dismissed", "hospital not found")
}

func (h *NoteHandler) PendingFeedback(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.records.GetPendingFeedback(c, hospitalID(r)))
}

// noteForPatientAccess loads the {noteID} note when caller may see it. Notes
// hidden from caller answer 404 like missing ones.
func (h *NoteHandler) noteForPatientAccess(w http.ResponseWriter, r *http.Request, c domain.Caller) (domain.Note, bool) {
	n, found := h.records.GetVisibleNote(c, hospitalID(r), chi.URLParam(r, "noteID"))
	if !found {
		http.Error(w, "note not found", http.StatusNotFound)
		return domain.Note{}, false
	}
	return n, true
}

func (h *NoteHandler) GenerateFeedback(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	n, ok := h.noteForPatientAccess(w, r, c)
	if !ok {
		return
	}
	done, err := h.records.GenerateAndStoreAIFeedback(r.Context(), hospitalID(r), n.NoteID)
	if err != nil {
		internalError(w, h.log, "failed to persist change", err)
		return
	}
	if !done {
		http.Error(w, "feedback could not be generated", http.StatusBadGateway)
		return
	}
	writeMessage(w, h.log, http.StatusAccepted, "Feedback generated and awaiting review")
}

func (h *NoteHandler) ApproveFeedback(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	n, ok := h.noteForPatientAccess(w, r, c)
	if !ok {
		return
	}
	var req FeedbackApproval
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	text := req.Text
	if text == "" && n.AIFeedback != nil {
		text = n.AIFeedback.Text
	}
	done, err := h.records.ApproveAIFeedback(r.Context(), hospitalID(r), n.NoteID, text)
	boolResult(w, h.log, done, err, "Feedback approved", "no feedback on note")
}

func (h *NoteHandler) RejectFeedback(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	n, ok := h.noteForPatientAccess(w, r, c)
	if !ok {
		return
	}
	done, err := h.records.RejectAIFeedback(r.Context(), hospitalID(r), n.NoteID)
	boolResult(w, h.log, done, err, "Feedback rejected", "no feedback on note")
}
