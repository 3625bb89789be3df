package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
)

type ChatHandler struct {
	records  RecordService
	messages MessagingService
	log      *zap.Logger
}

func NewChatHandler(records RecordService, messages MessagingService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{records: records, messages: messages, log: logger}
}

type ChatRequest struct {
	Text string `json:"text"`
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// canUseDirect allows the patient and the clinician of a direct thread.
func canUseDirect(c domain.Caller, patient, clinician string) bool {
	return c.Is(patient, domain.RolePatient) || c.Is(clinician, domain.RoleClinician)
}

func (h *ChatHandler) GeneralThread(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient := chi.URLParam(r, "patient")
	if !canSeePatient(h.records, c, patient) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.messages.GetGeneralMessages(hospitalID(r), patient, limitParam(r)))
}

func (h *ChatHandler) PostGeneral(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient := chi.URLParam(r, "patient")
	if !canSeePatient(h.records, c, patient) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.messages.AddGeneralMessage(r.Context(), hospitalID(r), patient, c.Username, c.Role, req.Text)
	if err != nil {
		internalError(w, h.log, "failed to store message", err)
		return
	}
	if msg == nil {
		http.Error(w, "message rejected", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, msg)
}

func (h *ChatHandler) ClearGeneral(w http.ResponseWriter, r *http.Request) {
	done, err := h.messages.ClearGeneralMessages(r.Context(), hospitalID(r), chi.URLParam(r, "patient"))
	boolResult(w, h.log, done, err, "Thread cleared", "thread not found")
}

func (h *ChatHandler) DirectThread(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient, clinician := chi.URLParam(r, "patient"), chi.URLParam(r, "clinician")
	if c.Role != domain.RoleAdmin && !canUseDirect(c, patient, clinician) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.messages.GetDirectMessages(hospitalID(r), patient, clinician, limitParam(r)))
}

func (h *ChatHandler) PostDirect(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient, clinician := chi.URLParam(r, "patient"), chi.URLParam(r, "clinician")
	if !canUseDirect(c, patient, clinician) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.messages.AddDirectMessage(r.Context(), hospitalID(r), patient, clinician, c.Username, c.Role, req.Text)
	if err != nil {
		internalError(w, h.log, "failed to store message", err)
		return
	}
	if msg == nil {
		http.Error(w, "message rejected", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, msg)
}

func (h *ChatHandler) ClearDirect(w http.ResponseWriter, r *http.Request) {
	done, err := h.messages.ClearDirectMessages(r.Context(), hospitalID(r), chi.URLParam(r, "patient"), chi.URLParam(r, "clinician"))
	boolResult(w, h.log, done, err, "Thread cleared", "thread not found")
}

// GeneralInbox lists patients with a general thread, newest activity first.
// Clinicians only get their assigned patients.
func (h *ChatHandler) GeneralInbox(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patients := h.messages.ListGeneralPatients(hospitalID(r))
	if c.Role == domain.RoleClinician {
		visible := make([]string, 0, len(patients))
		for _, p := range patients {
			if canSeePatient(h.records, c, p) {
				visible = append(visible, p)
			}
		}
		patients = visible
	}
	writeJSON(w, h.log, http.StatusOK, patients)
}

func (h *ChatHandler) DirectInbox(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.messages.ListDirectThreadsForClinician(hospitalID(r), c.Username))
}
