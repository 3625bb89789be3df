package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/middleware"
	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/services"
)

// RecordHandler serves user administration, profiles and care-team
// assignments for the hospital in the URL.
type RecordHandler struct {
	records RecordService
	log     *zap.Logger
}

func NewRecordHandler(records RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{records: records, log: logger}
}

func hospitalID(r *http.Request) string {
	return chi.URLParam(r, "hospitalID")
}

func callerOf(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	c, ok := middleware.CallerFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return c, ok
}

// roleParam parses the {role} URL segment, answering 400 when it is unknown.
func roleParam(w http.ResponseWriter, r *http.Request) (domain.Role, bool) {
	role := domain.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return "", false
	}
	return role, true
}

// ListUsers returns every account of the hospital, ordered by key.
func (h *RecordHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.records.GetAllUsers(hospitalID(r))
	keys := make([]string, 0, len(users))
	for k := range users {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]UserView, 0, len(keys))
	for _, k := range keys {
		out = append(out, toUserView(users[k]))
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

func (h *RecordHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = domain.RoleClinician
	}
	if !role.Valid() {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toUserViews(h.records.GetPendingUsers(hospitalID(r), role)))
}

func (h *RecordHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	username := chi.URLParam(r, "username")
	if c.Role != domain.RoleAdmin && !c.Is(username, role) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	u, found := h.records.GetUserByUsername(hospitalID(r), username, role)
	if !found {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toUserView(u))
}

func (h *RecordHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	done, err := h.records.ApproveUser(r.Context(), hospitalID(r), chi.URLParam(r, "username"), role)
	boolResult(w, h.log, done, err, "User approved", "user not found")
}

func (h *RecordHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	username := chi.URLParam(r, "username")
	if c.Is(username, role) {
		http.Error(w, "cannot delete your own account", http.StatusForbidden)
		return
	}
	done, err := h.records.DeleteUser(r.Context(), c, hospitalID(r), username, role)
	boolResult(w, h.log, done, err, "User deleted", "user not found")
}

func (h *RecordHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	var upd services.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if upd.NewPassword != "" && !services.IsStrongPassword(upd.NewPassword) {
		http.Error(w, "new password is too weak", http.StatusBadRequest)
		return
	}
	done, err := h.records.UpdateProfile(r.Context(), hospitalID(r), c.Username, c.Role, upd)
	boolResult(w, h.log, done, err, "Profile updated", "user not found")
}

func (h *RecordHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.log, http.StatusOK, toUserViews(h.records.GetAllPatients(c, hospitalID(r))))
}

func (h *RecordHandler) ListClinicians(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, toUserViews(h.records.GetAllClinicians(hospitalID(r))))
}

func (h *RecordHandler) AssignedClinicians(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient := chi.URLParam(r, "patient")
	if !canSeePatient(h.records, c, patient) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	writeJSON(w, h.log, http.StatusOK, h.records.GetAssignedClinicians(hospitalID(r), patient))
}

// canManageCareTeam allows admins and the patient themself.
func canManageCareTeam(c domain.Caller, patient string) bool {
	return c.Role == domain.RoleAdmin || c.Is(patient, domain.RolePatient)
}

func (h *RecordHandler) AssignClinician(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient := chi.URLParam(r, "patient")
	if !canManageCareTeam(c, patient) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	clinician := chi.URLParam(r, "clinician")
	if _, found := h.records.GetUserByUsername(hospitalID(r), clinician, domain.RoleClinician); !found {
		http.Error(w, "clinician not found", http.StatusNotFound)
		return
	}
	done, err := h.records.AssignClinician(r.Context(), hospitalID(r), patient, clinician)
	if err != nil {
		internalError(w, h.log, "failed to persist change", err)
		return
	}
	if !done {
		http.Error(w, "patient not found or clinician already assigned", http.StatusConflict)
		return
	}
	writeMessage(w, h.log, http.StatusOK, "Clinician assigned")
}

func (h *RecordHandler) UnassignClinician(w http.ResponseWriter, r *http.Request) {
	c, ok := callerOf(w, r)
	if !ok {
		return
	}
	patient := chi.URLParam(r, "patient")
	if !canManageCareTeam(c, patient) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	done, err := h.records.UnassignClinician(r.Context(), hospitalID(r), patient, chi.URLParam(r, "clinician"))
	boolResult(w, h.log, done, err, "Clinician unassigned", "assignment not found")
}

// Dataset exports the whole hospital without password material.
func (h *RecordHandler) Dataset(w http.ResponseWriter, r *http.Request) {
	ds := h.records.GetHospitalDataset(hospitalID(r))
	users := make(map[string]UserView, len(ds.Users))
	for k, u := range ds.Users {
		users[k] = toUserView(*u)
	}
	writeJSON(w, h.log, http.StatusOK, map[string]any{
		"users":  users,
		"notes":  ds.Notes,
		"alerts": ds.Alerts,
		"chats":  ds.Chats,
	})
}
