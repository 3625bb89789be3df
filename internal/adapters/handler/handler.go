package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/services"
)

// RecordService is the record, access and note surface the handlers use.
type RecordService interface {
	Register(ctx context.Context, req services.RegistrationRequest) (services.RegisterOutcome, error)
	Login(username, password string, role domain.Role, hospitalID string) (*domain.User, services.LoginOutcome)
	UpdateProfile(ctx context.Context, hospitalID, username string, role domain.Role, upd services.ProfileUpdate) (bool, error)
	DeleteUser(ctx context.Context, caller domain.Caller, hospitalID, username string, role domain.Role) (bool, error)
	ApproveUser(ctx context.Context, hospitalID, username string, role domain.Role) (bool, error)
	GetPendingUsers(hospitalID string, role domain.Role) []domain.User
	GetAllUsers(hospitalID string) map[string]domain.User
	GetUserByUsername(hospitalID, username string, role domain.Role) (domain.User, bool)
	GetAllClinicians(hospitalID string) []domain.User
	GetAllPatients(caller domain.Caller, hospitalID string) []domain.User
	GetAllHospitals() []string
	GetHospitalDataset(hospitalID string) domain.Hospital
	GetAssignedClinicians(hospitalID, patient string) []string
	AssignClinician(ctx context.Context, hospitalID, patient, clinician string) (bool, error)
	UnassignClinician(ctx context.Context, hospitalID, patient, clinician string) (bool, error)

	AddNote(ctx context.Context, hospitalID string, note domain.Note) (*domain.Note, error)
	GetNote(hospitalID, noteID string) (domain.Note, bool)
	GetVisibleNote(caller domain.Caller, hospitalID, noteID string) (domain.Note, bool)
	UpdateNote(ctx context.Context, hospitalID, noteID string, upd domain.NoteUpdate) (bool, error)
	DeleteNote(ctx context.Context, hospitalID, noteID string) (bool, error)
	SearchNotes(caller domain.Caller, hospitalID, patient, term string) []domain.Note
	GetPainAlerts(hospitalID string) []domain.Alert
	DismissAlert(ctx context.Context, hospitalID, alertID string) (bool, error)
	GetPendingFeedback(caller domain.Caller, hospitalID string) []domain.Note
	GenerateAndStoreAIFeedback(ctx context.Context, hospitalID, noteID string) (bool, error)
	ApproveAIFeedback(ctx context.Context, hospitalID, noteID, text string) (bool, error)
	RejectAIFeedback(ctx context.Context, hospitalID, noteID string) (bool, error)
}

type MessagingService interface {
	AddGeneralMessage(ctx context.Context, hospitalID, patient, sender string, senderRole domain.Role, text string) (*domain.Message, error)
	AddDirectMessage(ctx context.Context, hospitalID, patient, clinician, sender string, senderRole domain.Role, text string) (*domain.Message, error)
	GetGeneralMessages(hospitalID, patient string, limit int) []domain.Message
	GetDirectMessages(hospitalID, patient, clinician string, limit int) []domain.Message
	ClearGeneralMessages(ctx context.Context, hospitalID, patient string) (bool, error)
	ClearDirectMessages(ctx context.Context, hospitalID, patient, clinician string) (bool, error)
	ListGeneralPatients(hospitalID string) []string
	ListDirectThreadsForClinician(hospitalID, clinician string) []string
}

type SessionService interface {
	IssueToken(user domain.User, hospitalID string) (string, error)
	Logout(ctx context.Context, claims *services.SessionClaims) error
}

// UserView is a user record without credentials.
type UserView struct {
	Username           string        `json:"username"`
	Role               domain.Role   `json:"role"`
	Status             domain.Status `json:"status"`
	FullName           string        `json:"full_name"`
	DOB                string        `json:"dob"`
	Sex                string        `json:"sex"`
	Pronouns           string        `json:"pronouns"`
	Bio                string        `json:"bio"`
	AssignedClinicians []string      `json:"assigned_clinicians"`
}

func toUserView(u domain.User) UserView {
	assigned := u.AssignedClinicians
	if assigned == nil {
		assigned = []string{}
	}
	return UserView{
		Username:           u.Username,
		Role:               u.Role,
		Status:             u.Status,
		FullName:           u.FullName,
		DOB:                u.DOB,
		Sex:                u.Sex,
		Pronouns:           u.Pronouns,
		Bio:                u.Bio,
		AssignedClinicians: assigned,
	}
}

func toUserViews(users []domain.User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, toUserView(u))
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("http: failed to encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, log *zap.Logger, status int, msg string) {
	writeJSON(w, log, status, MessageResponse{Message: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// internalError logs err and answers 500 without leaking details.
func internalError(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	log.Error("http: "+msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

// boolResult maps a service found/changed flag to 200 or 404.
func boolResult(w http.ResponseWriter, log *zap.Logger, ok bool, err error, okMsg, notFoundMsg string) {
	if err != nil {
		internalError(w, log, "failed to persist change", err)
		return
	}
	if !ok {
		http.Error(w, notFoundMsg, http.StatusNotFound)
		return
	}
	writeMessage(w, log, http.StatusOK, okMsg)
}

// canSeePatient reports whether caller may read or write the patient's
// records: admins always, the patient themself, and assigned clinicians.
func canSeePatient(records RecordService, c domain.Caller, patient string) bool {
	switch c.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePatient:
		return c.Username == patient
	case domain.RoleClinician:
		return slices.Contains(records.GetAssignedClinicians(c.Hospital, patient), c.Username)
	}
	return false
}
