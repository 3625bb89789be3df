package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/middleware"
	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/services"
)

type AuthHandler struct {
	records  RecordService
	sessions SessionService
	log      *zap.Logger
}

func NewAuthHandler(records RecordService, sessions SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{records: records, sessions: sessions, log: logger}
}

type LoginRequest struct {
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Role       domain.Role `json:"role"`
	HospitalID string      `json:"hospital_id"`
}

type LoginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    UserView `json:"user"`
}

type RegistrationResponse struct {
	Message string                   `json:"message"`
	Outcome services.RegisterOutcome `json:"outcome"`
}

var registerStatus = map[services.RegisterOutcome]int{
	services.RegisterApproved:         http.StatusCreated,
	services.RegisterPending:          http.StatusAccepted,
	services.RegisterWeakPassword:     http.StatusBadRequest,
	services.RegisterInvalid:          http.StatusBadRequest,
	services.RegisterHospitalNotFound: http.StatusNotFound,
	services.RegisterDuplicate:        http.StatusConflict,
}

var registerMessage = map[services.RegisterOutcome]string{
	services.RegisterApproved:         "Registration successful",
	services.RegisterPending:          "Registration received, awaiting admin approval",
	services.RegisterWeakPassword:     "Password must be at least 8 characters and mix upper case, lower case, digits and symbols",
	services.RegisterInvalid:          "Invalid registration request",
	services.RegisterHospitalNotFound: "Hospital not found",
	services.RegisterDuplicate:        "User already exists",
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	outcome, err := h.records.Register(r.Context(), req)
	if err != nil {
		internalError(w, h.log, "Registration failed", err)
		return
	}

	writeJSON(w, h.log, registerStatus[outcome], RegistrationResponse{
		Message: registerMessage[outcome],
		Outcome: outcome,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, outcome := h.records.Login(req.Username, req.Password, req.Role, req.HospitalID)
	switch outcome {
	case services.LoginOK:
	case services.LoginPending:
		http.Error(w, "account awaiting approval", http.StatusForbidden)
		return
	case services.LoginIntegrityError:
		http.Error(w, "account record is damaged, contact an administrator", http.StatusInternalServerError)
		return
	default:
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.sessions.IssueToken(*user, req.HospitalID)
	if err != nil {
		internalError(w, h.log, "failed to issue token", err)
		return
	}

	h.log.Info("auth: login",
		zap.String("hospital", req.HospitalID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	writeJSON(w, h.log, http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   token,
		User:    toUserView(*user),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.sessions.Logout(r.Context(), claims); err != nil {
		internalError(w, h.log, "failed to log out", err)
		return
	}
	writeMessage(w, h.log, http.StatusOK, "Logged out")
}

func (h *AuthHandler) Hospitals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, h.records.GetAllHospitals())
}
