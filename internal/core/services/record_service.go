package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

type RegisterOutcome string

const (
	RegisterApproved         RegisterOutcome = "approved"
	RegisterPending          RegisterOutcome = "pending"
	RegisterWeakPassword     RegisterOutcome = "weak_password"
	RegisterHospitalNotFound RegisterOutcome = "hospital_not_found"
	RegisterDuplicate        RegisterOutcome = "duplicate"
	RegisterInvalid          RegisterOutcome = "invalid"
)

type LoginOutcome string

const (
	LoginOK             LoginOutcome = "ok"
	LoginPending        LoginOutcome = "pending"
	LoginIntegrityError LoginOutcome = "error"
	LoginFailed         LoginOutcome = "failed"
)

type RegistrationRequest struct {
	Username   string      `json:"username" validate:"required"`
	Password   string      `json:"password" validate:"strong_password"`
	Role       domain.Role `json:"role" validate:"required,oneof=patient clinician admin"`
	HospitalID string      `json:"hospital_id" validate:"required"`
	FullName   string      `json:"full_name"`
	DOB        string      `json:"dob"`
	Sex        string      `json:"sex"`
	Pronouns   string      `json:"pronouns"`
	Bio        string      `json:"bio"`
}

// ProfileUpdate changes display fields; nil fields keep their value. A
// non-empty NewPassword replaces the password with a fresh salt.
type ProfileUpdate struct {
	FullName    *string `json:"full_name,omitempty"`
	DOB         *string `json:"dob,omitempty"`
	Sex         *string `json:"sex,omitempty"`
	Pronouns    *string `json:"pronouns,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	NewPassword string  `json:"new_password,omitempty"`
}

// RecordService owns the in-memory CareLog document. Every operation runs
// under one mutex and every mutation ends with a full save.
type RecordService struct {
	mu        sync.Mutex
	doc       *domain.Document
	saved     *domain.Document
	store     ports.DocumentStore
	publisher ports.AlertPublisher
	generator ports.FeedbackGenerator
	validate  *validator.Validate
	log       *zap.Logger
	now       func() time.Time
}

// NewRecordService loads the document from store. publisher and generator may
// be nil, which disables alert events and AI feedback respectively.
func NewRecordService(
	ctx context.Context,
	store ports.DocumentStore,
	publisher ports.AlertPublisher,
	generator ports.FeedbackGenerator,
	logger *zap.Logger,
) (*RecordService, error) {
	doc, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		doc = domain.NewDocument()
	}
	doc.Normalize()

	return &RecordService{
		doc:       doc,
		saved:     doc.Clone(),
		store:     store,
		publisher: publisher,
		generator: generator,
		validate:  newValidator(),
		log:       logger,
		now:       time.Now,
	}, nil
}

// persist saves the document. When the save fails the in-memory document
// reverts to the last saved copy, so a failed mutation leaves no trace.
// The caller holds s.mu.
func (s *RecordService) persist(ctx context.Context) error {
	if err := s.store.Save(ctx, s.doc); err != nil {
		s.doc = s.saved.Clone()
		return fmt.Errorf("persist document: %w", err)
	}
	s.saved = s.doc.Clone()
	return nil
}

func (s *RecordService) hospital(id string) (*domain.Hospital, bool) {
	h, ok := s.doc.Hospitals[id]
	return h, ok
}

func (s *RecordService) Register(ctx context.Context, req RegistrationRequest) (RegisterOutcome, error) {
	if outcome, ok := s.validateRegistration(req); !ok {
		return outcome, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.hospital(req.HospitalID)
	if !exists && req.Role != domain.RoleAdmin {
		return RegisterHospitalNotFound, nil
	}
	if exists {
		if _, dup := h.User(req.Username, req.Role); dup {
			return RegisterDuplicate, nil
		}
	}

	salt, err := newSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	status := domain.StatusApproved
	if exists && (req.Role == domain.RoleAdmin || req.Role == domain.RoleClinician) {
		status = domain.StatusPending
	}

	if !exists {
		h = domain.NewHospital()
		s.doc.Hospitals[req.HospitalID] = h
		s.log.Info("records: hospital created", zap.String("hospital", req.HospitalID))
	}

	user := &domain.User{
		Username:           req.Username,
		PasswordHash:       hashPassword(salt, req.Password),
		Role:               req.Role,
		Salt:               salt,
		Status:             status,
		FullName:           req.FullName,
		DOB:                req.DOB,
		Sex:                req.Sex,
		Pronouns:           req.Pronouns,
		Bio:                req.Bio,
		AssignedClinicians: []string{},
	}
	h.Users[user.Key()] = user

	if err := s.persist(ctx); err != nil {
		return "", err
	}

	s.log.Info("records: user registered",
		zap.String("hospital", req.HospitalID),
		zap.String("username", req.Username),
		zap.String("role", string(req.Role)),
		zap.String("status", string(status)),
	)

	if status == domain.StatusPending {
		return RegisterPending, nil
	}
	return RegisterApproved, nil
}

// validateRegistration reports a weak password ahead of every other problem.
func (s *RecordService) validateRegistration(req RegistrationRequest) (RegisterOutcome, bool) {
	err := s.validate.Struct(req)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "strong_password" {
				return RegisterWeakPassword, false
			}
		}
	}
	return RegisterInvalid, false
}

// Login checks credentials. The returned user is a copy and carries no
// session state; issuing a session is the SessionService's job.
func (s *RecordService) Login(username, password string, role domain.Role, hospitalID string) (*domain.User, LoginOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return nil, LoginFailed
	}
	u, ok := h.User(username, role)
	if !ok {
		return nil, LoginFailed
	}
	if u.Status == domain.StatusPending {
		return nil, LoginPending
	}
	if u.Salt == "" {
		s.log.Error("records: user record has no salt",
			zap.String("hospital", hospitalID),
			zap.String("username", username),
		)
		return nil, LoginIntegrityError
	}
	if !checkPassword(u.Salt, password, u.PasswordHash) {
		return nil, LoginFailed
	}

	out := u.Clone()
	return &out, LoginOK
}

func (s *RecordService) UpdateProfile(ctx context.Context, hospitalID, username string, role domain.Role, upd ProfileUpdate) (bool, error) {
	if upd.NewPassword != "" && !IsStrongPassword(upd.NewPassword) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	u, ok := h.User(username, role)
	if !ok {
		return false, nil
	}

	setIf(&u.FullName, upd.FullName)
	setIf(&u.DOB, upd.DOB)
	setIf(&u.Sex, upd.Sex)
	setIf(&u.Pronouns, upd.Pronouns)
	setIf(&u.Bio, upd.Bio)

	if upd.NewPassword != "" {
		salt, err := newSalt()
		if err != nil {
			return false, fmt.Errorf("generate salt: %w", err)
		}
		u.Salt = salt
		u.PasswordHash = hashPassword(salt, upd.NewPassword)
	}

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// DeleteUser removes a user and its footprint. A caller cannot delete itself.
func (s *RecordService) DeleteUser(ctx context.Context, caller domain.Caller, hospitalID, username string, role domain.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	if _, ok := h.User(username, role); !ok {
		return false, nil
	}
	if caller.Is(username, role) {
		return false, nil
	}

	delete(h.Users, domain.UserKey(username, role))
	cascadeDelete(h, username, role)

	if err := s.persist(ctx); err != nil {
		return false, err
	}

	s.log.Info("records: user deleted",
		zap.String("hospital", hospitalID),
		zap.String("username", username),
		zap.String("role", string(role)),
		zap.String("by", caller.Username),
	)
	return true, nil
}

func (s *RecordService) ApproveUser(ctx context.Context, hospitalID, username string, role domain.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	u, ok := h.User(username, role)
	if !ok {
		return false, nil
	}
	u.Status = domain.StatusApproved

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RecordService) GetPendingUsers(hospitalID string, role domain.Role) []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectUsers(hospitalID, func(u *domain.User) bool {
		return u.Role == role && u.Status == domain.StatusPending
	})
}

func (s *RecordService) GetAllClinicians(hospitalID string) []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectUsers(hospitalID, func(u *domain.User) bool {
		return u.Role == domain.RoleClinician && u.Status == domain.StatusApproved
	})
}

// collectUsers returns copies of the matching users ordered by username and
// role. The caller holds s.mu.
func (s *RecordService) collectUsers(hospitalID string, match func(*domain.User) bool) []domain.User {
	h, ok := s.hospital(hospitalID)
	if !ok {
		return []domain.User{}
	}
	out := []domain.User{}
	for _, u := range h.Users {
		if match(u) {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// GetAllUsers returns every user of the hospital keyed by "{username}_{role}".
func (s *RecordService) GetAllUsers(hospitalID string) map[string]domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]domain.User{}
	h, ok := s.hospital(hospitalID)
	if !ok {
		return out
	}
	for key, u := range h.Users {
		out[key] = u.Clone()
	}
	return out
}

func (s *RecordService) GetUserByUsername(hospitalID, username string, role domain.Role) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return domain.User{}, false
	}
	u, ok := h.User(username, role)
	if !ok {
		return domain.User{}, false
	}
	return u.Clone(), true
}

func (s *RecordService) GetHospitalDataset(hospitalID string) domain.Hospital {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return domain.NewHospital().Clone()
	}
	return h.Clone()
}

func (s *RecordService) GetAllHospitals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.doc.Hospitals))
	for id := range s.doc.Hospitals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *RecordService) GetAssignedClinicians(hospitalID, patient string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.assignedClinicians(hospitalID, patient))
}

// assignedClinicians returns the live assignment list. The caller holds s.mu.
func (s *RecordService) assignedClinicians(hospitalID, patient string) []string {
	h, ok := s.hospital(hospitalID)
	if !ok {
		return nil
	}
	u, ok := h.User(patient, domain.RolePatient)
	if !ok {
		return nil
	}
	return u.AssignedClinicians
}

// AssignClinician adds clinician to the patient's care team. It reports false
// when the patient is unknown or the clinician is already assigned.
func (s *RecordService) AssignClinician(ctx context.Context, hospitalID, patient, clinician string) (bool, error) {
	clinician = strings.TrimSpace(clinician)
	if clinician == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	u, ok := h.User(patient, domain.RolePatient)
	if !ok || u.IsAssigned(clinician) {
		return false, nil
	}
	u.AssignedClinicians = append(u.AssignedClinicians, clinician)

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RecordService) UnassignClinician(ctx context.Context, hospitalID, patient, clinician string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hospital(hospitalID)
	if !ok {
		return false, nil
	}
	u, ok := h.User(patient, domain.RolePatient)
	if !ok || !u.IsAssigned(clinician) {
		return false, nil
	}
	u.AssignedClinicians = slices.DeleteFunc(u.AssignedClinicians, func(c string) bool {
		return c == clinician
	})

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func newID() string {
	return uuid.NewString()
}
