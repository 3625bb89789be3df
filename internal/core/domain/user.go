package domain

import "slices"

type Role string

const (
	RolePatient   Role = "patient"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleClinician, RoleAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// User is the stored account record. PasswordHash and Salt never leave the
// service layer through the HTTP adapter.
type User struct {
	Username           string   `json:"username"`
	PasswordHash       string   `json:"password_hash"`
	Role               Role     `json:"role"`
	Salt               string   `json:"salt"`
	Status             Status   `json:"status"`
	FullName           string   `json:"full_name"`
	DOB                string   `json:"dob"`
	Sex                string   `json:"sex"`
	Pronouns           string   `json:"pronouns"`
	Bio                string   `json:"bio"`
	AssignedClinicians []string `json:"assigned_clinicians"`
}

// UserKey builds the map key a user is stored under inside a hospital.
func UserKey(username string, role Role) string {
	return username + "_" + string(role)
}

func (u User) Key() string {
	return UserKey(u.Username, u.Role)
}

func (u User) IsAssigned(clinician string) bool {
	return slices.Contains(u.AssignedClinicians, clinician)
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	u.AssignedClinicians = slices.Clone(u.AssignedClinicians)
	if u.AssignedClinicians == nil {
		u.AssignedClinicians = []string{}
	}
	return u
}

// Caller identifies whoever invokes an access-sensitive operation.
type Caller struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Hospital string `json:"hospital"`
}

func (c Caller) Is(username string, role Role) bool {
	return c.Username == username && c.Role == role
}
