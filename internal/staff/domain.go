package staff

import (
	"errors"
	"time"
)

// Role scopes what a staff member may operate on.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleStaff     Role = "staff"
	RoleFermenter Role = "fermenter"
	RoleDryer     Role = "dryer"
	RoleGrader    Role = "grader"
)

var validRoles = map[Role]struct{}{
	RoleAdmin:     {},
	RoleManager:   {},
	RoleStaff:     {},
	RoleFermenter: {},
	RoleDryer:     {},
	RoleGrader:    {},
}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	_, ok := validRoles[r]
	return ok
}

// Member is a staff account.
type Member struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	// ErrStaffNotFound indicates an unknown staff ID.
	ErrStaffNotFound = errors.New("staff: not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("staff: email already registered")
	// ErrInvalidRole indicates an unlisted role.
	ErrInvalidRole = errors.New("staff: invalid role")
	// ErrInactive indicates a deactivated member may not be edited.
	ErrInactive = errors.New("staff: member is inactive")
)
