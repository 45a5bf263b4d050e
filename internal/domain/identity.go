package domain

// Role is the coarse permission level of an acting user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Identity is the already-authenticated caller. Service operations take it explicitly.
type Identity struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsAdmin reports whether the identity may use administrator operations.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// RequireAdmin returns ErrForbidden unless the identity is an administrator.
func (i Identity) RequireAdmin() error {
	if i.ID == "" || !i.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
