package domain

import "time"

// UserRole enumerates capabilities inside a department.
type UserRole string

const (
	RoleEmployee UserRole = "EMPLOYEE"
	RoleHead     UserRole = "HEAD"
	RoleAdmin    UserRole = "ADMIN"
)

// User is any employee of the organization; heads and admins are users with
// elevated capabilities. Heads lead the department they belong to.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	DepartmentID string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsHead reports whether the user may assign, escalate, reject and close
// tickets routed to their department.
func (u *User) IsHead() bool {
	return u.Role == RoleHead || u.Role == RoleAdmin
}
