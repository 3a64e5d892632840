package model

import (
	"time"

	"github.com/google/uuid"
)

type AdminRole string

const (
	AdminRoleDepartment AdminRole = "department"
	AdminRoleSuper      AdminRole = "super"
)

// Admin is a department administrator or the super admin. A department admin
// only sees and mutates appointments, slots and notifications for its own
// department; the super admin sees all of them.
type Admin struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         AdminRole  `db:"role" json:"role"`
	Department   Department `db:"department" json:"department,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CanManage reports whether the admin may act on records of a department.
func (a *Admin) CanManage(dept Department) bool {
	return a.Role == AdminRoleSuper || a.Department == dept
}
