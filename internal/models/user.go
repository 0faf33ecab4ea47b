package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleAccounts UserRole = "accounts"
	RoleDesigner UserRole = "designer"
	RoleViewer   UserRole = "viewer"
)

type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`
}

// Actor is the authenticated identity behind a mutation.
type Actor struct {
	UserID uint
	Role   UserRole
}

// CanManageCost reports whether the role may set a project's contract value.
func (a Actor) CanManageCost() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// CanRecordPayments reports whether the role may record or reverse payments.
func (a Actor) CanRecordPayments() bool {
	switch a.Role {
	case RoleAdmin, RoleManager, RoleAccounts:
		return true
	}
	return false
}
