package model

import "time"

const (
	AdminRoleName       = "admin"
	UserRoleName        = "user"
	AdminPermissionName = "admin_access"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MobileNumber string    `gorm:"size:32;not null;uniqueIndex" json:"mobile_number"`
	Email        *string   `gorm:"size:128" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	RoleID       *uint     `gorm:"index" json:"role_id"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	Roles        []Role    `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string       `gorm:"size:255" json:"description"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Permission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Resource    string    `gorm:"size:64;index" json:"resource"`
	Action      string    `gorm:"size:64" json:"action"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
