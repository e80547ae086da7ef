package entity

import "time"

// User 用户
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Username  string    `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	Email     string    `json:"email" gorm:"size:128"`
	Status    string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles;"`
}

func (User) TableName() string {
	return "users"
}

// Role 角色
type Role struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

// UserRole 用户角色关联
type UserRole struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:32"`
	RoleID    string    `json:"role_id" gorm:"primaryKey;size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
