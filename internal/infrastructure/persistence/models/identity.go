package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sasa-apparel/backend/internal/domain/analytics"
	"github.com/sasa-apparel/backend/internal/domain/identity"
)

// UserModel is the GORM model for dashboard accounts.
type UserModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID       *uuid.UUID `gorm:"type:uuid;index"`
	Username       string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	DisplayName    string     `gorm:"type:varchar(128)"`
	Email          string     `gorm:"type:varchar(255)"`
	PasswordHash   string     `gorm:"type:varchar(255);not null"`
	Role           string     `gorm:"type:varchar(16);not null"`
	VendorID       *uuid.UUID `gorm:"type:uuid;index"`
	TailorID       *uuid.UUID `gorm:"type:uuid;index"`
	Status         string     `gorm:"type:varchar(16);not null;default:'active'"`
	LastLoginAt    *time.Time
	LastLoginIP    string `gorm:"type:varchar(45)"`
	FailedAttempts int    `gorm:"not null;default:0"`
	LockedUntil    *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for UserModel
func (UserModel) TableName() string {
	return "users"
}

// FromDomainUser populates the row from a domain user.
func (m *UserModel) FromDomainUser(u *identity.User) {
	m.ID = u.ID
	m.TenantID = u.TenantID
	m.Username = u.Username
	m.DisplayName = u.DisplayName
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = string(u.Role)
	m.VendorID = u.VendorID
	m.TailorID = u.TailorID
	m.Status = string(u.Status)
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.CreatedAt = u.CreatedAt
	m.UpdatedAt = u.UpdatedAt
}

// ToDomainUser converts the row back to a domain user.
func (m *UserModel) ToDomainUser() *identity.User {
	return &identity.User{
		ID:             m.ID,
		TenantID:       m.TenantID,
		Username:       m.Username,
		DisplayName:    m.DisplayName,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		Role:           analytics.Role(m.Role),
		VendorID:       m.VendorID,
		TailorID:       m.TailorID,
		Status:         identity.UserStatus(m.Status),
		LastLoginAt:    m.LastLoginAt,
		LastLoginIP:    m.LastLoginIP,
		FailedAttempts: m.FailedAttempts,
		LockedUntil:    m.LockedUntil,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
