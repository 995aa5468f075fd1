package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole enum constants
const (
	RoleEmployee = "Employee"
	RoleESS      = "ESS" // reviewer/approver role
	RoleAdmin    = "Admin"
)

// User represents an account that can log in and act in the workflow
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName         string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName          string    `gorm:"type:varchar(100);not null" json:"last_name"`
	JobTitle          string    `gorm:"type:varchar(100)" json:"job_title"`
	Role              string    `gorm:"type:varchar(20);not null" json:"role"` // Employee, ESS, Admin
	Username          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Password          string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	IsDefaultPassword bool      `gorm:"not null;default:false" json:"is_default_password"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName is the denormalized identity string stored on requests and
// timeline events, e.g. "Morgan Elliot - MFG ENG".
func (u *User) DisplayName() string {
	if u.JobTitle == "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName + " " + u.LastName + " - " + u.JobTitle
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
