package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole глобальная роль пользователя на платформе
type UserRole string

const (
	RoleCreator    UserRole = "creator"
	RoleFreelancer UserRole = "freelancer"
	RoleRecruiter  UserRole = "recruiter"
	RoleAdmin      UserRole = "admin"
	RoleInvestor   UserRole = "investor"
)

// User принадлежит сервису аккаунтов, чат только читает его
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Role      UserRole  `gorm:"type:varchar(20);not null;index"`
	IsBlocked bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
