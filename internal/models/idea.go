package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Idea struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"not null"`
	Description string
	CreatedByID uuid.UUID `gorm:"type:uuid;not null;index"`
	IsPitched   bool      `gorm:"not null;default:false"`
	PitchedAt   *time.Time
	CreatedAt   time.Time

	CreatedBy User `gorm:"foreignKey:CreatedByID"`
}

func (i *Idea) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Job struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title      string    `gorm:"not null"`
	PostedByID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status     string    `gorm:"type:varchar(20);not null;default:'open'"`
	CreatedAt  time.Time
}

func (j *Job) BeforeCreate(*gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// Application отклик фрилансера на вакансию
type Application struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_application_job_applicant"`
	ApplicantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_application_job_applicant"`
	Status      string    `gorm:"type:varchar(20);not null;default:'applied'"`
	CreatedAt   time.Time
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
