package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomType string

const (
	RoomProject    RoomType = "project"
	RoomJob        RoomType = "job"
	RoomDirect     RoomType = "direct"
	RoomInvestment RoomType = "investment"
)

// ParseRoomType возвращает false для неизвестных значений
func ParseRoomType(s string) (RoomType, bool) {
	switch t := RoomType(s); t {
	case RoomProject, RoomJob, RoomDirect, RoomInvestment:
		return t, true
	}
	return "", false
}

// ParticipantRole роль пользователя внутри конкретной комнаты
type ParticipantRole string

const (
	ParticipantCreator    ParticipantRole = "creator"
	ParticipantFreelancer ParticipantRole = "freelancer"
	ParticipantRecruiter  ParticipantRole = "recruiter"
	ParticipantInvestor   ParticipantRole = "investor"
	ParticipantAdmin      ParticipantRole = "admin"
)

// Room - разговор, привязанный к идее, вакансии или паре пользователей.
// ActiveKey заполнен только у активной комнаты и уникален, это и держит
// инвариант "одна активная комната на сущность".
type Room struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name           string     `gorm:"not null"`
	Type           RoomType   `gorm:"type:varchar(20);not null;index"`
	IdeaID         *uuid.UUID `gorm:"type:uuid;index"`
	JobID          *uuid.UUID `gorm:"type:uuid;index"`
	IsActive       bool       `gorm:"not null;default:true;index:idx_room_active_activity,priority:1"`
	ActiveKey      *string    `gorm:"size:128;uniqueIndex"`
	LastActivityAt time.Time  `gorm:"not null;index:idx_room_active_activity,priority:2"`
	CreatedAt      time.Time

	Participants []Participant `gorm:"foreignKey:RoomID"`
}

func (Room) TableName() string { return "chat_rooms" }

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Room) HasParticipant(userID uuid.UUID) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *Room) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Participants))
	for _, p := range r.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

type Participant struct {
	ID       uint            `gorm:"primaryKey"`
	RoomID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_participant_room_user"`
	UserID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_participant_room_user;index"`
	Role     ParticipantRole `gorm:"type:varchar(20)"`
	JoinedAt time.Time       `gorm:"not null"`

	User User `gorm:"foreignKey:UserID"`
}

func (Participant) TableName() string { return "chat_room_participants" }
