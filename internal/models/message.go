package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MaxMessageLength ограничение длины текста в символах
const MaxMessageLength = 5000

// Message неизменяем после создания. ID растёт вместе с порядком вставки
// и разрешает равенство CreatedAt.
type Message struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	RoomID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_message_room_created,priority:1"`
	SenderID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Text        string         `gorm:"type:text;not null"`
	Attachments datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_message_room_created,priority:2"`

	// Связи
	Sender User          `gorm:"foreignKey:SenderID"`
	ReadBy []MessageRead `gorm:"foreignKey:MessageID"`
}

func (Message) TableName() string { return "chat_messages" }

func (m *Message) IsReadBy(userID uuid.UUID) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MessageRead отметка "пользователь видел сообщение", пара (MessageID, UserID) уникальна
type MessageRead struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MessageID uint64    `gorm:"not null;uniqueIndex:idx_read_message_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_read_message_user;index"`
	ReadAt    time.Time `gorm:"not null"`
}

func (MessageRead) TableName() string { return "chat_message_reads" }
