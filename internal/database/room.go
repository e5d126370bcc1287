package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func preloadParticipants(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC, id ASC")
		}).
		Preload("Participants.User")
}

// CreateRoom создаёт комнату вместе с начальными участниками в одной транзакции.
// Если активная комната с тем же ActiveKey уже есть, вернёт ErrDuplicate.
func (d *Database) CreateRoom(ctx context.Context, room *models.Room, participants []models.Participant) error {
	return translate(d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(room).Error; err != nil {
			return err
		}

		if len(participants) == 0 {
			return nil
		}

		for i := range participants {
			participants[i].RoomID = room.ID
		}
		return tx.Omit(clause.Associations).Create(&participants).Error
	}))
}

func (d *Database) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := preloadParticipants(d.db.WithContext(ctx)).First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// FindActiveRoom ищет активную комнату по ключу (тип + связанная сущность)
func (d *Database) FindActiveRoom(ctx context.Context, key string) (*models.Room, error) {
	var room models.Room
	err := preloadParticipants(d.db.WithContext(ctx)).
		Where("active_key = ? AND is_active = ?", key, true).
		First(&room).Error
	if err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// GetUserRooms активные комнаты пользователя, последние по активности первыми
func (d *Database) GetUserRooms(ctx context.Context, userID uuid.UUID, roomType models.RoomType, limit int) ([]models.Room, error) {
	var rooms []models.Room

	query := d.db.WithContext(ctx).
		Select("chat_rooms.*").
		Joins("JOIN chat_room_participants crp ON crp.room_id = chat_rooms.id").
		Where("crp.user_id = ? AND chat_rooms.is_active = ?", userID, true)

	if roomType != "" {
		query = query.Where("chat_rooms.type = ?", roomType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := preloadParticipants(query).
		Order("chat_rooms.last_activity_at DESC").
		Find(&rooms).Error

	return rooms, err
}

func (d *Database) IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddParticipant строгая вставка: повторное добавление вернёт ErrDuplicate
func (d *Database) AddParticipant(ctx context.Context, p *models.Participant) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	return translate(d.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

// EnsureParticipant добавляет участника, если его ещё нет; гонка двух вставок не ошибка
func (d *Database) EnsureParticipant(ctx context.Context, p *models.Participant) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	return d.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(p).Error
}
