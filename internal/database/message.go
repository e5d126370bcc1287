package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func preloadMessage(db *gorm.DB) *gorm.DB {
	return db.Preload("Sender").Preload("ReadBy", func(db *gorm.DB) *gorm.DB {
		return db.Order("read_at ASC, id ASC")
	})
}

// AppendMessage сохраняет сообщение, отметку о прочтении отправителем и
// сдвигает last_activity_at комнаты. Всё или ничего.
func (d *Database) AppendMessage(ctx context.Context, message *models.Message) error {
	return d.appendMessage(ctx, message, nil)
}

// AppendJoining то же, но сначала добавляет отправителя в участники
// в той же транзакции: неудачная отправка не оставляет участника.
func (d *Database) AppendJoining(ctx context.Context, p *models.Participant, message *models.Message) error {
	return d.appendMessage(ctx, message, p)
}

func (d *Database) appendMessage(ctx context.Context, message *models.Message, join *models.Participant) error {
	return translate(d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Room{}).
			Where("id = ?", message.RoomID).
			Update("last_activity_at", message.CreatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if join != nil {
			if join.JoinedAt.IsZero() {
				join.JoinedAt = message.CreatedAt
			}
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(join).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Omit(clause.Associations).Create(message).Error; err != nil {
			return err
		}

		return tx.Create(&models.MessageRead{
			MessageID: message.ID,
			UserID:    message.SenderID,
			ReadAt:    message.CreatedAt,
		}).Error
	}))
}

func (d *Database) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	var message models.Message
	if err := preloadMessage(d.db.WithContext(ctx)).First(&message, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

// GetRoomMessages последние limit сообщений комнаты (до beforeID, если задан)
// в порядке возрастания времени
func (d *Database) GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int, beforeID *uint64) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.WithContext(ctx).Where("room_id = ?", roomID)

	if beforeID != nil {
		var before models.Message
		err := d.db.WithContext(ctx).
			Select("id", "created_at").
			First(&before, "id = ? AND room_id = ?", *beforeID, roomID).Error
		if err != nil {
			return nil, translate(err)
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			before.CreatedAt, before.CreatedAt, before.ID)
	}

	err := preloadMessage(query).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// GetLastMessages последнее сообщение каждой из комнат
func (d *Database) GetLastMessages(ctx context.Context, roomIDs []uuid.UUID) (map[uuid.UUID]models.Message, error) {
	result := make(map[uuid.UUID]models.Message, len(roomIDs))
	if len(roomIDs) == 0 {
		return result, nil
	}

	var messages []models.Message
	err := d.db.WithContext(ctx).
		Where("room_id IN ?", roomIDs).
		Where("NOT EXISTS (SELECT 1 FROM chat_messages newer WHERE newer.room_id = chat_messages.room_id AND (newer.created_at > chat_messages.created_at OR (newer.created_at = chat_messages.created_at AND newer.id > chat_messages.id)))").
		Preload("Sender").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for _, m := range messages {
		result[m.RoomID] = m
	}
	return result, nil
}
