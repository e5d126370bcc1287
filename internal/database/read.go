package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"gorm.io/gorm/clause"
)

const unreadCondition = "NOT EXISTS (SELECT 1 FROM chat_message_reads r WHERE r.message_id = chat_messages.id AND r.user_id = ?)"

// MarkRead отмечает сообщения прочитанными. Уже существующие отметки
// пропускаются на уровне уникального индекса, возвращает число новых.
func (d *Database) MarkRead(ctx context.Context, messageIDs []uint64, userID uuid.UUID, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	reads := make([]models.MessageRead, 0, len(messageIDs))
	for _, id := range messageIDs {
		reads = append(reads, models.MessageRead{
			MessageID: id,
			UserID:    userID,
			ReadAt:    at,
		})
	}

	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&reads)
	return res.RowsAffected, res.Error
}

// UnreadMessageIDs сообщения комнаты без отметки пользователя, по порядку
func (d *Database) UnreadMessageIDs(ctx context.Context, roomID, userID uuid.UUID) ([]uint64, error) {
	var ids []uint64
	err := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Where(unreadCondition, userID).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// UnreadCounts число непрочитанных по комнатам; комнат без непрочитанных нет в ответе
func (d *Database) UnreadCounts(ctx context.Context, roomIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		RoomID uuid.UUID
		Unread int64
	}
	err := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("room_id, COUNT(*) AS unread").
		Where("room_id IN ?", roomIDs).
		Where(unreadCondition, userID).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.RoomID] = row.Unread
	}
	return result, nil
}

func (d *Database) CountReads(ctx context.Context, messageID uint64, userID uuid.UUID) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.MessageRead{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Count(&count).Error
	return count, err
}
