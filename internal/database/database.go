package database

import (
	"errors"

	"github.com/thereayou/ideaverse-chat/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Migrate создаёт только таблицы чата. Пользователи, идеи и вакансии
// принадлежат другим сервисам, их схему здесь не трогаем.
func (d *Database) Migrate() error {
	tx := d.db.Session(&gorm.Session{})
	tx.Config.IgnoreRelationshipsWhenMigrating = true
	return tx.AutoMigrate(chatTables()...)
}

// MigrateAll чат вместе с внешними таблицами, для локальной базы и тестов
func (d *Database) MigrateAll() error {
	return d.db.AutoMigrate(append([]interface{}{
		&models.User{},
		&models.Idea{},
		&models.Job{},
		&models.Application{},
	}, chatTables()...)...)
}

func chatTables() []interface{} {
	return []interface{}{
		&models.Room{},
		&models.Participant{},
		&models.Message{},
		&models.MessageRead{},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
