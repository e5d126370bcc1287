// Package testutil собирает окружение для тестов: sqlite вместо postgres и сиды.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenGorm файловая sqlite на одном соединении: транзакции сериализуются
// так же, как строки под блокировкой в postgres. Схема не создаётся.
func OpenGorm(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// NewDatabase база со всеми таблицами, включая внешние
func NewDatabase(t testing.TB) *database.Database {
	t.Helper()

	d := database.NewDatabase(OpenGorm(t))
	require.NoError(t, d.MigrateAll())
	return d
}

func CreateUser(t testing.TB, d *database.Database, name string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:      name,
		Email:     name + "@ideaverse.test",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, d.SaveUser(context.Background(), user))
	return user
}

func CreateIdea(t testing.TB, d *database.Database, title string, creator *models.User, pitched bool) *models.Idea {
	t.Helper()
	idea := &models.Idea{
		Title:       title,
		CreatedByID: creator.ID,
		IsPitched:   pitched,
		CreatedAt:   time.Now().UTC(),
	}
	if pitched {
		now := time.Now().UTC()
		idea.PitchedAt = &now
	}
	require.NoError(t, d.SaveIdea(context.Background(), idea))
	return idea
}

func CreateJob(t testing.TB, d *database.Database, title string, recruiter *models.User) *models.Job {
	t.Helper()
	job := &models.Job{
		Title:      title,
		PostedByID: recruiter.ID,
		Status:     "open",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, d.SaveJob(context.Background(), job))
	return job
}

func Apply(t testing.TB, d *database.Database, job *models.Job, applicant *models.User) {
	t.Helper()
	require.NoError(t, d.SaveApplication(context.Background(), &models.Application{
		JobID:       job.ID,
		ApplicantID: applicant.ID,
		Status:      "applied",
		CreatedAt:   time.Now().UTC(),
	}))
}
