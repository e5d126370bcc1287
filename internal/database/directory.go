package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/models"
)

// Пользователи, идеи, вакансии и отклики ведут другие сервисы платформы.
// Здесь только чтение по id плюс Save* для сидов и тестов.

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return translate(d.db.WithContext(ctx).Create(user).Error)
}

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (d *Database) SaveIdea(ctx context.Context, idea *models.Idea) error {
	return translate(d.db.WithContext(ctx).Omit("CreatedBy").Create(idea).Error)
}

func (d *Database) GetIdea(ctx context.Context, id uuid.UUID) (*models.Idea, error) {
	var idea models.Idea
	if err := d.db.WithContext(ctx).First(&idea, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &idea, nil
}

// ListPitchedIdeas идеи, выставленные инвесторам, свежие первыми
func (d *Database) ListPitchedIdeas(ctx context.Context) ([]models.Idea, error) {
	var ideas []models.Idea
	err := d.db.WithContext(ctx).
		Where("is_pitched = ?", true).
		Order("pitched_at DESC").
		Preload("CreatedBy").
		Find(&ideas).Error
	return ideas, err
}

func (d *Database) SaveJob(ctx context.Context, job *models.Job) error {
	return translate(d.db.WithContext(ctx).Create(job).Error)
}

func (d *Database) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := d.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

func (d *Database) SaveApplication(ctx context.Context, app *models.Application) error {
	return translate(d.db.WithContext(ctx).Create(app).Error)
}

// HasApplied любой отклик на вакансию делает пользователя кандидатом
func (d *Database) HasApplied(ctx context.Context, jobID, userID uuid.UUID) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("job_id = ? AND applicant_id = ?", jobID, userID).
		Count(&count).Error
	return count > 0, err
}
