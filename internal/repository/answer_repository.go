package repository

import (
	"github.com/EgorMarkor/BotOpros/internal/model"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

func (r *AnswerRepository) Create(a *model.Answer) error {
	return r.DB.Create(a).Error
}

// ListByUserID — ответы одного респондента с вопросами, в порядке создания.
func (r *AnswerRepository) ListByUserID(userID uint) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.
		Preload("Question").
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&answers).Error
	return answers, err
}

// ListByRole — ответы всех респондентов роли, сгруппированные по
// респонденту (user_id), внутри группы в порядке создания.
func (r *AnswerRepository) ListByRole(role model.Role) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.
		Preload("Question").
		Preload("User").
		Joins("JOIN users ON users.id = answers.user_id").
		Where("users.role = ? AND users.deleted_at IS NULL", role).
		Order("answers.user_id, answers.created_at").
		Find(&answers).Error
	return answers, err
}

type AnswerFilter struct {
	UserID     uint
	QuestionID uint
	Role       model.Role
}

func (r *AnswerRepository) List(filter AnswerFilter, page, limit int) ([]model.Answer, int64, error) {
	query := r.DB.Model(&model.Answer{}).
		Preload("Question").
		Preload("User")

	if filter.UserID != 0 {
		query = query.Where("answers.user_id = ?", filter.UserID)
	}
	if filter.QuestionID != 0 {
		query = query.Where("answers.question_id = ?", filter.QuestionID)
	}
	if filter.Role != "" {
		query = query.
			Joins("JOIN users ON users.id = answers.user_id").
			Where("users.role = ?", filter.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var answers []model.Answer
	err := query.Order("answers.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&answers).Error
	return answers, total, err
}
