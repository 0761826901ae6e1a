package repository

import (
	"errors"

	"github.com/EgorMarkor/BotOpros/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Question{}, id).Error
}

// ListActiveByRole — последовательность прохождения анкеты: активные
// вопросы роли в порядке (sort_order, id). Порядок тотальный и стабильный,
// id разрешает равные sort_order.
func (r *QuestionRepository) ListActiveByRole(role model.Role) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.
		Where("role = ? AND is_active = ?", role, true).
		Order("sort_order, id").
		Find(&questions).Error
	return questions, err
}

// FindByPollID сопоставляет входящий PollAnswer с вопросом.
// Возвращает (nil, nil), если опрос чужой или устаревший.
func (r *QuestionRepository) FindByPollID(pollID string) (*model.Question, error) {
	var q model.Question
	err := r.DB.Where("telegram_poll_id = ?", pollID).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// SetPollID записывает идентификатор живого опроса на определение вопроса.
func (r *QuestionRepository) SetPollID(questionID uint, pollID string) error {
	return r.DB.Model(&model.Question{}).
		Where("id = ?", questionID).
		Update("telegram_poll_id", pollID).
		Error
}

type QuestionFilter struct {
	Role     model.Role
	Type     model.QuestionType
	IsActive *bool
}

func (r *QuestionRepository) List(filter QuestionFilter, page, limit int) ([]model.Question, int64, error) {
	query := r.DB.Model(&model.Question{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []model.Question
	err := query.Order("sort_order, id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&questions).Error
	return questions, total, err
}
