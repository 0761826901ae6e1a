package repository

import (
	"errors"

	"github.com/EgorMarkor/BotOpros/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// GetOrCreateByTgID лениво заводит респондента при первом контакте.
func (r *UserRepository) GetOrCreateByTgID(tgID int64) (*model.User, error) {
	var user model.User
	err := r.DB.Where(model.User{TgID: tgID}).FirstOrCreate(&user).Error
	return &user, err
}

func (r *UserRepository) FindByTgID(tgID int64) (*model.User, error) {
	var user model.User
	err := r.DB.Where("tg_id = ?", tgID).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) UpdateRole(tgID int64, role model.Role) error {
	res := r.DB.Model(&model.User{}).
		Where("tg_id = ?", tgID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

// ListAdmins возвращает получателей AI-отчётов.
func (r *UserRepository) ListAdmins() ([]model.User, error) {
	var users []model.User
	err := r.DB.Where("is_admin = ?", true).Order("tg_id").Find(&users).Error
	return users, err
}

type UserFilter struct {
	Role    model.Role
	IsAdmin *bool
	Consent *bool
	Search  string
}

func (r *UserRepository) List(filter UserFilter, page, limit int) ([]model.User, int64, error) {
	query := r.DB.Model(&model.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.IsAdmin != nil {
		query = query.Where("is_admin = ?", *filter.IsAdmin)
	}
	if filter.Consent != nil {
		query = query.Where("consent_personal_data = ?", *filter.Consent)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("full_name LIKE ? OR phone_number LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := query.Order("tg_id").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
