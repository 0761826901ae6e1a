package database

import (
	"fmt"
	"log"

	"github.com/EgorMarkor/BotOpros/internal/config"
	"github.com/EgorMarkor/BotOpros/internal/model"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	err = db.AutoMigrate(
		&model.User{},
		&model.Question{},
		&model.Answer{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	if err := seedQuestions(db); err != nil {
		return nil, err
	}

	return db, nil
}

// seedQuestions — стартовая анкета, если таблица вопросов пуста.
// По одному вопросу каждой модальности на роль, чтобы было с чем работать
// до того, как оператор заведёт свои.
func seedQuestions(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Question{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []model.Question{
		{
			Role: model.RoleParent,
			Text: "Как вы оцениваете текущую школьную нагрузку ребёнка?",
			Type: model.QuestionChoice,
			Options: datatypes.NewJSONType([]model.Option{
				{Text: "Слишком высокая"},
				{Text: "Нормальная"},
				{Text: "Недостаточная"},
			}),
			Order:    1,
			IsActive: true,
		},
		{
			Role: model.RoleParent,
			Text: "Оцените каждое утверждение о вашем ребёнке:",
			Type: model.QuestionScaleGroup,
			Options: datatypes.NewJSONType([]model.Option{
				{Key: "а", Text: "Самостоятельно делает домашние задания"},
				{Key: "б", Text: "С интересом ходит в школу"},
				{Key: "в", Text: "Легко находит общий язык со сверстниками"},
			}),
			Order:    2,
			IsActive: true,
		},
		{
			Role:     model.RoleParent,
			Text:     "Что бы вы хотели изменить в учебном процессе? Напишите свободно.",
			Type:     model.QuestionText,
			Order:    3,
			IsActive: true,
		},
		{
			Role: model.RoleStudent,
			Text: "Какие предметы тебе нравятся? Можно выбрать несколько.",
			Type: model.QuestionMultiChoice,
			Options: datatypes.NewJSONType([]model.Option{
				{Text: "Математика"},
				{Text: "Русский язык"},
				{Text: "Информатика"},
				{Text: "Физкультура"},
			}),
			Order:    1,
			IsActive: true,
		},
		{
			Role:     model.RoleStudent,
			Text:     "Расскажи, чего тебе не хватает на уроках.",
			Type:     model.QuestionText,
			Order:    2,
			IsActive: true,
		},
	}

	for i := range defaults {
		if err := db.Create(&defaults[i]).Error; err != nil {
			return err
		}
	}

	log.Println("Default questionnaire seeded")
	return nil
}
