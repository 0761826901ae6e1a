package model

import "time"

// Answer — записанный ответ респондента. Неизменяем после создания.
// Для multi_choice и scale_group на один вопрос приходится несколько
// записей; ответ по утверждению шкалы кодируется строкой "<key>: <value>".
type Answer struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"userId"`
	User       User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	QuestionID uint      `gorm:"index;not null" json:"questionId"`
	Question   Question  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Answer     string    `gorm:"size:255;not null" json:"answer"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Answer) TableName() string {
	return "answers"
}
