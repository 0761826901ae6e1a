package model

import (
	"gorm.io/datatypes"
)

// QuestionType — закрытый набор модальностей вопроса.
type QuestionType string

const (
	// Опрос с одним вариантом ответа
	QuestionChoice QuestionType = "choice"
	// Опрос с несколькими вариантами
	QuestionMultiChoice QuestionType = "multi_choice"
	// Группа утверждений, каждое оценивается по шкале 1..10
	QuestionScaleGroup QuestionType = "scale_group"
	// Открытый вопрос, свободный текст
	QuestionText QuestionType = "text"
)

func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionChoice, QuestionMultiChoice, QuestionScaleGroup, QuestionText:
		return true
	}
	return false
}

// Option — элемент списка options. Для choice/multi_choice заполняется
// только Text, для scale_group ещё и Key (буква утверждения).
type Option struct {
	Key  string `json:"key,omitempty"`
	Text string `json:"text"`
}

// Question — определение вопроса анкеты. Активные вопросы одной роли,
// упорядоченные по (sort_order, id), и есть последовательность прохождения.
type Question struct {
	BaseModel
	Role     Role                         `gorm:"size:10;index;not null" json:"role"`
	Text     string                       `gorm:"type:text;not null" json:"text"`
	Type     QuestionType                 `gorm:"size:20;default:'choice'" json:"type"`
	Options  datatypes.JSONType[[]Option] `gorm:"type:json" json:"options"`
	Order    int                          `gorm:"column:sort_order;default:0;index" json:"order"`
	IsActive bool                         `gorm:"default:true" json:"isActive"`
	// Идентификатор живого Telegram-опроса; записывается при отправке,
	// по нему входящий PollAnswer сопоставляется с вопросом. Хранится
	// один на определение: параллельные респонденты на одном вопросе
	// перезаписывают его (см. DESIGN.md).
	TelegramPollID string `gorm:"size:255;index" json:"telegramPollId"`
}

func (Question) TableName() string {
	return "questions"
}

// OptionTexts возвращает тексты вариантов в порядке хранения.
func (q *Question) OptionTexts() []string {
	opts := q.Options.Data()
	texts := make([]string, 0, len(opts))
	for _, o := range opts {
		texts = append(texts, o.Text)
	}
	return texts
}
