package model

type Role string

const (
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
)

// ValidRole сообщает, входит ли роль в закрытый набор.
func ValidRole(r Role) bool {
	return r == RoleParent || r == RoleStudent
}

// User — респондент, идентифицируется стабильным Telegram ID.
// Создаётся лениво при первом контакте. Пустая роль = роль не выбрана.
type User struct {
	BaseModel
	TgID                int64  `gorm:"uniqueIndex;not null" json:"tgId"`
	FullName            string `gorm:"size:255" json:"fullName"`
	PhoneNumber         string `gorm:"size:50" json:"phoneNumber"`
	ConsentPersonalData bool   `gorm:"default:false" json:"consentPersonalData"`
	Role                Role   `gorm:"size:10;index" json:"role"`
	// Администраторы получают AI-отчёты в Telegram
	IsAdmin bool `gorm:"default:false" json:"isAdmin"`
}

func (User) TableName() string {
	return "users"
}
