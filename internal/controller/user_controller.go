package controller

import (
	"strconv"
	"strings"
	"time"

	"github.com/EgorMarkor/BotOpros/internal/model"
	"github.com/EgorMarkor/BotOpros/internal/repository"
	"github.com/EgorMarkor/BotOpros/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	Users   *repository.UserRepository
	Answers *repository.AnswerRepository
}

func NewUserController(users *repository.UserRepository, answers *repository.AnswerRepository) *UserController {
	return &UserController{Users: users, Answers: answers}
}

// AnswerView — ответ в развёрнутом для оператора виде: для шкал вместо
// сырого "<key>: <value>" показываются текст утверждения и голая оценка.
type AnswerView struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserDetail struct {
	model.User
	Answers []AnswerView `json:"answers"`
}

func (c *UserController) List(ctx *gin.Context) {
	filter := repository.UserFilter{
		Role:   model.Role(ctx.Query("role")),
		Search: ctx.Query("search"),
	}
	if v := ctx.Query("is_admin"); v != "" {
		b := v == "true"
		filter.IsAdmin = &b
	}
	if v := ctx.Query("consent"); v != "" {
		b := v == "true"
		filter.Consent = &b
	}

	page, limit := pagination(ctx)

	users, total, err := c.Users.List(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: users, Total: total, Page: page, Limit: limit})
}

func (c *UserController) Get(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	user, err := c.Users.FindByID(uint(id))
	if err != nil {
		if repository.IsNotFound(err) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	answers, err := c.Answers.ListByUserID(user.ID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	detail := UserDetail{User: *user, Answers: make([]AnswerView, 0, len(answers))}
	for _, a := range answers {
		detail.Answers = append(detail.Answers, AnswerView{
			Question:  prettyQuestion(&a),
			Answer:    prettyAnswer(&a),
			CreatedAt: a.CreatedAt,
		})
	}

	util.Success(ctx, detail)
}

type userUpdateRequest struct {
	FullName            *string `json:"fullName"`
	PhoneNumber         *string `json:"phoneNumber"`
	ConsentPersonalData *bool   `json:"consentPersonalData"`
	IsAdmin             *bool   `json:"isAdmin"`
}

func (c *UserController) Update(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req userUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.Users.FindByID(uint(id))
	if err != nil {
		if repository.IsNotFound(err) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.ConsentPersonalData != nil {
		user.ConsentPersonalData = *req.ConsentPersonalData
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := c.Users.Update(user); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, user)
}

// prettyQuestion дополняет вопрос шкальной группы текстом утверждения,
// к которому относится конкретная оценка.
func prettyQuestion(a *model.Answer) string {
	if a.Question.Type != model.QuestionScaleGroup {
		return a.Question.Text
	}

	key, _, ok := strings.Cut(a.Answer, ":")
	if !ok {
		return a.Question.Text
	}
	key = strings.TrimSpace(key)

	for _, opt := range a.Question.Options.Data() {
		if opt.Key == key {
			return a.Question.Text + "\n— " + key + ") " + opt.Text
		}
	}
	return a.Question.Text
}

// prettyAnswer у шкальных ответов отбрасывает ключ, оставляя оценку.
func prettyAnswer(a *model.Answer) string {
	if a.Question.Type != model.QuestionScaleGroup {
		return a.Answer
	}

	_, value, ok := strings.Cut(a.Answer, ":")
	if !ok {
		return a.Answer
	}
	return strings.TrimSpace(value)
}

func pagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
