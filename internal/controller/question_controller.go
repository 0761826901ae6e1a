package controller

import (
	"strconv"

	"github.com/EgorMarkor/BotOpros/internal/model"
	"github.com/EgorMarkor/BotOpros/internal/repository"
	"github.com/EgorMarkor/BotOpros/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type QuestionController struct {
	Questions *repository.QuestionRepository
}

func NewQuestionController(questions *repository.QuestionRepository) *QuestionController {
	return &QuestionController{Questions: questions}
}

type questionRequest struct {
	Role     model.Role         `json:"role" binding:"required"`
	Text     string             `json:"text" binding:"required"`
	Type     model.QuestionType `json:"type" binding:"required"`
	Options  []model.Option     `json:"options"`
	Order    int                `json:"order"`
	IsActive *bool              `json:"isActive"`
}

func (r *questionRequest) validate() string {
	if !model.ValidRole(r.Role) {
		return "unknown role"
	}
	if !model.ValidQuestionType(r.Type) {
		return "unknown question type"
	}
	switch r.Type {
	case model.QuestionChoice, model.QuestionMultiChoice:
		if len(r.Options) < 2 {
			return "choice question needs at least 2 options"
		}
	case model.QuestionScaleGroup:
		if len(r.Options) == 0 {
			return "scale group needs items"
		}
		for _, o := range r.Options {
			if o.Key == "" {
				return "scale group item needs a key"
			}
		}
	}
	return ""
}

func (c *QuestionController) Create(ctx *gin.Context) {
	var req questionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		util.BadRequest(ctx, msg)
		return
	}

	q := &model.Question{
		Role:     req.Role,
		Text:     req.Text,
		Type:     req.Type,
		Options:  datatypes.NewJSONType(req.Options),
		Order:    req.Order,
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	if err := c.Questions.Create(q); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, q)
}

func (c *QuestionController) List(ctx *gin.Context) {
	filter := repository.QuestionFilter{
		Role: model.Role(ctx.Query("role")),
		Type: model.QuestionType(ctx.Query("type")),
	}
	if v := ctx.Query("is_active"); v != "" {
		b := v == "true"
		filter.IsActive = &b
	}

	page, limit := pagination(ctx)

	questions, total, err := c.Questions.List(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: questions, Total: total, Page: page, Limit: limit})
}

func (c *QuestionController) Get(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	q, err := c.Questions.FindByID(uint(id))
	if err != nil {
		if repository.IsNotFound(err) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, q)
}

func (c *QuestionController) Update(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	var req questionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		util.BadRequest(ctx, msg)
		return
	}

	q, err := c.Questions.FindByID(uint(id))
	if err != nil {
		if repository.IsNotFound(err) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	q.Role = req.Role
	q.Text = req.Text
	q.Type = req.Type
	q.Options = datatypes.NewJSONType(req.Options)
	q.Order = req.Order
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}

	if err := c.Questions.Update(q); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, q)
}

func (c *QuestionController) Delete(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid id")
		return
	}

	if err := c.Questions.Delete(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
