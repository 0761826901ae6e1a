package controller

import (
	"strconv"

	"github.com/EgorMarkor/BotOpros/internal/model"
	"github.com/EgorMarkor/BotOpros/internal/repository"
	"github.com/EgorMarkor/BotOpros/internal/util"

	"github.com/gin-gonic/gin"
)

type AnswerController struct {
	Answers *repository.AnswerRepository
}

func NewAnswerController(answers *repository.AnswerRepository) *AnswerController {
	return &AnswerController{Answers: answers}
}

func (c *AnswerController) List(ctx *gin.Context) {
	filter := repository.AnswerFilter{
		Role: model.Role(ctx.Query("role")),
	}
	if v := ctx.Query("user_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.UserID = uint(id)
		}
	}
	if v := ctx.Query("question_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.QuestionID = uint(id)
		}
	}

	page, limit := pagination(ctx)

	answers, total, err := c.Answers.List(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: answers, Total: total, Page: page, Limit: limit})
}
