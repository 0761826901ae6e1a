package controller

import (
	"errors"
	"net/http"

	"github.com/EgorMarkor/BotOpros/internal/service"
	"github.com/EgorMarkor/BotOpros/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	Reports *service.ReportService
}

func NewReportController(reports *service.ReportService) *ReportController {
	return &ReportController{Reports: reports}
}

// SendParentReport запускает генерацию AI-отчёта по анкетам родителей и
// рассылку администраторам. Отказы показываются оператору с причиной.
func (c *ReportController) SendParentReport(ctx *gin.Context) {
	result, err := c.Reports.SendParentReport(ctx.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoAdmins), errors.Is(err, service.ErrNoAnswers):
			util.Error(ctx, http.StatusBadRequest, err.Error())
		default:
			util.Error(ctx, http.StatusBadGateway, "Ошибка генерации AI-отчёта: "+err.Error())
		}
		return
	}

	util.Success(ctx, result)
}
