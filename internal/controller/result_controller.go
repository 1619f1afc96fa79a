package controller

import (
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/service"
	"mocktest_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	Service *service.ResultService
}

func NewResultController(svc *service.ResultService) *ResultController {
	return &ResultController{Service: svc}
}

// @Summary 查看成绩详情
// @Description 按提交ID查看成绩，逐题对错按评分规则重新计算
// @Tags 模拟考试成绩
// @Produce json
// @Security BearerAuth
// @Param submissionId path string true "提交ID"
// @Success 200 {object} util.Response{data=service.ResultView}
// @Failure 404 {object} util.Response
// @Router /api/results/{submissionId} [get]
func (c *ResultController) ViewResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.ViewResult(ctx.Request.Context(), ctx.Param("submissionId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if view.UserID != user.UserID && user.Role != model.Admin {
		respondError(ctx, util.ErrPermissionDenied)
		return
	}

	util.Success(ctx, view)
}

// @Summary 查看本人在某试卷上的最近一次成绩
// @Tags 模拟考试成绩
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response{data=service.ResultView}
// @Failure 404 {object} util.Response
// @Router /api/mock-tests/{id}/result [get]
func (c *ResultController) ViewLatestResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Service.ViewResultByTestAndUser(ctx.Request.Context(), ctx.Param("id"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 我的成绩列表
// @Tags 模拟考试成绩
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.ResultSummary}
// @Router /api/results [get]
func (c *ResultController) ListMyResults(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	results, err := c.Service.ListUserResults(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.List(ctx, results)
}

// @Summary 试卷的全部提交
// @Tags 模拟考试管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response{data=[]service.ResultSummary}
// @Router /api/admin/mock-tests/{id}/submissions [get]
func (c *ResultController) ListTestSubmissions(ctx *gin.Context) {
	results, err := c.Service.ListTestSubmissions(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.List(ctx, results)
}
