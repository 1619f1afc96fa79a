package controller

import (
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/service"
	"mocktest_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type MockTestController struct {
	Service *service.MockTestService
}

func NewMockTestController(svc *service.MockTestService) *MockTestController {
	return &MockTestController{Service: svc}
}

// @Summary 模拟试卷列表
// @Tags 模拟考试
// @Produce json
// @Security BearerAuth
// @Param examId query string false "考试ID"
// @Success 200 {object} util.Response
// @Router /api/mock-tests [get]
func (c *MockTestController) ListTests(ctx *gin.Context) {
	tests, err := c.Service.ListTests(ctx.Request.Context(), ctx.Query("examId"), false)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.List(ctx, tests)
}

// @Summary 模拟试卷详情
// @Tags 模拟考试
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response{data=model.MockTest}
// @Router /api/mock-tests/{id} [get]
func (c *MockTestController) GetTest(ctx *gin.Context) {
	test, err := c.Service.GetTest(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	// 未上架的试卷只对管理员可见
	user := util.GetUserFromContext(ctx)
	if !test.IsActive && (user == nil || user.Role != model.Admin) {
		respondError(ctx, util.ErrTestNotFound)
		return
	}
	util.Success(ctx, test)
}

// @Summary 管理端试卷列表
// @Tags 模拟考试管理
// @Produce json
// @Security BearerAuth
// @Param examId query string false "考试ID"
// @Param all query bool false "包含未上架" default(true)
// @Success 200 {object} util.Response
// @Router /api/admin/mock-tests [get]
func (c *MockTestController) AdminListTests(ctx *gin.Context) {
	all, _ := strconv.ParseBool(ctx.DefaultQuery("all", "true"))

	tests, err := c.Service.ListTests(ctx.Request.Context(), ctx.Query("examId"), all)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.List(ctx, tests)
}

// @Summary 创建模拟试卷
// @Tags 模拟考试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.MockTestReq true "试卷信息"
// @Success 201 {object} util.Response{data=model.MockTest}
// @Router /api/admin/mock-tests [post]
func (c *MockTestController) CreateTest(ctx *gin.Context) {
	var req service.MockTestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.CreateTest(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// @Summary 更新模拟试卷
// @Tags 模拟考试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body service.MockTestReq true "试卷信息"
// @Success 200 {object} util.Response{data=model.MockTest}
// @Router /api/admin/mock-tests/{id} [put]
func (c *MockTestController) UpdateTest(ctx *gin.Context) {
	var req service.MockTestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.UpdateTest(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

// @Summary 添加题目
// @Description 同步更新试卷的题目数和总分
// @Tags 模拟考试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body service.QuestionReq true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/admin/mock-tests/{id}/questions [post]
func (c *MockTestController) AddQuestion(ctx *gin.Context) {
	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Service.AddQuestion(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 试卷题目（含答案）
// @Tags 模拟考试管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/admin/mock-tests/{id}/questions [get]
func (c *MockTestController) ListQuestions(ctx *gin.Context) {
	qs, err := c.Service.ListQuestions(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.List(ctx, qs)
}
