package controller

import (
	"errors"
	"io"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/service"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionController struct {
	Service *service.SessionService
}

func NewSessionController(svc *service.SessionService) *SessionController {
	return &SessionController{Service: svc}
}

type SelectOptionRequest struct {
	Option string `json:"option" binding:"required" example:"B"`
}

type GoToRequest struct {
	Index *int `json:"index" binding:"required,gte=0" example:"3"`
}

type SubmitRequest struct {
	Confirmed bool `json:"confirmed" example:"true"`
}

// SubmitResponse 未确认时 ConfirmationRequired 为 true，不做任何提交
type SubmitResponse struct {
	ConfirmationRequired bool                 `json:"confirmationRequired"`
	SubmissionID         string               `json:"submissionId,omitempty"`
	State                service.SessionState `json:"state"`
}

func (c *SessionController) session(ctx *gin.Context) (*service.Session, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}

	sess, err := c.Service.GetSession(ctx.Param("sessionId"), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	return sess, true
}

// @Summary 开始模拟考试
// @Description 加载试卷与题目并开始倒计时；已有进行中的作答时返回该作答
// @Tags 模拟考试作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 201 {object} util.Response{data=service.SessionState}
// @Failure 404 {object} util.Response
// @Router /api/mock-tests/{id}/sessions [post]
func (c *SessionController) StartSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sess, err := c.Service.StartSession(ctx.Request.Context(), ctx.Param("id"), user.UserID, user.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, sess.State())
}

// @Summary 获取作答状态
// @Tags 模拟考试作答
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Success 200 {object} util.Response{data=service.SessionState}
// @Router /api/sessions/{sessionId} [get]
func (c *SessionController) GetState(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}
	util.Success(ctx, sess.State())
}

// @Summary 选择当前题的选项
// @Description 同一题多次选择以最后一次为准
// @Tags 模拟考试作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Param body body SelectOptionRequest true "选项 A-D"
// @Success 200 {object} util.Response{data=service.SessionState}
// @Router /api/sessions/{sessionId}/answer [put]
func (c *SessionController) SelectOption(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}

	var req SelectOptionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := sess.SelectOption(model.Option(req.Option)); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sess.State())
}

// @Summary 下一题
// @Tags 模拟考试作答
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Success 200 {object} util.Response{data=service.SessionState}
// @Router /api/sessions/{sessionId}/next [post]
func (c *SessionController) Next(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := sess.Next(); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sess.State())
}

// @Summary 上一题
// @Tags 模拟考试作答
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Success 200 {object} util.Response{data=service.SessionState}
// @Router /api/sessions/{sessionId}/previous [post]
func (c *SessionController) Previous(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := sess.Previous(); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sess.State())
}

// @Summary 跳转到指定题目
// @Tags 模拟考试作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Param body body GoToRequest true "题目序号（从 0 开始）"
// @Success 200 {object} util.Response{data=service.SessionState}
// @Router /api/sessions/{sessionId}/goto [post]
func (c *SessionController) GoTo(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}

	var req GoToRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := sess.GoTo(*req.Index); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, sess.State())
}

// @Summary 交卷
// @Description 剩余时间大于 0 且未确认时返回 confirmationRequired；确认后提交。重复提交返回 409。
// @Tags 模拟考试作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Param body body SubmitRequest false "是否已确认"
// @Success 200 {object} util.Response{data=SubmitResponse}
// @Failure 409 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/sessions/{sessionId}/submit [post]
func (c *SessionController) Submit(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return
	}

	var (
		sub *model.Submission
		err error
	)
	if req.Confirmed {
		sub, err = sess.Submit(ctx.Request.Context(), model.TriggerManual)
	} else {
		var confirm bool
		confirm, sub, err = sess.RequestSubmit(ctx.Request.Context())
		if err == nil && confirm {
			util.Success(ctx, SubmitResponse{ConfirmationRequired: true, State: sess.State()})
			return
		}
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, SubmitResponse{SubmissionID: sub.ID, State: sess.State()})
}

// @Summary 放弃作答
// @Description 停止计时并丢弃作答，不保存任何记录
// @Tags 模拟考试作答
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sessionId} [delete]
func (c *SessionController) Abandon(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sessionID := ctx.Param("sessionId")
	if err := c.Service.Abandon(sessionID, user.UserID); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"abandoned": sessionID})
}

// @Summary 作答状态推送
// @Description Server-Sent Events，每次计时或作答变化推送一次 state 事件；交卷后推送 completed 事件并关闭
// @Tags 模拟考试作答
// @Produce text/event-stream
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Param token query string false "EventSource 无法设置请求头时使用"
// @Success 200 {object} service.SessionState
// @Router /api/sessions/{sessionId}/events [get]
func (c *SessionController) Events(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}

	updates, cancel := sess.Subscribe()
	defer cancel()

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.Status(http.StatusOK)

	done := ctx.Request.Context().Done()
	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case state, open := <-updates:
			if !open {
				return false
			}
			if state.Status == service.StatusCompleted {
				ctx.SSEvent("completed", state)
				return false
			}
			ctx.SSEvent("state", state)
			return true
		}
	})
}

// HandleWS godoc
// @Summary 作答实时通道
// @Description 建立 WebSocket 连接：下行推送 state/completed/confirm/error，上行接受 select、next、previous、goto、submit 指令
// @Tags 模拟考试作答
// @Security BearerAuth
// @Param sessionId path string true "作答ID"
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/sessions/{sessionId}/ws [get]
func (c *SessionController) HandleWS(ctx *gin.Context) {
	sess, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := service.ServeSessionWs(sess, ctx.Writer, ctx.Request); err != nil {
		logger.Log.Debug("Session socket upgrade failed", zap.String("sessionId", sess.ID), zap.Error(err))
	}
}
