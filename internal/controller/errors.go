package controller

import (
	"errors"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/docstore"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError 将领域错误映射为 HTTP 状态码
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTestNotFound),
		errors.Is(err, util.ErrQuestionsNotFound),
		errors.Is(err, util.ErrSubmissionNotFound),
		errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, docstore.ErrNotFound):
		util.Error(ctx, http.StatusNotFound, rootMessage(err))
	case errors.Is(err, util.ErrPersistenceFailure):
		util.ServiceUnavailable(ctx, util.ErrPersistenceFailure.Error(), nil)
	case errors.Is(err, util.ErrSubmissionInProgress),
		errors.Is(err, util.ErrSessionClosed):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidOption),
		errors.Is(err, util.ErrInvalidInput):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

// rootMessage 只返回哨兵错误的文案，不暴露存储细节
func rootMessage(err error) string {
	for _, sentinel := range []error{
		util.ErrTestNotFound,
		util.ErrQuestionsNotFound,
		util.ErrSubmissionNotFound,
		util.ErrSessionNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "Resource not found"
}
