package controller

import (
	"context"
	"mocktest_backend/internal/service"
	"mocktest_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// HealthController DB 和 Redis 按存储配置可能为空
type HealthController struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions *service.SessionService
	Store    string
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, sessions *service.SessionService, store string) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Sessions: sessions, Store: store}
}

// @Summary 健康检查
// @Description 检查服务及存储依赖状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/public/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{"store": c.Store}
	healthy := true

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(pingCtx)
		}
		if err != nil {
			components["database"] = "down"
			healthy = false
		} else {
			components["database"] = "up"
		}
	}

	// 缓存不可用时仍可直接读存储，只标记为降级
	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["cache"] = "degraded"
		} else {
			components["cache"] = "up"
		}
	}

	if !healthy {
		util.ServiceUnavailable(ctx, "Database unavailable", gin.H{"status": "down", "components": components})
		return
	}

	util.Success(ctx, gin.H{
		"status":         "ok",
		"components":     components,
		"activeSessions": c.Sessions.ActiveCount(),
	})
}
