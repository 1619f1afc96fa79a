package app

import (
	"mocktest_backend/docs"
	"mocktest_backend/internal/config"
	"mocktest_backend/internal/middleware"
	"mocktest_backend/internal/model"
	"mocktest_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.ConfigMiddleware(cfg), middleware.AuthMiddleware())
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api/public")
	{
		public.GET("/health", c.health.HealthCheck)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	mockTests := rg.Group("/mock-tests")
	{
		mockTests.GET("", c.mockTest.ListTests)
		mockTests.GET("/:id", c.mockTest.GetTest)
		mockTests.POST("/:id/sessions", c.session.StartSession)
		mockTests.GET("/:id/result", c.result.ViewLatestResult)
	}

	sessions := rg.Group("/sessions")
	{
		sessions.GET("/:sessionId", c.session.GetState)
		sessions.DELETE("/:sessionId", c.session.Abandon)
		sessions.GET("/:sessionId/events", c.session.Events)
		sessions.GET("/:sessionId/ws", c.session.HandleWS)
		sessions.PUT("/:sessionId/answer", c.session.SelectOption)
		sessions.POST("/:sessionId/next", c.session.Next)
		sessions.POST("/:sessionId/previous", c.session.Previous)
		sessions.POST("/:sessionId/goto", c.session.GoTo)
		sessions.POST("/:sessionId/submit", c.session.Submit)
	}

	results := rg.Group("/results")
	{
		results.GET("", c.result.ListMyResults)
		results.GET("/:submissionId", c.result.ViewResult)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.ConfigMiddleware(cfg), middleware.AuthMiddleware(), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/mock-tests", c.mockTest.AdminListTests)
		admin.POST("/mock-tests", c.mockTest.CreateTest)
		admin.PUT("/mock-tests/:id", c.mockTest.UpdateTest)
		admin.GET("/mock-tests/:id/questions", c.mockTest.ListQuestions)
		admin.POST("/mock-tests/:id/questions", c.mockTest.AddQuestion)
		admin.GET("/mock-tests/:id/submissions", c.result.ListTestSubmissions)
	}
}
