package http

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentic-rag/internal/bootstrap"
	mysqlClient "agentic-rag/internal/platform/mysql"
	redisClient "agentic-rag/internal/platform/redis"
	"agentic-rag/internal/transport/http/handler"
	"agentic-rag/internal/transport/http/middleware"
)

const rateLimiterTTL = 10 * time.Minute

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(app.Logger),
		middleware.Metrics(),
		middleware.CORS(app.Config.CORS.AllowedOrigins),
	)

	router.GET("/healthz", newHealthHandler(app).Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	svc := app.Services
	authHandler := handler.NewAuthHandler(svc.Auth)
	documentHandler := handler.NewDocumentHandler(svc.Documents, svc.RAG)
	databaseHandler := handler.NewDatabaseHandler(svc.SQLAgent)
	chatHandler := handler.NewChatHandler(svc.Chat)
	adminHandler := handler.NewAdminHandler(svc.Admin)

	requireAuth := middleware.AuthJWT(app.Config.Auth.JWTSecret, svc.Auth)
	limiter := middleware.NewRateLimiter(app.Config.RateLimit.AuthPerSecond, app.Config.RateLimit.AuthBurst, rateLimiterTTL)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", limiter.Middleware(), authHandler.Signup)
	authGroup.POST("/login", limiter.Middleware(), authHandler.Login)
	authGroup.POST("/logout", requireAuth, authHandler.Logout)
	authGroup.GET("/me", requireAuth, authHandler.Me)
	authGroup.PUT("/me", requireAuth, authHandler.UpdateMe)

	documents := v1.Group("/documents", requireAuth)
	documents.POST("/upload", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.DELETE("/:id", documentHandler.Delete)
	documents.POST("/:id/reprocess", documentHandler.Reprocess)
	documents.POST("/query", documentHandler.Query)

	database := v1.Group("/database", requireAuth)
	database.POST("/connect", databaseHandler.Connect)
	database.GET("/connections", databaseHandler.ListConnections)
	database.GET("/connections/:id", databaseHandler.GetConnection)
	database.DELETE("/connections/:id", databaseHandler.DeleteConnection)
	database.GET("/tables", databaseHandler.ListTables)
	database.GET("/table/:name/schema", databaseHandler.TableSchema)
	database.POST("/query", databaseHandler.Query)
	database.GET("/history", databaseHandler.History)

	chat := v1.Group("/chat", requireAuth)
	chat.POST("/histories", chatHandler.CreateHistory)
	chat.GET("/histories", chatHandler.ListHistories)
	chat.DELETE("/histories/:id", chatHandler.DeleteHistory)
	chat.GET("/histories/:id/messages", chatHandler.ListMessages)
	chat.POST("/histories/:id/messages", chatHandler.AppendMessage)

	admin := v1.Group("/admin", requireAuth, middleware.RequireAdmin(svc.Authz))
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id", adminHandler.UpdateUser)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.POST("/users/:id/roles", adminHandler.AssignUserRoles)
	admin.GET("/users/:id/roles", adminHandler.ListUserRoles)
	admin.GET("/users/:id/permissions", adminHandler.ListUserPermissions)
	admin.GET("/users/:id/databases", adminHandler.ListUserConnections)

	admin.GET("/roles", adminHandler.ListRoles)
	admin.POST("/roles", adminHandler.CreateRole)
	admin.GET("/roles/:id", adminHandler.GetRole)
	admin.PUT("/roles/:id", adminHandler.UpdateRole)
	admin.DELETE("/roles/:id", adminHandler.DeleteRole)
	admin.POST("/roles/:id/permissions", adminHandler.AssignRolePermissions)
	admin.GET("/roles/:id/permissions", adminHandler.ListRolePermissions)

	admin.GET("/permissions", adminHandler.ListPermissions)
	admin.POST("/permissions", adminHandler.CreatePermission)
	admin.GET("/permissions/:id", adminHandler.GetPermission)
	admin.PUT("/permissions/:id", adminHandler.UpdatePermission)
	admin.DELETE("/permissions/:id", adminHandler.DeletePermission)

	admin.GET("/databases", adminHandler.ListConnections)
	admin.DELETE("/databases/:id", adminHandler.DeleteConnection)

	admin.GET("/dashboard/stats", adminHandler.DashboardStats)

	return router
}

func newHealthHandler(app *bootstrap.App) *handler.HealthHandler {
	checks := []handler.DependencyCheck{{
		Name: "mysql",
		Check: func(ctx context.Context) error {
			return mysqlClient.Ping(ctx, app.MySQL)
		},
	}}
	if app.Redis != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx, app.Redis)
			},
		})
	}
	if app.MQConn != nil {
		checks = append(checks, handler.DependencyCheck{
			Name: "rabbitmq",
			Check: func(context.Context) error {
				if app.MQConn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			},
		})
	}
	return handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, checks...)
}
