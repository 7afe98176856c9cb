package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/smsline/smsline/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Verifications *VerificationHandler
	Account       *AccountHandler
	Events        *EventHandler
	Export        *ExportHandler
	JWTSecret     []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/token", deps.Auth.Token)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/verifications", deps.Verifications.Rent)
	authGroup.GET("/verifications", deps.Verifications.List)
	authGroup.GET("/verifications/:id", deps.Verifications.Get)
	authGroup.GET("/verifications/:id/code", deps.Verifications.AwaitCode)
	authGroup.POST("/verifications/:id/cancel", deps.Verifications.Cancel)
	authGroup.POST("/verifications/:id/complete", deps.Verifications.Complete)
	authGroup.POST("/verifications/:id/keep", deps.Verifications.Keep)

	authGroup.GET("/correlations/:id", deps.Verifications.ListByCorrelation)
	authGroup.POST("/correlations/:id/reassign", deps.Verifications.Reassign)

	authGroup.GET("/balance", deps.Account.Balance)
	authGroup.GET("/services", deps.Account.Services)
	authGroup.GET("/status", deps.Account.Status)

	authGroup.GET("/events", deps.Events.List)
	authGroup.POST("/export", deps.Export.Export)
}
