package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"promotracker-backend/internal/shared/middleware"
	"promotracker-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupPromotionRoutes(v1, c)
		setupAccountRoutes(v1, c)
		setupDepositRoutes(v1, c)
	}

	return router
}

func setupPromotionRoutes(v1 *gin.RouterGroup, c *container.Container) {
	promotions := v1.Group("/promotions")
	{
		promotions.POST("", c.PromotionHandler.CreatePromotion)
		promotions.GET("", c.PromotionHandler.ListPromotions)
		promotions.GET("/:id", c.PromotionHandler.GetPromotion)
		promotions.DELETE("/:id", c.PromotionHandler.DeletePromotion)

		promotions.POST("/:id/activate", c.PromotionHandler.ActivatePromotion)
		promotions.POST("/:id/complete", c.PromotionHandler.CompletePromotion)
		promotions.POST("/:id/expire", c.PromotionHandler.ExpirePromotion)
		promotions.POST("/:id/phases/:phaseId/activate", c.PromotionHandler.ActivatePhase)
		promotions.POST("/:id/phases/:phaseId/complete", c.PromotionHandler.CompletePhase)
		promotions.POST("/:id/phases/:phaseId/expire", c.PromotionHandler.ExpirePhase)
		promotions.POST("/:id/rewards/:rewardId/advance", c.PromotionHandler.AdvanceReward)
		promotions.POST("/:id/rewards/:rewardId/expire", c.PromotionHandler.ExpireReward)
		promotions.POST("/:id/recalculate-timeframes", c.PromotionHandler.RecalculateTimeframes)
	}

	conditions := v1.Group("/qualify-conditions")
	{
		conditions.POST("/:id/deposits", c.QualificationHandler.FulfillDeposit)
	}
}

func setupAccountRoutes(v1 *gin.RouterGroup, c *container.Container) {
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", c.AccountHandler.CreateAccount)
		accounts.GET("", c.AccountHandler.ListAccounts)
		accounts.GET("/:bookmakerId", c.AccountHandler.GetAccount)
	}
}

func setupDepositRoutes(v1 *gin.RouterGroup, c *container.Container) {
	deposits := v1.Group("/deposits")
	{
		deposits.POST("", c.DepositHandler.RecordDeposit)
		deposits.GET("", c.DepositHandler.ListDeposits)
		deposits.GET("/:id", c.DepositHandler.GetDeposit)
	}
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "up"
		if err := c.DB.HealthCheck(checkCtx); err != nil {
			dbStatus = "down"
		}
		cacheStatus := "up"
		if err := c.Cache.Ping(checkCtx); err != nil {
			cacheStatus = "down"
		}

		status := http.StatusOK
		if dbStatus == "down" {
			status = http.StatusServiceUnavailable
		}
		ctx.JSON(status, gin.H{
			"status":   "ok",
			"database": dbStatus,
			"cache":    cacheStatus,
			"version":  c.Config.App.Version,
		})
	}
}
