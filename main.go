package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/cache"
	"github.com/nextyou21/planner-backend/db"
	"github.com/nextyou21/planner-backend/docstore"
	"github.com/nextyou21/planner-backend/handlers"
	"github.com/nextyou21/planner-backend/middleware"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/session"
	"github.com/nextyou21/planner-backend/syncengine"
	"github.com/nextyou21/planner-backend/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	utils.InitLogger()
	defer utils.Logger.Sync()
	utils.InitMetrics()

	utils.Logger.Info("starting_application")

	db.Connect()
	if err := db.Migrate(); err != nil {
		utils.Logger.Fatal("migration_failed", zap.Error(err))
	}

	if err := cache.InitRedis(utils.Logger); err != nil {
		utils.Logger.Fatal("redis_init_failed", zap.Error(err))
	}
	defer cache.Close()

	docs := docstore.New(db.DB, utils.Logger)
	sessions := session.NewManager(utils.Logger)
	engines := syncengine.NewManager(docs, sessions, utils.Logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{utils.GetEnv("FRONTEND_ORIGIN", "http://localhost:3000")},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Content-Length", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if utils.GetEnv("CSRF_ENABLED", "false") == "true" {
		r.Use(middleware.CSRFProtection([]byte(utils.GetEnv("CSRF_KEY", "32-byte-long-auth-key-goes-here!"))))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now(),
			"database":  "connected",
		})
	})

	// Public endpoints, rate limited against credential stuffing
	authLimit := middleware.RateLimitMiddleware(20, time.Minute)
	r.POST("/api/register", authLimit, handlers.Register(docs))
	r.POST("/api/login", authLimit, handlers.Login(sessions))

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/profile", handlers.Profile())
		api.POST("/logout", handlers.Logout(sessions, engines))
		api.GET("/landing", handlers.GetLanding(sessions))
		api.POST("/landing/start", handlers.StartLanding(sessions))

		// Full session view plus the websocket stream of it
		api.GET("/planner", handlers.GetPlanner(engines))
		api.GET("/sync/ws", handlers.SyncStream(engines))
		api.POST("/planner/clear", handlers.ClearPlanner(engines))

		api.POST("/habits", handlers.CreateHabit(engines))
		api.PATCH("/habits/:id", handlers.UpdateHabit(engines))
		api.DELETE("/habits/:id", handlers.DeleteHabit(engines))
		api.POST("/habits/:id/toggle", handlers.ToggleHabitDay(engines))

		api.PUT("/months/:month/goals", handlers.PutMonthlyGoals(engines))
		api.POST("/months/:month", handlers.AddMonthlyGoalContainer(engines))
		api.DELETE("/months/:month", handlers.DeleteMonthlyGoalContainer(engines))
		api.PUT("/months/:month/weeks/:week/goals", handlers.PutWeeklyGoals(engines))
		api.POST("/months/:month/weeks/:week/toggle", handlers.ToggleWeeklyGoal(engines))

		api.POST("/annual", handlers.AddAnnualCategory(engines))
		api.PATCH("/annual/:index", handlers.UpdateAnnualCategory(engines))
		api.DELETE("/annual/:index", handlers.DeleteAnnualCategory(engines))

		api.PUT("/config", handlers.UpdateConfig(engines))
		api.PUT("/config/tabs", handlers.SetTabOrder(engines))
		api.POST("/config/tabs/drag", handlers.DragTab(engines))
		api.PUT("/config/manifestation", handlers.SetManifestation(engines))

		api.POST("/transactions", handlers.CreateTransaction(engines))
		api.PATCH("/transactions/:id", handlers.UpdateTransaction(engines))
		api.POST("/transactions/:id/settle", handlers.SettleTransaction(engines))
		api.DELETE("/transactions/:id", handlers.DeleteTransaction(engines))
		api.PUT("/budgets", handlers.SetBudgetLimit(engines))

		// Read-heavy dashboards ride the response cache
		dashCache := middleware.CachedResponse(30 * time.Second)
		api.GET("/finance/dashboard", dashCache, handlers.FinanceDashboard(engines))
		api.GET("/analytics/habits", dashCache, handlers.HabitAnalytics(engines))
		api.GET("/analytics/annual", dashCache, handlers.AnnualProgress(engines))
		api.GET("/analytics/trial", handlers.TrialStatus(engines))

		admin := api.Group("/admin")
		admin.Use(middleware.RoleMiddleware(models.RoleAdmin))
		{
			admin.GET("/users", handlers.AdminRoster(docs))
			admin.POST("/users/:id/approve", handlers.ApproveUser(docs))
			admin.POST("/users/:id/block", handlers.BlockUser(docs))
			admin.POST("/users/:id/pending", handlers.RevokeUser(docs))
			admin.POST("/users/:id/paid", handlers.SetUserPaid(docs))
			admin.GET("/users/export", handlers.ExportRoster(docs))

			admin.GET("/coupons", handlers.ListCoupons(docs))
			admin.POST("/coupons", handlers.CreateCoupon(docs))
			admin.DELETE("/coupons/:id", handlers.DeleteCoupon(docs))
		}
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	startServer(r)
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	utils.Logger.Info("starting_http_server", zap.String("port", port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatal("http_server_failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Logger.Info("shutting_down_server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.Fatal("server_forced_shutdown", zap.Error(err))
	}

	utils.Logger.Info("server_stopped")
	fmt.Println("Server stopped gracefully")
}
