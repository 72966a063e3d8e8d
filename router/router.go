package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinetap/dinein-app/controllers"
	"github.com/dinetap/dinein-app/middlewares"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db)
	tabCtrl := controllers.NewTabController(db)

	// Staff authentication
	auth := r.Group("/auth")
	{
		auth.POST("/login", middlewares.NewStrictRateLimiter(), userCtrl.Login)
		auth.POST("/register", middlewares.NewStrictRateLimiter(), userCtrl.Register)
		auth.POST("/logout", middlewares.AuthMiddleware(), userCtrl.Logout)
	}

	// Customer-facing dine-in flow; authorization is the per-tab token,
	// no login involved.
	dinein := r.Group("/dinein")
	{
		dinein.GET("/businesses/:business_id/tables/:table_id/status", tabCtrl.GetTableStatus)
		dinein.POST("/businesses/:business_id/tables/:table_id/tabs", tabCtrl.CreateOrJoinTab)
		dinein.POST("/tabs/:tab_id/join", tabCtrl.JoinTable)
		dinein.GET("/tabs/:tab_id/status", tabCtrl.GetTabStatus)

		payment := dinein.Group("/tabs/:tab_id/payment")
		payment.Use(middlewares.PaymentRateLimiter(), middlewares.LogPaymentRequest())
		{
			payment.POST("", tabCtrl.InitiatePayment)
			payment.POST("/unlock", tabCtrl.UnlockPayment)
		}

		dinein.POST("/tabs/:tab_id/close", tabCtrl.CloseTab)
	}

	// Staff/admin table management
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware())
	{
		admin.POST("/businesses/:business_id/tables", middlewares.RequireRole("staff"), tableCtrl.CreateTable)
		admin.GET("/businesses/:business_id/tables", middlewares.RequireRole("staff", "cleaner"), tableCtrl.GetAllTables)
		admin.PATCH("/businesses/:business_id/tables/:table_id/dirty", middlewares.RequireRole("staff", "cleaner"), tableCtrl.MarkTableDirty)
		admin.PATCH("/businesses/:business_id/tables/:table_id/clean", tableCtrl.MarkTableClean)
		admin.POST("/businesses/:business_id/tables/:table_id/reconcile", middlewares.RequireRole("staff"), tableCtrl.ReconcileTable)
	}

	// Floor display websocket
	r.GET("/ws/floor", middlewares.WebSocketAuthMiddleware(), controllers.FloorHandler)

	return r
}
