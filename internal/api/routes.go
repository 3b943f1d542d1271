package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

// Deps - зависимости HTTP слоя
type Deps struct {
	Auth        PasswordAuthenticator
	Sessions    SessionController
	Backend     *services.BackendClient
	Preferences *services.PreferenceStore
	Hub         *Hub
	Clock       clockwork.Clock
}

// SetupRoutes регистрирует API, WebSocket и страницы терминала
func SetupRoutes(r *gin.Engine, deps Deps) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	authController := NewAuthController(deps.Auth, deps.Sessions)
	orderController := NewOrderController(deps.Backend, deps.Clock)
	feedbackController := NewFeedbackController(deps.Backend)
	staffController := NewStaffController(deps.Backend)
	analyticsController := NewAnalyticsController(deps.Backend)
	preferencesController := NewPreferencesController(deps.Preferences)
	wsController := NewWSController(deps.Hub, deps.Backend, deps.Sessions)
	viewsController := NewViewsController()

	requireAdmin := RequireAdmin(deps.Sessions)
	requireKitchen := RequireSession(deps.Sessions, models.RoleKitchen, models.RoleAdmin)

	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "Delicious Kitchen Terminal",
			"session": deps.Sessions.Session().IsAuthenticated,
		})
	})

	apiGroup := r.Group("/api/v1")

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/login", authController.Login)
		authGroup.POST("/logout", authController.Logout)
		authGroup.GET("/session", authController.GetSession)
	}

	// Отслеживание заказа доступно гостю по ссылке
	ordersGroup := apiGroup.Group("/orders")
	{
		ordersGroup.GET("/:id", orderController.GetOrder)
		ordersGroup.POST("/:id/cancel", orderController.CancelOrder)
	}

	apiGroup.GET("/kitchen/orders", requireKitchen, orderController.ListKitchenOrders)

	reviewsGroup := apiGroup.Group("/reviews")
	{
		reviewsGroup.POST("", feedbackController.SubmitReview)
		reviewsGroup.GET("", requireAdmin, feedbackController.ListReviews)
	}

	surveysGroup := apiGroup.Group("/surveys")
	{
		surveysGroup.POST("", feedbackController.SubmitSurvey)
		surveysGroup.GET("/check/:orderNumber", feedbackController.CheckSurvey)
		surveysGroup.GET("", requireAdmin, feedbackController.ListSurveys)
	}

	usersGroup := apiGroup.Group("/users", requireAdmin)
	{
		usersGroup.GET("", staffController.ListUsers)
		usersGroup.GET("/roles", staffController.ListRoles)
		usersGroup.POST("", staffController.CreateUser)
		usersGroup.PUT("/:id", staffController.UpdateUser)
		usersGroup.PATCH("/:id/disable", staffController.DeactivateUser)
		usersGroup.POST("/:id/reset-password", staffController.ResetPassword)
		usersGroup.DELETE("/:id", staffController.DeleteUser)
	}

	analyticsGroup := apiGroup.Group("/analytics", requireAdmin)
	{
		analyticsGroup.GET("/sales", analyticsController.GetSales)
		analyticsGroup.GET("/sales/export", analyticsController.ExportSales)
	}

	apiGroup.GET("/preferences", preferencesController.Get)
	apiGroup.PUT("/preferences", preferencesController.Update)

	r.GET("/ws/orders/:id", wsController.ServeOrderStatus)
	r.GET("/ws/session", wsController.ServeSession)

	// Страницы
	r.GET("/login", authController.LoginView)
	r.GET("/", viewsController.Home(deps.Sessions))
	r.GET("/kitchen", requireKitchen, viewsController.Page("kitchen"))
	r.GET("/users", requireAdmin, viewsController.Page("users"))
	r.GET("/analytics", requireAdmin, viewsController.Page("analytics"))
	r.GET("/admin/surveys", requireAdmin, viewsController.Page("surveys"))
	r.GET("/admin/reviews", requireAdmin, viewsController.Page("reviews"))

	log.Println("✅ Маршруты зарегистрированы: /api/v1, /ws, страницы терминала")
}
