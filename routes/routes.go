package routes

import (
	"net/http"
	"time"

	"tradely/handlers"
	"tradely/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires up all endpoints on the router.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterDispatchRoutes(r, hb)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Tradely"})
	})
}

// RegisterDispatchRoutes sets up the endpoints for the dispatch engine.
func RegisterDispatchRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/dispatch")
	{
		api.GET("/services", hb.ListServices)

		// Customer endpoints.
		customer := api.Group("")
		customer.Use(middleware.JWTAuthUserMiddleware())
		customer.POST("", hb.CreateDispatch)

		// Debug view: the booking's own customer or an admin.
		api.GET("/:bookingID/offers", middleware.JWTAuthUserOrAdminMiddleware(), hb.GetOffersDebug)

		// Provider endpoints.
		provider := api.Group("")
		provider.Use(middleware.JWTAuthProviderMiddleware())
		provider.POST("/:bookingID/accept", hb.AcceptOffer)
		provider.POST("/:bookingID/decline", hb.DeclineOffer)
		provider.GET("/my-offers", hb.MyPendingOffers)

		// Admin escape hatch.
		api.POST("/:bookingID/advance", middleware.AdminAuthMiddleware(), hb.ForceAdvance)
	}
}
