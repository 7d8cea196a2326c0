package http

import (
	"github.com/gin-gonic/gin"

	"github.com/skyward-cloud/gatehouse/ports"
)

// SetupRouter sets up the Gin router.
func SetupRouter(handlers *AuthHandlers, sessions ports.SessionStore) *gin.Engine {
	router := gin.Default()
	router.Use(SessionMiddleware(sessions))

	auth := router.Group("/auth")
	{
		auth.GET("/login", handlers.LoginForm)
		auth.POST("/login", handlers.Login)
		auth.GET("/two_factor", handlers.TwoFactorForm)
		auth.POST("/two_factor", handlers.TwoFactor)
		auth.GET("/logout", handlers.Logout)
		auth.POST("/logout", handlers.Logout)
	}

	// Switching requires an existing authenticated session.
	switching := router.Group("/auth", RequireSession(LoginPath))
	{
		switching.GET("/switch/:tenant_id", handlers.Switch)
		switching.GET("/switch_region/:region_name", handlers.SwitchRegion)
	}

	return router
}
