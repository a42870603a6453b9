package settings

import "github.com/gin-gonic/gin"

func SetupSettingsRoutes(rg *gin.RouterGroup, controller *Controller) {
	settings := rg.Group("/settings")
	{
		settings.GET("", controller.GetSettings)                  // GET /api/v1/settings
		settings.GET("/availability", controller.GetAvailability) // GET /api/v1/settings/availability
	}
}
