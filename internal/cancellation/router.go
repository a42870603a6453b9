package cancellation

import "github.com/gin-gonic/gin"

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("/cancel", controller.Cancel) // POST /api/v1/bookings/cancel
	}
}
