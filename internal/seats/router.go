package seats

import "github.com/gin-gonic/gin"

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Seat inventory lives under the bookings prefix to match the client
	bookings := rg.Group("/bookings")
	{
		bookings.GET("/seats/:date", controller.GetSeats) // GET /api/v1/bookings/seats/:date
	}
}
