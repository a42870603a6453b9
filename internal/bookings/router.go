package bookings

import "github.com/gin-gonic/gin"

func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("/initiate", controller.Initiate)     // POST /api/v1/bookings/initiate
		bookings.POST("/verify", controller.Verify)         // POST /api/v1/bookings/verify
		bookings.POST("/resend-otp", controller.ResendCode) // POST /api/v1/bookings/resend-otp
		bookings.GET("/:ticketId", controller.GetTicket)    // GET /api/v1/bookings/:ticketId
	}
}
