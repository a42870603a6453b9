package seats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reservely/internal/shared/utils/response"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetSeats handles GET /api/v1/bookings/seats/:date
func (c *Controller) GetSeats(ctx *gin.Context) {
	inventory, err := c.service.GetInventory(ctx.Request.Context(), ctx.Param("date"))
	if err != nil {
		response.Error(ctx, err)
		return
	}

	response.Success(ctx, http.StatusOK, "Seats retrieved", inventory)
}
